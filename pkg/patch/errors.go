package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind classifies a patch failure so callers can react without string
// matching. Parse and path failures happen before any file is touched;
// mismatch and IO failures trigger a rollback of the transaction.
type Kind string

const (
	// KindParse reports diff text with no recognizable patches or a
	// malformed hunk header.
	KindParse Kind = "PARSE_FAILED"
	// KindInvalidPath reports a patch header that yields no usable target.
	KindInvalidPath Kind = "INVALID_PATH"
	// KindMissingTarget reports a modify or delete patch against a file
	// that does not exist.
	KindMissingTarget Kind = "MISSING_TARGET"
	// KindContextMismatch reports a context or delete line that does not
	// match the current file content.
	KindContextMismatch Kind = "CONTEXT_MISMATCH"
	// KindIO reports an underlying read, write, or delete failure.
	KindIO Kind = "IO_FAILURE"
)

// HunkStatus tracks how a hunk fared while processing a patch.
type HunkStatus struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

// FailedHunk stores the raw lines of the hunk that could not be applied.
type FailedHunk struct {
	Number   int      `json:"number"`
	RawLines []string `json:"rawLines"`
}

// Error represents a structured failure while parsing or applying a diff.
// It satisfies the error interface so it can be returned directly from the
// Apply* helpers.
type Error struct {
	Kind         Kind
	Message      string
	RelativePath string

	// Expected and Actual carry the mismatching line pair for
	// KindContextMismatch; empty otherwise.
	Expected string
	Actual   string

	HunkStatuses []HunkStatus
	FailedHunk   *FailedHunk
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "patch error"
}

func parseError(format string, args ...any) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...)}
}

func ioError(relativePath, format string, args ...any) *Error {
	return &Error{Kind: KindIO, RelativePath: relativePath, Message: fmt.Sprintf(format, args...)}
}

func describeHunkStatuses(statuses []HunkStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	var applied []string
	var failed string
	for _, status := range statuses {
		if status.Status == "applied" {
			applied = append(applied, fmt.Sprintf("%d", status.Number))
			continue
		}
		if failed == "" {
			failed = fmt.Sprintf("No match for hunk %d.", status.Number)
		}
	}

	parts := make([]string, 0, 2)
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Hunks applied: %s.", strings.Join(applied, ", ")))
	}
	if failed != "" {
		parts = append(parts, failed)
	}
	return strings.Join(parts, "\n")
}

// describeMismatch renders the expected/actual pair as a character-level
// diff so small divergences (trailing spaces, quote styles) stand out.
func describeMismatch(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Expected: %q\n", expected))
	builder.WriteString(fmt.Sprintf("Actual:   %q", actual))
	if len(diffs) > 1 {
		builder.WriteString("\nDivergence: ")
		for _, d := range diffs {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				builder.WriteString(fmt.Sprintf("[-%s]", d.Text))
			case diffmatchpatch.DiffInsert:
				builder.WriteString(fmt.Sprintf("[+%s]", d.Text))
			default:
				builder.WriteString(d.Text)
			}
		}
	}
	return builder.String()
}

// FormatError renders Error values into a human readable message suitable
// for surfacing to end users.
func FormatError(err *Error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	message := err.Message
	if message == "" {
		message = "Unknown error occurred."
	}
	if err.Kind != KindContextMismatch {
		return message
	}

	displayPath := err.RelativePath
	if displayPath == "" {
		displayPath = "unknown file"
	}

	var parts []string
	parts = append(parts, message)
	if summary := describeHunkStatuses(err.HunkStatuses); summary != "" {
		parts = append(parts, "", summary)
	}
	if err.Expected != "" || err.Actual != "" {
		parts = append(parts, "", describeMismatch(err.Expected, err.Actual))
	}
	if err.FailedHunk != nil && len(err.FailedHunk.RawLines) > 0 {
		parts = append(parts, "", fmt.Sprintf("Offending hunk in %s:", displayPath))
		parts = append(parts, strings.Join(err.FailedHunk.RawLines, "\n"))
	}
	return strings.Join(parts, "\n")
}
