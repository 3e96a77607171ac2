package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Options configure how a diff is applied.
type Options struct {
	// StrictPaths rejects patch targets that resolve outside the base
	// directory. The historical behavior is permissive; the CLI turns
	// this on by default.
	StrictPaths bool
}

// Result describes the outcome for a single file when applying a diff.
// Status is "A" for added, "M" for modified, "D" for deleted.
type Result struct {
	Status string
	Path   string
}

// Apply parses diffText and applies every patch in it to files under
// baseDir, atomically across the whole diff: either every hunk of every
// patch applies cleanly and all files are committed, or no file under
// baseDir differs from its pre-call state when Apply returns.
//
// Parse and path-resolution failures abort before any file is touched.
// Once mutation has started, any failure rolls back every touched file in
// reverse mutation order before Apply returns the original error.
//
// Apply provides no locking; callers must serialize invocations against
// the same base directory.
func Apply(diffText, baseDir string, opts Options) ([]Result, error) {
	patches, err := Parse(diffText)
	if err != nil {
		return nil, err
	}

	targets, err := resolveAll(patches, baseDir, opts.StrictPaths)
	if err != nil {
		return nil, err
	}

	tx, err := newTransaction(baseDir)
	if err != nil {
		return nil, err
	}
	defer tx.discard()

	results := make([]Result, 0, len(patches))
	for i, p := range patches {
		result, applyErr := applyPatch(tx, p, targets[i])
		if applyErr != nil {
			if rbErr := tx.rollback(); rbErr != nil {
				applyErr.Message = fmt.Sprintf("%s (rollback incomplete: %v)", applyErr.Message, rbErr)
			}
			return nil, applyErr
		}
		results = append(results, result)
	}
	return results, nil
}

// resolveAll resolves every patch target up front and verifies that each
// modify/delete target exists, so missing-target failures surface before
// any file is touched. Existence is tracked across patches: a diff may
// create a file and modify it in a later patch.
func resolveAll(patches []Patch, baseDir string, strict bool) ([]Target, error) {
	targets := make([]Target, len(patches))
	known := make(map[string]bool)
	for i, p := range patches {
		target, err := Resolve(p, baseDir, strict)
		if err != nil {
			return nil, err
		}

		exists, tracked := known[target.AbsPath]
		if !tracked {
			_, statErr := os.Stat(target.AbsPath)
			exists = statErr == nil
		}
		switch target.Class {
		case ClassModify, ClassDelete:
			if !exists {
				return nil, &Error{
					Kind:         KindMissingTarget,
					RelativePath: target.RelPath,
					Message:      fmt.Sprintf("target file %s does not exist for patching", target.RelPath),
				}
			}
		}
		known[target.AbsPath] = target.Class != ClassDelete
		targets[i] = target
	}
	return targets, nil
}

// applyPatch snapshots the target, applies the patch's hunks against the
// current content, and commits the result to disk. The snapshot always
// happens before the first mutation of that file.
func applyPatch(tx *transaction, p Patch, target Target) (Result, *Error) {
	if err := tx.snapshot(target); err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return Result{}, pe
		}
		return Result{}, ioError(target.RelPath, "%v", err)
	}

	original, err := readLines(target)
	if err != nil {
		return Result{}, err
	}

	// Hunks are verified even for deletions so a hallucinated delete
	// patch cannot remove a file whose content it does not describe.
	updated, err := applyHunks(target.RelPath, original, p.Hunks)
	if err != nil {
		return Result{}, err
	}

	switch target.Class {
	case ClassDelete:
		if rmErr := os.Remove(target.AbsPath); rmErr != nil {
			return Result{}, ioError(target.RelPath, "failed to delete %s: %v", target.RelPath, rmErr)
		}
		return Result{Status: "D", Path: filepath.ToSlash(target.RelPath)}, nil
	case ClassCreate:
		if mkErr := os.MkdirAll(filepath.Dir(target.AbsPath), 0o755); mkErr != nil {
			return Result{}, ioError(target.RelPath, "failed to create directory for %s: %v", target.RelPath, mkErr)
		}
	}

	if wrErr := os.WriteFile(target.AbsPath, []byte(joinLines(updated)), writeMode(tx, target)); wrErr != nil {
		return Result{}, ioError(target.RelPath, "failed to write %s: %v", target.RelPath, wrErr)
	}

	status := "M"
	if target.Class == ClassCreate {
		status = "A"
	}
	return Result{Status: status, Path: filepath.ToSlash(target.RelPath)}, nil
}

// applyHunks walks the patch's hunks over the original lines with a
// single cursor. Context and delete lines must match the original
// byte-for-byte; this strict equality is the only defense against a
// hunk landing at the wrong offset or a hallucinated diff silently
// corrupting unrelated content.
func applyHunks(relPath string, original []string, hunks []Hunk) ([]string, *Error) {
	var out []string
	cursor := 0
	var statuses []HunkStatus

	for index, hunk := range hunks {
		number := index + 1

		// Lines before the hunk are untouched context. A pure-insert
		// hunk (old count zero) anchors after line OldStart rather
		// than at it.
		limit := hunk.OldStart - 1
		if hunk.OldCount == 0 {
			limit = hunk.OldStart
		}
		if limit < cursor || limit > len(original) {
			return nil, mismatchError(relPath, number, hunk, statuses,
				fmt.Sprintf("hunk %d is out of range for %s", number, relPath), "", "")
		}
		out = append(out, original[cursor:limit]...)
		cursor = limit

		for _, ln := range hunk.Lines {
			switch ln.Op {
			case OpContext, OpDelete:
				if cursor >= len(original) {
					return nil, mismatchError(relPath, number, hunk, statuses,
						fmt.Sprintf("hunk %d in %s expects content past the end of the file", number, relPath),
						ln.Text, "")
				}
				if original[cursor] != ln.Text {
					return nil, mismatchError(relPath, number, hunk, statuses,
						fmt.Sprintf("hunk %d does not match the current content of %s", number, relPath),
						ln.Text, original[cursor])
				}
				if ln.Op == OpContext {
					out = append(out, ln.Text)
				}
				cursor++
			case OpAdd:
				out = append(out, ln.Text)
			}
		}
		statuses = append(statuses, HunkStatus{Number: number, Status: "applied"})
	}

	out = append(out, original[cursor:]...)
	return out, nil
}

func mismatchError(relPath string, number int, hunk Hunk, statuses []HunkStatus, message, expected, actual string) *Error {
	all := append(append([]HunkStatus{}, statuses...), HunkStatus{Number: number, Status: "no-match"})
	return &Error{
		Kind:         KindContextMismatch,
		RelativePath: relPath,
		Message:      message,
		Expected:     expected,
		Actual:       actual,
		HunkStatuses: all,
		FailedHunk:   &FailedHunk{Number: number, RawLines: append([]string(nil), hunk.RawLines...)},
	}
}

// readLines loads the target's current content as a line sequence. A
// create target whose file is missing on disk starts from an empty
// sequence.
func readLines(target Target) ([]string, *Error) {
	content, err := os.ReadFile(target.AbsPath)
	if err != nil {
		if target.Class == ClassCreate && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, ioError(target.RelPath, "failed to read %s: %v", target.RelPath, err)
	}
	return contentToLines(string(content)), nil
}

func contentToLines(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	if normalized == "" {
		return nil
	}
	lines := strings.Split(normalized, "\n")
	// A trailing newline produces one empty trailing element; the join
	// adds the separator back.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// joinLines renders the output lines with a single trailing newline,
// normalizing trailing-newline handling across inputs.
func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

// writeMode preserves the file's pre-transaction permissions when a
// snapshot recorded them, falling back to 0644 for new files.
func writeMode(tx *transaction, target Target) fs.FileMode {
	for _, rec := range tx.records {
		if rec.targetPath == target.AbsPath && rec.existed {
			if perm := rec.mode & fs.ModePerm; perm != 0 {
				return perm
			}
		}
	}
	return 0o644
}
