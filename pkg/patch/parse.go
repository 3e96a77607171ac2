package patch

import (
	"strconv"
	"strings"
)

// NonExistent is the header value that marks a missing side of a patch:
// old side for file creation, new side for deletion.
const NonExistent = "/dev/null"

// LineOp tags a single hunk body line.
type LineOp byte

const (
	// OpContext marks an unchanged anchoring line.
	OpContext LineOp = ' '
	// OpDelete marks a line removed from the original.
	OpDelete LineOp = '-'
	// OpAdd marks a line added to the result.
	OpAdd LineOp = '+'
)

// Line is one tagged body line of a hunk, stored without its prefix.
type Line struct {
	Op   LineOp
	Text string
}

// Hunk is one contiguous change region within a file.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line

	// RawLines holds the hunk as it appeared in the diff text, header
	// included, for error reporting.
	RawLines []string
}

// Patch describes the full change set for one file: its header pair plus
// the ordered hunks. Paths are kept verbatim; prefix stripping and
// classification happen in Resolve.
type Patch struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// IsCreate reports whether the patch creates a new file.
func (p Patch) IsCreate() bool { return p.OldPath == NonExistent }

// IsDelete reports whether the patch deletes an existing file.
func (p Patch) IsDelete() bool { return p.NewPath == NonExistent }

// Parse converts unified diff text into the ordered sequence of patches it
// describes. Order is preserved; it is the order of application. Parse
// fails with a KindParse error when the text contains no recognizable
// patch headers or a hunk header's counts are inconsistent with its body.
func Parse(input string) ([]Patch, error) {
	lines := splitLines(input)
	// Drop the empty artifact of a trailing newline so a truncated hunk
	// body is detected instead of absorbed as blank context.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var patches []Patch
	i := 0
	for i < len(lines) {
		line := lines[i]
		if !strings.HasPrefix(line, "--- ") {
			// Tolerate noise between patches: git headers, index lines,
			// prose emitted around the diff.
			i++
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
			return nil, parseError("header %q is not followed by a +++ line", line)
		}

		patch := Patch{
			OldPath: parseHeaderPath(line[4:]),
			NewPath: parseHeaderPath(lines[i+1][4:]),
		}
		if patch.OldPath == NonExistent && patch.NewPath == NonExistent {
			return nil, parseError("patch header has /dev/null on both sides")
		}
		i += 2

		for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
			hunk, next, err := parseHunk(lines, i)
			if err != nil {
				return nil, err
			}
			patch.Hunks = append(patch.Hunks, hunk)
			i = next
		}

		if len(patch.Hunks) == 0 {
			return nil, parseError("no hunks found for %s", displayPath(patch))
		}
		patches = append(patches, patch)
	}

	if len(patches) == 0 {
		return nil, parseError("no valid patches found in the diff text")
	}
	return patches, nil
}

// parseHunk consumes one hunk starting at the header line lines[start].
// The body is count-driven: exactly OldCount context+delete lines and
// NewCount context+add lines must follow, otherwise the header is
// inconsistent with the body.
func parseHunk(lines []string, start int) (Hunk, int, error) {
	hunk, err := parseHunkHeader(lines[start])
	if err != nil {
		return Hunk{}, 0, err
	}
	hunk.RawLines = append(hunk.RawLines, lines[start])

	oldRemaining := hunk.OldCount
	newRemaining := hunk.NewCount
	i := start + 1
	for oldRemaining > 0 || newRemaining > 0 {
		if i >= len(lines) {
			return Hunk{}, 0, parseError("hunk %q ends before its line counts are satisfied", lines[start])
		}
		raw := lines[i]
		if raw == `\ No newline at end of file` {
			i++
			continue
		}

		var ln Line
		switch {
		case strings.HasPrefix(raw, " "):
			ln = Line{Op: OpContext, Text: raw[1:]}
		case strings.HasPrefix(raw, "-"):
			ln = Line{Op: OpDelete, Text: raw[1:]}
		case strings.HasPrefix(raw, "+"):
			ln = Line{Op: OpAdd, Text: raw[1:]}
		case raw == "":
			// Some producers strip the single space from empty context
			// lines. Accept the bare line while counts remain.
			ln = Line{Op: OpContext, Text: ""}
		default:
			return Hunk{}, 0, parseError("hunk %q body line %q has no valid prefix", lines[start], raw)
		}

		switch ln.Op {
		case OpContext:
			oldRemaining--
			newRemaining--
		case OpDelete:
			oldRemaining--
		case OpAdd:
			newRemaining--
		}
		if oldRemaining < 0 || newRemaining < 0 {
			return Hunk{}, 0, parseError("hunk %q body exceeds its declared line counts", lines[start])
		}
		hunk.Lines = append(hunk.Lines, ln)
		hunk.RawLines = append(hunk.RawLines, raw)
		i++
	}

	// Trailing no-newline marker belongs to this hunk.
	if i < len(lines) && lines[i] == `\ No newline at end of file` {
		i++
	}
	return hunk, i, nil
}

// parseHunkHeader parses "@@ -<oldStart>,<oldCount> +<newStart>,<newCount> @@"
// with the usual shorthand of a missing count meaning 1.
func parseHunkHeader(header string) (Hunk, error) {
	rest, ok := strings.CutPrefix(header, "@@ -")
	if !ok {
		return Hunk{}, parseError("malformed hunk header %q", header)
	}
	oldPart, rest, ok := strings.Cut(rest, " +")
	if !ok {
		return Hunk{}, parseError("malformed hunk header %q", header)
	}
	newPart, _, ok := strings.Cut(rest, " @@")
	if !ok {
		return Hunk{}, parseError("malformed hunk header %q", header)
	}

	oldStart, oldCount, err := parseRange(oldPart)
	if err != nil {
		return Hunk{}, parseError("malformed hunk header %q: %v", header, err)
	}
	newStart, newCount, err := parseRange(newPart)
	if err != nil {
		return Hunk{}, parseError("malformed hunk header %q: %v", header, err)
	}
	return Hunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}, nil
}

func parseRange(part string) (start, count int, err error) {
	startText, countText, hasCount := strings.Cut(part, ",")
	start, err = strconv.Atoi(startText)
	if err != nil {
		return 0, 0, err
	}
	if !hasCount {
		return start, 1, nil
	}
	count, err = strconv.Atoi(countText)
	if err != nil {
		return 0, 0, err
	}
	return start, count, nil
}

// parseHeaderPath extracts the path from a ---/+++ header value, dropping
// the optional timestamp that diff tooling appends after a tab.
func parseHeaderPath(value string) string {
	if tab := strings.IndexByte(value, '\t'); tab >= 0 {
		value = value[:tab]
	}
	return strings.TrimSpace(value)
}

func displayPath(p Patch) string {
	if p.NewPath != "" && p.NewPath != NonExistent {
		return p.NewPath
	}
	return p.OldPath
}

func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
