package patch

import (
	"strings"
	"testing"
)

func TestApplyHunksInterleavesContextAndChanges(t *testing.T) {
	t.Parallel()

	original := []string{"one", "two", "three", "four", "five"}
	hunks := []Hunk{{
		OldStart: 2,
		OldCount: 3,
		NewStart: 2,
		NewCount: 3,
		Lines: []Line{
			{Op: OpContext, Text: "two"},
			{Op: OpDelete, Text: "three"},
			{Op: OpAdd, Text: "THREE"},
			{Op: OpContext, Text: "four"},
		},
	}}

	out, err := applyHunks("sample.txt", original, hunks)
	if err != nil {
		t.Fatalf("applyHunks returned error: %v", err)
	}
	if got, want := strings.Join(out, "\n"), "one\ntwo\nTHREE\nfour\nfive"; got != want {
		t.Fatalf("unexpected output: got %q want %q", got, want)
	}
}

func TestApplyHunksPureInsertionAnchorsAfterLine(t *testing.T) {
	t.Parallel()

	original := []string{"alpha", "beta"}
	hunks := []Hunk{{
		OldStart: 1,
		OldCount: 0,
		NewStart: 2,
		NewCount: 1,
		Lines:    []Line{{Op: OpAdd, Text: "inserted"}},
	}}

	out, err := applyHunks("sample.txt", original, hunks)
	if err != nil {
		t.Fatalf("applyHunks returned error: %v", err)
	}
	if got, want := strings.Join(out, "\n"), "alpha\ninserted\nbeta"; got != want {
		t.Fatalf("unexpected output: got %q want %q", got, want)
	}
}

func TestApplyHunksCopiesTrailingLines(t *testing.T) {
	t.Parallel()

	original := []string{"a", "b", "c", "d"}
	hunks := []Hunk{{
		OldStart: 1,
		OldCount: 1,
		NewStart: 1,
		NewCount: 1,
		Lines: []Line{
			{Op: OpDelete, Text: "a"},
			{Op: OpAdd, Text: "A"},
		},
	}}

	out, err := applyHunks("sample.txt", original, hunks)
	if err != nil {
		t.Fatalf("applyHunks returned error: %v", err)
	}
	if got, want := strings.Join(out, "\n"), "A\nb\nc\nd"; got != want {
		t.Fatalf("trailing lines not copied: %q", got)
	}
}

func TestApplyHunksReportsExpectedAndActual(t *testing.T) {
	t.Parallel()

	hunks := []Hunk{{
		OldStart: 1,
		OldCount: 1,
		NewStart: 1,
		NewCount: 1,
		Lines: []Line{
			{Op: OpDelete, Text: "expected line"},
			{Op: OpAdd, Text: "replacement"},
		},
		RawLines: []string{"@@ -1 +1 @@", "-expected line", "+replacement"},
	}}

	_, err := applyHunks("sample.txt", []string{"actual line"}, hunks)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
	if err.Kind != KindContextMismatch {
		t.Fatalf("unexpected kind: %s", err.Kind)
	}
	if err.Expected != "expected line" || err.Actual != "actual line" {
		t.Fatalf("mismatch pair wrong: %q vs %q", err.Expected, err.Actual)
	}
	if err.FailedHunk == nil || len(err.FailedHunk.RawLines) != 3 {
		t.Fatalf("raw hunk lines missing: %+v", err.FailedHunk)
	}
}

func TestApplyHunksRejectsHunkPastEndOfFile(t *testing.T) {
	t.Parallel()

	hunks := []Hunk{{
		OldStart: 10,
		OldCount: 1,
		NewStart: 10,
		NewCount: 1,
		Lines: []Line{
			{Op: OpDelete, Text: "x"},
			{Op: OpAdd, Text: "y"},
		},
	}}

	_, err := applyHunks("sample.txt", []string{"only"}, hunks)
	if err == nil || err.Kind != KindContextMismatch {
		t.Fatalf("expected out-of-range mismatch, got %v", err)
	}
}

func TestApplyHunksRejectsOverlappingHunks(t *testing.T) {
	t.Parallel()

	hunks := []Hunk{
		{
			OldStart: 2,
			OldCount: 2,
			NewStart: 2,
			NewCount: 1,
			Lines: []Line{
				{Op: OpDelete, Text: "b"},
				{Op: OpDelete, Text: "c"},
				{Op: OpAdd, Text: "bc"},
			},
		},
		{
			OldStart: 2,
			OldCount: 1,
			NewStart: 2,
			NewCount: 1,
			Lines: []Line{
				{Op: OpDelete, Text: "b"},
				{Op: OpAdd, Text: "B"},
			},
		},
	}

	_, err := applyHunks("sample.txt", []string{"a", "b", "c", "d"}, hunks)
	if err == nil || err.Kind != KindContextMismatch {
		t.Fatalf("expected overlap rejection, got %v", err)
	}
	if len(err.HunkStatuses) != 2 || err.HunkStatuses[0].Status != "applied" || err.HunkStatuses[1].Status != "no-match" {
		t.Fatalf("unexpected statuses: %+v", err.HunkStatuses)
	}
}

func TestContentToLinesNormalizesTrailingNewline(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "trailing newline", content: "a\nb\n", want: []string{"a", "b"}},
		{name: "no trailing newline", content: "a\nb", want: []string{"a", "b"}},
		{name: "empty", content: "", want: nil},
		{name: "crlf", content: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "blank line preserved", content: "a\n\nb\n", want: []string{"a", "", "b"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := contentToLines(tc.content)
			if len(got) != len(tc.want) {
				t.Fatalf("length mismatch: got %#v want %#v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("line %d mismatch: got %#v want %#v", i, got, tc.want)
				}
			}
		})
	}
}

func TestJoinLinesAppendsSingleTrailingNewline(t *testing.T) {
	t.Parallel()

	if got := joinLines([]string{"a", "b"}); got != "a\nb\n" {
		t.Fatalf("unexpected join: %q", got)
	}
}
