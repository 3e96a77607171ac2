package patch

import (
	"strings"
	"testing"
)

func TestApplyToMemoryUpdatesDocument(t *testing.T) {
	t.Parallel()

	diffText := strings.Join([]string{
		"--- notes.txt",
		"+++ notes.txt",
		"@@ -1,2 +1,2 @@",
		"-alpha",
		"+gamma",
		" beta",
	}, "\n")

	initial := map[string]string{"notes.txt": "alpha\nbeta\n"}
	updated, results, err := ApplyToMemory(diffText, initial)
	if err != nil {
		t.Fatalf("ApplyToMemory returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != "M" || results[0].Path != "notes.txt" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got, want := updated["notes.txt"], "gamma\nbeta\n"; got != want {
		t.Fatalf("updated document mismatch: got %q want %q", got, want)
	}

	// Ensure the original map was not mutated.
	if got, want := initial["notes.txt"], "alpha\nbeta\n"; got != want {
		t.Fatalf("initial map mutated: got %q want %q", got, want)
	}
}

func TestApplyToMemoryAddsAndDeletesDocuments(t *testing.T) {
	t.Parallel()

	diffText := strings.Join([]string{
		"--- /dev/null",
		"+++ new.txt",
		"@@ -0,0 +1,2 @@",
		"+hello",
		"+world",
		"--- old.txt",
		"+++ /dev/null",
		"@@ -1 +0,0 @@",
		"-stale",
	}, "\n")

	updated, results, err := ApplyToMemory(diffText, map[string]string{"old.txt": "stale\n"})
	if err != nil {
		t.Fatalf("ApplyToMemory returned error: %v", err)
	}
	if len(results) != 2 || results[0].Status != "A" || results[1].Status != "D" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got, want := updated["new.txt"], "hello\nworld\n"; got != want {
		t.Fatalf("new document mismatch: got %q want %q", got, want)
	}
	if _, ok := updated["old.txt"]; ok {
		t.Fatalf("deleted document still present")
	}
}

func TestApplyToMemoryRejectsMissingTarget(t *testing.T) {
	t.Parallel()

	diffText := strings.Join([]string{
		"--- absent.txt",
		"+++ absent.txt",
		"@@ -1 +1 @@",
		"-x",
		"+y",
	}, "\n")

	_, _, err := ApplyToMemory(diffText, map[string]string{})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindMissingTarget {
		t.Fatalf("expected KindMissingTarget, got %v", err)
	}
}

func TestApplyToMemoryLeavesInputIntactOnFailure(t *testing.T) {
	t.Parallel()

	diffText := strings.Join([]string{
		"--- doc.txt",
		"+++ doc.txt",
		"@@ -1 +1 @@",
		"-wrong",
		"+right",
	}, "\n")

	initial := map[string]string{"doc.txt": "actual\n"}
	_, _, err := ApplyToMemory(diffText, initial)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindContextMismatch {
		t.Fatalf("expected KindContextMismatch, got %v", err)
	}
	if got := initial["doc.txt"]; got != "actual\n" {
		t.Fatalf("input map mutated: %q", got)
	}
}
