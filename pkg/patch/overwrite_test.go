package patch

import (
	"path/filepath"
	"testing"
)

func TestOverwriteCreatesFileWithParents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "file.txt")

	if err := Overwrite(path, "full content\n"); err != nil {
		t.Fatalf("Overwrite returned error: %v", err)
	}
	if got := readFixture(t, path); got != "full content\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestOverwriteReplacesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "file.txt", "before\n")

	if err := Overwrite(path, "after\n"); err != nil {
		t.Fatalf("Overwrite returned error: %v", err)
	}
	if got := readFixture(t, path); got != "after\n" {
		t.Fatalf("content not replaced: %q", got)
	}
}
