package patch

import (
	"os"
	"path/filepath"
)

// Overwrite writes content verbatim to path, creating parent directories
// as needed and replacing any existing file. It is the escape hatch for
// producers that supply a whole-file result instead of a diff: a direct,
// non-transactional write with no backup or rollback semantics.
func Overwrite(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioError(path, "failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ioError(path, "failed to write %s: %v", path, err)
	}
	return nil
}
