package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// backupDirName is where transient backup artifacts live, relative to the
// base directory. Each transaction gets its own subdirectory so concurrent
// or aborted runs never collide.
const backupDirName = ".applydiff/backups"

// backupRecord remembers the pre-mutation state of one file: either a
// snapshot copied into the transaction's backup directory, or the fact
// that the file did not exist.
type backupRecord struct {
	targetPath string
	relPath    string
	backupPath string // empty when the target did not exist
	existed    bool
	mode       fs.FileMode
}

// transaction is the unit of atomicity for one Apply call. It owns its
// backup snapshots exclusively and never outlives the call: discard runs
// on success, rollback followed by discard on failure.
type transaction struct {
	id      string
	dir     string
	records []backupRecord
	seen    map[string]bool
}

func newTransaction(baseDir string) (*transaction, error) {
	id := uuid.NewString()
	dir := filepath.Join(baseDir, filepath.FromSlash(backupDirName), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError("", "failed to create backup directory %s: %v", dir, err)
	}
	return &transaction{id: id, dir: dir, seen: make(map[string]bool)}, nil
}

// snapshot records the current state of target before its first mutation
// in this transaction. Later snapshots of the same path are no-ops so the
// record always holds the pre-transaction content.
func (t *transaction) snapshot(target Target) error {
	if t.seen[target.AbsPath] {
		return nil
	}

	info, err := os.Stat(target.AbsPath)
	switch {
	case err == nil:
		backupPath := filepath.Join(t.dir, fmt.Sprintf("%03d.bak", len(t.records)))
		content, readErr := os.ReadFile(target.AbsPath)
		if readErr != nil {
			return ioError(target.RelPath, "failed to read %s for backup: %v", target.RelPath, readErr)
		}
		if writeErr := os.WriteFile(backupPath, content, 0o600); writeErr != nil {
			return ioError(target.RelPath, "failed to write backup for %s: %v", target.RelPath, writeErr)
		}
		t.records = append(t.records, backupRecord{
			targetPath: target.AbsPath,
			relPath:    target.RelPath,
			backupPath: backupPath,
			existed:    true,
			mode:       info.Mode(),
		})
	case errors.Is(err, fs.ErrNotExist):
		t.records = append(t.records, backupRecord{
			targetPath: target.AbsPath,
			relPath:    target.RelPath,
		})
	default:
		return ioError(target.RelPath, "failed to stat %s: %v", target.RelPath, err)
	}

	t.seen[target.AbsPath] = true
	return nil
}

// rollback restores every recorded file to its pre-transaction state, in
// reverse mutation order. Restoration is best-effort: one failed entry
// does not stop the others, it only surfaces in the joined error.
func (t *transaction) rollback() error {
	var errs []error
	for i := len(t.records) - 1; i >= 0; i-- {
		rec := t.records[i]
		if !rec.existed {
			if err := os.Remove(rec.targetPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", rec.relPath, err))
			}
			continue
		}
		content, err := os.ReadFile(rec.backupPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("read backup for %s: %w", rec.relPath, err))
			continue
		}
		perm := rec.mode & fs.ModePerm
		if perm == 0 {
			perm = 0o644
		}
		if err := os.WriteFile(rec.targetPath, content, perm); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", rec.relPath, err))
		}
	}
	return errors.Join(errs...)
}

// discard removes the transaction's on-disk backup artifacts. It runs on
// both the success and failure paths.
func (t *transaction) discard() {
	_ = os.RemoveAll(t.dir)
	// Drop the shared backup root too when this was the last transaction.
	parent := filepath.Dir(t.dir)
	_ = os.Remove(parent)
	_ = os.Remove(filepath.Dir(parent))
}
