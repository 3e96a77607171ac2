package patch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Classification tells the applier what a patch does to its target file.
type Classification string

const (
	// ClassCreate writes a file that does not exist yet.
	ClassCreate Classification = "create"
	// ClassModify rewrites an existing file in place.
	ClassModify Classification = "modify"
	// ClassDelete removes an existing file.
	ClassDelete Classification = "delete"
)

// Target is the resolved destination of one patch.
type Target struct {
	// AbsPath is the absolute on-disk path the applier mutates.
	AbsPath string
	// RelPath is the cleaned path relative to the base directory, used
	// for display and result reporting.
	RelPath string
	Class   Classification
}

// Resolve normalizes a patch's header paths against baseDir and classifies
// the patch as create, modify, or delete. A single leading "a/" or "b/"
// prefix is stripped from either side.
//
// When strict is true, targets that resolve outside baseDir (via "../"
// segments or an absolute header path) are rejected with KindInvalidPath.
// When false the resolved path is used as-is, matching the historical
// permissive behavior.
func Resolve(p Patch, baseDir string, strict bool) (Target, error) {
	rel, class, err := resolveRelative(p)
	if err != nil {
		return Target{}, err
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return Target{}, ioError(rel, "failed to resolve base directory %s: %v", baseDir, err)
	}

	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Clean(filepath.Join(base, rel))
	}

	if strict {
		within, werr := filepath.Rel(base, abs)
		if werr != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
			return Target{}, &Error{
				Kind:         KindInvalidPath,
				RelativePath: rel,
				Message:      fmt.Sprintf("target %s escapes the base directory", rel),
			}
		}
	}

	return Target{AbsPath: abs, RelPath: rel, Class: class}, nil
}

// resolveRelative picks the target path and classification from the header
// pair alone. It is shared by the filesystem and in-memory appliers.
func resolveRelative(p Patch) (string, Classification, error) {
	oldPath := stripDiffPrefix(p.OldPath)
	newPath := stripDiffPrefix(p.NewPath)

	var rel string
	var class Classification
	switch {
	case p.IsCreate() && p.IsDelete():
		return "", "", &Error{Kind: KindInvalidPath, Message: "patch has /dev/null on both sides"}
	case p.IsCreate():
		rel, class = newPath, ClassCreate
	case p.IsDelete():
		rel, class = oldPath, ClassDelete
	case newPath != "":
		rel, class = newPath, ClassModify
	default:
		rel, class = oldPath, ClassModify
	}

	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || rel == "." {
		return "", "", &Error{Kind: KindInvalidPath, Message: "patch header yields no usable target path"}
	}
	return rel, class, nil
}

// stripDiffPrefix removes the conventional a/ or b/ prefix that diff
// tooling prepends to header paths. Only a single leading prefix is
// stripped; a path like "a/b/file" keeps "b/file".
func stripDiffPrefix(path string) string {
	if path == NonExistent {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "a/"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(path, "b/"); ok {
		return rest
	}
	return path
}
