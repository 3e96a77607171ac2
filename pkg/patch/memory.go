package patch

import (
	"fmt"
	"path/filepath"
)

// ApplyToMemory applies diffText against an in-memory document store
// represented by a map of relative path to content. The provided map is
// copied before mutation and the updated snapshot is returned, which makes
// the whole-diff atomicity trivial: on any failure the caller simply keeps
// its original map.
//
// The same parser, resolver, and hunk algorithm run here as on the
// filesystem, so ApplyToMemory doubles as the dry-run path.
func ApplyToMemory(diffText string, files map[string]string) (map[string]string, []Result, error) {
	patches, err := Parse(diffText)
	if err != nil {
		return nil, nil, err
	}

	snapshot := make(map[string]string, len(files))
	for k, v := range files {
		snapshot[k] = v
	}

	results := make([]Result, 0, len(patches))
	for _, p := range patches {
		rel, class, rerr := resolveRelative(p)
		if rerr != nil {
			return nil, nil, rerr
		}
		key := filepath.ToSlash(rel)

		content, exists := snapshot[key]
		if !exists && class != ClassCreate {
			return nil, nil, &Error{
				Kind:         KindMissingTarget,
				RelativePath: key,
				Message:      fmt.Sprintf("target file %s does not exist for patching", key),
			}
		}

		updated, aerr := applyHunks(key, contentToLines(content), p.Hunks)
		if aerr != nil {
			return nil, nil, aerr
		}

		switch class {
		case ClassDelete:
			delete(snapshot, key)
			results = append(results, Result{Status: "D", Path: key})
		case ClassCreate:
			snapshot[key] = joinLines(updated)
			results = append(results, Result{Status: "A", Path: key})
		default:
			snapshot[key] = joinLines(updated)
			results = append(results, Result{Status: "M", Path: key})
		}
	}
	return snapshot, results, nil
}
