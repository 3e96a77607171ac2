// Package changeset decodes the JSON envelope some producers use to hand
// over file changes: each entry carries either a unified diff or a
// whole-file replacement. Payloads are validated against a JSON schema
// before anything touches the filesystem.
package changeset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/asynkron/applydiff/pkg/patch"
)

var (
	schemaLoader     gojsonschema.JSONLoader
	schemaLoaderOnce sync.Once
)

// Change is one entry of the envelope. Exactly one of Diff and Content is
// set; the schema enforces this before decoding.
type Change struct {
	Path    string `json:"path"`
	Diff    string `json:"diff,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChangeSet is the decoded envelope.
type ChangeSet struct {
	Changes []Change `json:"changes"`
}

type validationError struct {
	issues []string
}

func (e validationError) Error() string {
	if len(e.issues) == 0 {
		return "changeset failed schema validation"
	}
	return strings.Join(e.issues, "; ")
}

// Parse validates raw against the changeset schema and decodes it.
func Parse(raw string) (*ChangeSet, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var cs ChangeSet
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return nil, fmt.Errorf("changeset: decode payload: %w", err)
	}
	return &cs, nil
}

func validate(raw string) error {
	schemaLoaderOnce.Do(func() {
		schemaLoader = gojsonschema.NewGoLoader(Schema())
	})

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("changeset: schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return validationError{issues: issues}
}

// Apply executes the changeset against baseDir. Diff entries are
// concatenated and applied as a single atomic transaction, so a context
// mismatch in any of them leaves every file untouched. Content entries
// are direct overwrites with no rollback semantics and run only after the
// transactional part succeeds.
func Apply(cs *ChangeSet, baseDir string, opts patch.Options) ([]patch.Result, error) {
	var diffParts []string
	var overwrites []Change
	for _, change := range cs.Changes {
		if change.Diff != "" {
			diffParts = append(diffParts, change.Diff)
			continue
		}
		overwrites = append(overwrites, change)
	}

	var results []patch.Result
	if len(diffParts) > 0 {
		applied, err := patch.Apply(strings.Join(diffParts, "\n"), baseDir, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, applied...)
	}

	for _, change := range overwrites {
		target, err := resolveOverwrite(change.Path, baseDir, opts.StrictPaths)
		if err != nil {
			return nil, err
		}
		if err := patch.Overwrite(target, change.Content); err != nil {
			return nil, err
		}
		results = append(results, patch.Result{Status: "M", Path: filepath.ToSlash(filepath.Clean(change.Path))})
	}
	return results, nil
}

func resolveOverwrite(rel, baseDir string, strict bool) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("changeset: resolve base directory: %w", err)
	}
	abs := filepath.Clean(filepath.Join(base, filepath.FromSlash(rel)))
	if strict {
		within, werr := filepath.Rel(base, abs)
		if werr != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("changeset: target %s escapes the base directory", rel)
		}
	}
	return abs, nil
}
