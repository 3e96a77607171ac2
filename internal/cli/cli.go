// Package cli wires the diff engine to a command-line surface: flag
// parsing, environment defaults, input loading, and result rendering.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/muesli/termenv"

	"github.com/asynkron/applydiff/internal/changeset"
	"github.com/asynkron/applydiff/internal/tui"
	"github.com/asynkron/applydiff/pkg/patch"
)

// Run executes the applydiff CLI using the provided arguments. It returns
// a POSIX-style exit code: 0 on success, 1 on application failure, 2 on
// usage errors.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return 1
		}
	}

	defaultDir := os.Getenv("APPLYDIFF_BASE_DIR")
	if defaultDir == "" {
		defaultDir = "."
	}
	defaultStrict := true
	if v := strings.ToLower(os.Getenv("APPLYDIFF_STRICT_PATHS")); v == "0" || v == "false" {
		defaultStrict = false
	}

	flagSet := flag.NewFlagSet("applydiff", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	dir := flagSet.String("dir", defaultDir, "base directory the diff is applied under")
	strict := flagSet.Bool("strict-paths", defaultStrict, "reject patch targets that resolve outside the base directory")
	dryRun := flagSet.Bool("dry-run", false, "verify the diff applies cleanly without writing any file")
	interactive := flagSet.Bool("interactive", false, "review the diff in a full-screen view before applying")
	asChangeset := flagSet.Bool("changeset", false, "treat the input as a JSON changeset instead of raw diff text")
	overwrite := flagSet.String("overwrite", "", "write the input verbatim to this path instead of applying a diff")

	if err := flagSet.Parse(args); err != nil {
		return 2
	}

	input, err := readInput(flagSet.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	out := newRenderer(stdout)
	opts := patch.Options{StrictPaths: *strict}

	switch {
	case *overwrite != "":
		target := *overwrite
		if !filepath.IsAbs(target) {
			target = filepath.Join(*dir, target)
		}
		if err := patch.Overwrite(target, input.content); err != nil {
			return fail(stderr, err)
		}
		out.result(patch.Result{Status: "M", Path: *overwrite})
		return 0

	case *asChangeset:
		if *dryRun || *interactive {
			fmt.Fprintln(stderr, "-changeset cannot be combined with -dry-run or -interactive")
			return 2
		}
		cs, err := changeset.Parse(input.content)
		if err != nil {
			return fail(stderr, err)
		}
		results, err := changeset.Apply(cs, *dir, opts)
		if err != nil {
			return fail(stderr, err)
		}
		return out.summary(results)

	case *dryRun:
		results, err := verifyInMemory(input.content, *dir, opts)
		if err != nil {
			return fail(stderr, err)
		}
		for _, r := range results {
			out.result(r)
		}
		fmt.Fprintf(stdout, "Dry run: %d patch(es) would apply cleanly.\n", len(results))
		return 0
	}

	if *interactive {
		if input.fromStdin {
			fmt.Fprintln(stderr, "-interactive requires the diff to come from a file, not stdin")
			return 2
		}
		approved, err := tui.Review(ctx, fmt.Sprintf("applydiff: review changes for %s", *dir), input.content)
		if err != nil {
			return fail(stderr, err)
		}
		if !approved {
			fmt.Fprintln(stdout, "Changes discarded.")
			return 0
		}
	}

	results, err := patch.Apply(input.content, *dir, opts)
	if err != nil {
		return fail(stderr, err)
	}
	return out.summary(results)
}

type cliInput struct {
	content   string
	fromStdin bool
}

// readInput loads the diff or changeset payload from the positional file
// argument, or stdin when the argument is absent or "-".
func readInput(args []string) (cliInput, error) {
	if len(args) > 1 {
		return cliInput{}, fmt.Errorf("expected at most one input file, got %d arguments", len(args))
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return cliInput{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return cliInput{content: string(data), fromStdin: true}, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return cliInput{}, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return cliInput{content: string(data)}, nil
}

// verifyInMemory runs the whole pipeline against file contents loaded
// from disk, so a dry run exercises the exact same verification as a real
// apply without any filesystem effect.
func verifyInMemory(diffText, baseDir string, opts patch.Options) ([]patch.Result, error) {
	patches, err := patch.Parse(diffText)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	for _, p := range patches {
		target, err := patch.Resolve(p, baseDir, opts.StrictPaths)
		if err != nil {
			return nil, err
		}
		if content, readErr := os.ReadFile(target.AbsPath); readErr == nil {
			files[filepath.ToSlash(target.RelPath)] = string(content)
		}
	}

	_, results, err := patch.ApplyToMemory(diffText, files)
	return results, err
}

func fail(stderr io.Writer, err error) int {
	var pe *patch.Error
	if errors.As(err, &pe) {
		fmt.Fprintln(stderr, patch.FormatError(pe))
		return 1
	}
	fmt.Fprintln(stderr, err.Error())
	return 1
}

// renderer writes per-file results, styled when the terminal supports it.
type renderer struct {
	w        io.Writer
	added    lipgloss.Style
	modified lipgloss.Style
	deleted  lipgloss.Style
	plain    bool
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{
		w:        w,
		added:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		modified: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		deleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
	if termenv.ColorProfile() == termenv.Ascii {
		r.plain = true
	}
	return r
}

func (r *renderer) result(res patch.Result) {
	line := fmt.Sprintf("%s %s", res.Status, res.Path)
	if r.plain {
		fmt.Fprintln(r.w, line)
		return
	}
	switch res.Status {
	case "A":
		line = r.added.Render(line)
	case "D":
		line = r.deleted.Render(line)
	default:
		line = r.modified.Render(line)
	}
	fmt.Fprintln(r.w, line)
}

func (r *renderer) summary(results []patch.Result) int {
	for _, res := range results {
		r.result(res)
	}
	fmt.Fprintf(r.w, "Applied %d patch(es) successfully.\n", len(results))
	return 0
}
