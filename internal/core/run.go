package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	godiffpatch "github.com/sourcegraph/go-diff-patch"
	"golang.org/x/sync/errgroup"

	"github.com/nbrun/nbrun/internal/magic"
	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/runner"
	"github.com/nbrun/nbrun/internal/tools"
	"github.com/nbrun/nbrun/pkg/console"
)

// Options selects what a run does. Values coming from the command line
// override the ones read from the configuration file.
type Options struct {
	Tool         string
	ToolArgs     []string
	Mutate       bool
	Diff         bool
	ExcludeCells string
	Parallel     int
}

// Run processes a set of notebooks with one external tool.
type Run struct {
	options  Options
	registry *tools.Registry
	exec     runner.Runner
	console  *console.Console
}

// NotebookResult collects everything one notebook produced. Output is
// buffered so parallel runs still print in deterministic order.
type NotebookResult struct {
	Path     string
	Stdout   string
	Stderr   string
	ExitCode int
	Patch    string
	// Skipped marks a notebook without any eligible code cell; it
	// produces no output at all.
	Skipped bool
}

func NewRun(options Options, registry *tools.Registry, exec runner.Runner, c *console.Console) *Run {
	return &Run{
		options:  options,
		registry: registry,
		exec:     exec,
		console:  c,
	}
}

// Execute runs the tool over every notebook found under the given
// roots and returns the process exit code.
func (r *Run) Execute(ctx context.Context, roots []string) int {
	if _, err := r.exec.LookPath(r.options.Tool); err != nil {
		missing := &MissingCommandError{
			Tool: r.options.Tool,
			Hint: r.registry.InstallHint(r.options.Tool),
		}
		r.console.Attention("%s", missing.Error())
		if missing.Hint != "" {
			r.console.Error("")
			r.console.Errorf("Please make sure you have it installed in the same environment as nbrun. You could fix this issue by running `pip install %s`.", missing.Hint)
		}
		return 1
	}

	notebooks, err := FindNotebooks(roots)
	if err != nil {
		r.console.Error(err.Error())
		return 1
	}

	config, err := ReadConfigFromDirectory(".")
	if err != nil {
		r.console.Errorf("Invalid configuration file: %v", err)
		return 1
	}
	toolConfig := config.Tool(r.options.Tool)
	toolArgs := append(append([]string{}, toolConfig.Args...), r.options.ToolArgs...)
	mutate := r.options.Mutate || toolConfig.Mutate
	diff := r.options.Diff
	if tool, known := r.registry.Lookup(r.options.Tool); known && !tool.Mutates && (mutate || diff) {
		// A pure linter never rewrites the synthetic file; there is
		// nothing to write back or to diff.
		CurrentLogger().Warnf("%s does not modify files; ignoring the mutation request", r.options.Tool)
		mutate = false
		diff = false
	}

	exclude, err := ParseCellSpec(r.options.ExcludeCells)
	if err != nil {
		r.console.Errorf("Invalid cell exclusion %q: %v", r.options.ExcludeCells, err)
		return 1
	}

	parallel := r.options.Parallel
	if parallel < 1 {
		parallel = 1
	}

	var progress *console.ProgressLog
	var progressMu sync.Mutex
	completed := 0
	if len(notebooks) > 1 {
		progress = r.console.Progress(len(notebooks))
	}

	results := make([]*NotebookResult, len(notebooks))
	errs := make([]error, len(notebooks))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for i, path := range notebooks {
		i, path := i, path
		group.Go(func() error {
			results[i], errs[i] = r.ProcessNotebook(ctx, path, toolArgs, mutate, diff, exclude)
			if progress != nil {
				progressMu.Lock()
				completed++
				progress.Log(completed, filepath.Base(path))
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	if progress != nil {
		progress.Clear("")
	}

	exitCode := 0
	for i := range notebooks {
		if errs[i] != nil {
			r.report(errs[i])
			exitCode = 1
			continue
		}
		result := results[i]
		if result.Skipped {
			continue
		}
		r.console.Write(result.Stdout)
		r.console.WriteError(result.Stderr)
		if result.Patch != "" {
			r.console.Diff(result.Patch)
		}
		if result.ExitCode != 0 && exitCode == 0 {
			exitCode = result.ExitCode
		}
	}
	return exitCode
}

// report renders one failed notebook. Every failure class has a
// user-facing wording; none of them surfaces as a raw internal fault.
func (r *Run) report(err error) {
	switch typed := err.(type) {
	case *RemapError:
		r.console.Attention("%s\nPlease report a bug at %s", typed.Error(), IssueTrackerURL)
	default:
		r.console.Error(err.Error())
	}
}

// ProcessNotebook runs the whole pipeline for a single notebook:
// linearize, invoke the tool, remap its output, and reconstruct the
// cells when mutation is requested. Each notebook owns its synthetic
// file, codec, and position map, so notebooks are safe to process in
// parallel.
func (r *Run) ProcessNotebook(ctx context.Context, path string, toolArgs []string, mutate, diff bool, exclude CellSpec) (*NotebookResult, error) {
	logger := CurrentLogger()

	n, err := notebook.Parse(path)
	if err != nil {
		return nil, err
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	codec := magic.NewCodecWithToken(token)
	filter := r.filter(n, exclude)

	linearized := Linearize(n, codec, filter, token)
	if linearized.Empty() {
		logger.Debugf("no eligible code cell in %s", path)
		return &NotebookResult{Path: path, Skipped: true}, nil
	}
	for _, flagged := range codec.Flagged() {
		logger.Infof("%s: cell %d line %d uses unsupported notebook syntax; the tool may reject it", path, flagged.Cell+1, flagged.Line+1)
	}

	// The synthetic file lives next to the notebook so the tool's own
	// configuration discovery resolves as if it were editing real
	// source.
	syntheticPath, err := writeSyntheticFile(path, token, linearized.Text)
	if err != nil {
		return nil, err
	}
	defer os.Remove(syntheticPath)

	logger.Tracef("running %s on %s", r.options.Tool, syntheticPath)
	invocation, err := r.exec.Run(ctx, r.options.Tool, append(append([]string{}, toolArgs...), syntheticPath)...)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s on %s: %w", r.options.Tool, path, err)
	}

	remapper := NewRemapper(r.options.Tool, path, syntheticPath, linearized.Map)
	result := &NotebookResult{Path: path, ExitCode: invocation.ExitCode}
	if result.Stdout, err = remapper.RemapOutput(invocation.Stdout); err != nil {
		return nil, err
	}
	if result.Stderr, err = remapper.RemapOutput(invocation.Stderr); err != nil {
		return nil, err
	}

	if !mutate && !diff {
		return result, nil
	}

	mutated, err := os.ReadFile(syntheticPath)
	if err != nil {
		return nil, err
	}
	if string(mutated) == linearized.Text {
		// The tool changed nothing. Leave the notebook untouched so
		// repeated runs stay observable no-ops.
		return result, nil
	}
	if err := Reconstruct(n, string(mutated), linearized.Map, codec, token); err != nil {
		return nil, err
	}
	if !n.Changed() {
		return result, nil
	}

	if diff {
		after, err := n.MarshalBytes()
		if err != nil {
			return nil, err
		}
		result.Patch = godiffpatch.GeneratePatch(path, string(n.Raw()), string(after))
		return result, nil
	}

	if err := n.Save(); err != nil {
		return nil, err
	}
	logger.Infof("mutated %s", path)
	return result, nil
}

// filter combines the user exclusions with the cells nbrun excludes on
// its own: cells whose body belongs to another process (%%bash and
// friends) are opaque to a Python tool.
func (r *Run) filter(n *notebook.Notebook, exclude CellSpec) CellFilter {
	total := 0
	for _, cell := range n.Cells {
		if cell.Type == notebook.TypeCode {
			total++
		}
	}
	return func(index, ordinal int, cell *notebook.Cell) bool {
		if exclude.Matches(ordinal, total) {
			return false
		}
		if len(cell.Source) > 0 {
			if name := magic.CellMagicName(cell.Source[0]); name != "" && r.registry.IsProcessMagic(name) {
				return false
			}
		}
		return true
	}
}

func writeSyntheticFile(notebookPath, token, content string) (string, error) {
	dir := filepath.Dir(notebookPath)
	base := strings.TrimSuffix(filepath.Base(notebookPath), ".ipynb")
	path := filepath.Join(dir, fmt.Sprintf(".nbrun_%s_%s.py", base, token))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// FindNotebooks expands files and directories into the list of
// notebooks to process. Directories are walked recursively; checkpoint
// copies are never included.
func FindNotebooks(roots []string) ([]string, error) {
	var notebooks []string
	for _, root := range roots {
		stat, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			if strings.HasSuffix(root, ".ipynb") {
				notebooks = append(notebooks, root)
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == ".ipynb_checkpoints" {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".ipynb") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		notebooks = append(notebooks, found...)
	}

	if len(notebooks) == 0 {
		return nil, &NoInputError{Roots: roots}
	}
	return notebooks, nil
}

// CellSpec is a parsed cell exclusion: 1-based code-cell ordinals plus
// the first/last keywords.
type CellSpec struct {
	ordinals map[int]bool
	first    bool
	last     bool
}

// ParseCellSpec reads a comma-separated exclusion like "1,3,last".
func ParseCellSpec(spec string) (CellSpec, error) {
	result := CellSpec{ordinals: make(map[int]bool)}
	if spec == "" {
		return result, nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "first":
			result.first = true
		case "last":
			result.last = true
		default:
			ordinal, err := strconv.Atoi(part)
			if err != nil || ordinal < 1 {
				return result, fmt.Errorf("%q is not a cell number", part)
			}
			result.ordinals[ordinal] = true
		}
	}
	return result, nil
}

// Matches reports whether a code cell is excluded. total is the number
// of code cells in the notebook.
func (s CellSpec) Matches(ordinal, total int) bool {
	if s.first && ordinal == 1 {
		return true
	}
	if s.last && ordinal == total {
		return true
	}
	return s.ordinals[ordinal]
}
