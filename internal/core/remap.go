package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// regexDiagnostic matches the common diagnostic family
// <path>:<line>[:<col>][:] <message>. The column is optional
// throughout: some tools only report line-level positions.
var regexDiagnostic = regexp.MustCompile(`^([^:]+):(\d+)(?::(\d+))?((?::| |$).*)$`)

// Remapper rewrites the diagnostics of one tool run so they reference
// original (cell, line) coordinates instead of synthetic-file ones.
type Remapper struct {
	tool         string
	notebookPath string
	synthetic    map[string]bool
	spellings    []string
	positions    *PositionMap
}

func NewRemapper(tool, notebookPath, syntheticPath string, positions *PositionMap) *Remapper {
	paths := map[string]bool{syntheticPath: true}
	if abs, err := filepath.Abs(syntheticPath); err == nil {
		paths[abs] = true
	}
	spellings := make([]string, 0, len(paths))
	for path := range paths {
		spellings = append(spellings, path)
	}
	// Replace the longest spelling first so the shorter one never
	// truncates it.
	sort.Slice(spellings, func(i, j int) bool {
		return len(spellings[i]) > len(spellings[j])
	})
	return &Remapper{
		tool:         tool,
		notebookPath: notebookPath,
		synthetic:    paths,
		spellings:    spellings,
		positions:    positions,
	}
}

// RemapLine rewrites a single output line. Lines that do not look like
// a diagnostic, or that reference another file, pass through verbatim.
// A diagnostic landing on a boundary marker or outside every segment
// is an internal inconsistency and aborts the run with a RemapError
// instead of guessing a mapping.
func (r *Remapper) RemapLine(line string) (string, error) {
	m := regexDiagnostic.FindStringSubmatch(line)
	if m == nil || !r.synthetic[m[1]] {
		// Some tools mention the file outside the diagnostic pattern
		// ("reformatted <path>"). Keep those readable too.
		for _, spelling := range r.spellings {
			line = strings.ReplaceAll(line, spelling, r.notebookPath)
		}
		return line, nil
	}

	reported, err := strconv.Atoi(m[2])
	if err != nil {
		return line, nil
	}
	segment, lineInCell, ok := r.positions.Lookup(reported)
	if !ok {
		return "", &RemapError{
			Tool:     r.tool,
			Notebook: r.notebookPath,
			Cause:    fmt.Sprintf("Unexpected line number %d", reported),
		}
	}

	rewritten := fmt.Sprintf("%s:cell_%d:%d", r.notebookPath, segment.Ordinal, lineInCell+1)
	if m[3] != "" {
		rewritten += ":" + m[3]
	}
	return rewritten + m[4], nil
}

// RemapOutput rewrites a whole output stream, preserving the original
// line ordering.
func (r *Remapper) RemapOutput(output string) (string, error) {
	if output == "" {
		return "", nil
	}
	var result strings.Builder
	trailingNewline := strings.HasSuffix(output, "\n")
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	for i, line := range lines {
		rewritten, err := r.RemapLine(line)
		if err != nil {
			return "", err
		}
		result.WriteString(rewritten)
		if i < len(lines)-1 || trailingNewline {
			result.WriteString("\n")
		}
	}
	return result.String(), nil
}
