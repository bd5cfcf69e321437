package core_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/stretchr/testify/require"
)

// testCell describes a cell of an in-memory notebook fixture.
type testCell struct {
	Type   string
	Source []string
}

// makeNotebook assembles a minimal nbformat document.
func makeNotebook(t *testing.T, cells ...testCell) *notebook.Notebook {
	t.Helper()
	return notebook.MustParse(t, makeNotebookJSON(t, cells...))
}

func makeNotebookJSON(t *testing.T, cells ...testCell) []byte {
	t.Helper()

	type rawCell struct {
		CellType string         `json:"cell_type"`
		Metadata map[string]any `json:"metadata"`
		Source   []string       `json:"source"`
	}
	type rawNotebook struct {
		Cells         []rawCell      `json:"cells"`
		Metadata      map[string]any `json:"metadata"`
		Nbformat      int            `json:"nbformat"`
		NbformatMinor int            `json:"nbformat_minor"`
	}

	doc := rawNotebook{
		Metadata:      map[string]any{},
		Nbformat:      4,
		NbformatMinor: 5,
	}
	for _, cell := range cells {
		source := make([]string, len(cell.Source))
		for i, line := range cell.Source {
			if i < len(cell.Source)-1 {
				line += "\n"
			}
			source[i] = line
		}
		doc.Cells = append(doc.Cells, rawCell{
			CellType: cell.Type,
			Metadata: map[string]any{},
			Source:   source,
		})
	}

	content, err := json.Marshal(doc)
	require.NoError(t, err)
	return content
}

func code(lines ...string) testCell {
	return testCell{Type: notebook.TypeCode, Source: lines}
}

func markdown(lines ...string) testCell {
	return testCell{Type: notebook.TypeMarkdown, Source: lines}
}

func syntheticLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
