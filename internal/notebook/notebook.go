package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Cell types defined by the Jupyter notebook format.
const (
	TypeCode     = "code"
	TypeMarkdown = "markdown"
	TypeRaw      = "raw"
)

// ParseError reports a file that cannot be loaded as a valid notebook.
// The message is part of the CLI contract.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing %s", e.Path)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Notebook is an ordered sequence of cells plus opaque metadata.
// Every field not touched by a run round-trips unchanged: cells are
// kept as raw JSON and only the source of rewritten cells is rebuilt.
type Notebook struct {
	Path  string
	Cells []*Cell

	raw []byte
	doc map[string]json.RawMessage
}

// Raw returns the file content as read, before any mutation.
func (n *Notebook) Raw() []byte {
	return n.raw
}

// Cell is one unit of notebook content. Source holds the logical lines
// without line terminators; per-cell metadata (outputs, execution
// count) stays in fields and is never interpreted.
type Cell struct {
	Type   string
	Source []string

	fields          map[string]json.RawMessage
	trailingNewline bool
	changed         bool
}

// Parse reads a notebook file.
func Parse(path string) (*Notebook, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n, err := ParseBytes(content)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	n.Path = path
	n.raw = content
	return n, nil
}

// ParseBytes reads a notebook document from memory.
func ParseBytes(content []byte) (*Notebook, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, err
	}

	var rawCells []map[string]json.RawMessage
	if cells, ok := doc["cells"]; ok {
		if err := json.Unmarshal(cells, &rawCells); err != nil {
			return nil, err
		}
	}

	n := &Notebook{doc: doc}
	for _, fields := range rawCells {
		cell := &Cell{fields: fields}

		if raw, ok := fields["cell_type"]; ok {
			if err := json.Unmarshal(raw, &cell.Type); err != nil {
				return nil, err
			}
		}
		if cell.Type == "" {
			return nil, fmt.Errorf("cell without cell_type")
		}

		source, trailing, err := parseSource(fields["source"])
		if err != nil {
			return nil, err
		}
		cell.Source = source
		cell.trailingNewline = trailing

		n.Cells = append(n.Cells, cell)
	}
	return n, nil
}

// parseSource accepts the two encodings allowed by the format:
// a list of lines (each except possibly the last terminated by "\n")
// or a single string.
func parseSource(raw json.RawMessage) ([]string, bool, error) {
	if raw == nil {
		return nil, false, nil
	}

	var joined string
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil, false, fmt.Errorf("unsupported cell source: %w", err)
		}
	} else {
		joined = strings.Join(parts, "")
	}

	if joined == "" {
		return nil, false, nil
	}
	trailing := strings.HasSuffix(joined, "\n")
	lines := strings.Split(strings.TrimSuffix(joined, "\n"), "\n")
	return lines, trailing, nil
}

// SetSource replaces the source of a cell, preserving every other attribute.
func (c *Cell) SetSource(lines []string) {
	if equalLines(c.Source, lines) {
		return
	}
	c.Source = lines
	c.changed = true
}

// Changed reports whether any cell source was rewritten since parsing.
func (n *Notebook) Changed() bool {
	for _, cell := range n.Cells {
		if cell.changed {
			return true
		}
	}
	return false
}

// MarshalBytes serializes the notebook in the canonical nbformat
// layout (one-space indent, no HTML escaping). Untouched cells are
// re-emitted from their original raw fields.
func (n *Notebook) MarshalBytes() ([]byte, error) {
	cells := make([]map[string]json.RawMessage, 0, len(n.Cells))
	for _, cell := range n.Cells {
		fields := cell.fields
		if cell.changed {
			fields = make(map[string]json.RawMessage, len(cell.fields))
			for k, v := range cell.fields {
				fields[k] = v
			}
			encoded, err := marshalSource(cell.Source, cell.trailingNewline)
			if err != nil {
				return nil, err
			}
			fields["source"] = encoded
		}
		cells = append(cells, fields)
	}

	doc := make(map[string]json.RawMessage, len(n.doc))
	for k, v := range n.doc {
		doc[k] = v
	}
	encodedCells, err := marshalJSON(cells)
	if err != nil {
		return nil, err
	}
	doc["cells"] = encodedCells

	return marshalIndented(doc)
}

// Save rewrites the notebook file in place.
func (n *Notebook) Save() error {
	content, err := n.MarshalBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(n.Path, content, 0644)
}

// marshalSource re-encodes lines using the multiline convention:
// the joined text is split after every "\n".
func marshalSource(lines []string, trailingNewline bool) (json.RawMessage, error) {
	joined := strings.Join(lines, "\n")
	if trailingNewline {
		joined += "\n"
	}
	var parts []string
	for joined != "" {
		i := strings.IndexByte(joined, '\n')
		if i < 0 {
			parts = append(parts, joined)
			break
		}
		parts = append(parts, joined[:i+1])
		joined = joined[i+1:]
	}
	if parts == nil {
		parts = []string{}
	}
	return marshalJSON(parts)
}

func marshalJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func marshalIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", " ")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
