package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nbrun/nbrun/internal/magic"
	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/pkg/text"
)

// CellFilter decides whether an eligible code cell enters the
// synthetic file. Excluded cells are not represented at all, so
// diagnostics can never reference them. ordinal is the 1-based
// position among the code cells of the notebook.
type CellFilter func(index, ordinal int, cell *notebook.Cell) bool

// Linearized is the synthetic source built from the selected cells of
// one notebook, together with the index recovering their structure.
type Linearized struct {
	Text string
	Map  *PositionMap
}

// Empty reports that no eligible code cell was found: nothing to do.
func (l *Linearized) Empty() bool {
	return l.Map.Empty()
}

// Linearize concatenates the code cells accepted by the filter into a
// single synthetic source text. Every line goes through the magic
// codec; after each cell a boundary marker records the cell index and
// its line count. Markers are plain comments so they never affect the
// tool's behavior and survive reformatting.
func Linearize(n *notebook.Notebook, codec *magic.Codec, include CellFilter, token string) *Linearized {
	var lines []string
	positions := &PositionMap{}

	ordinal := 0
	for i, cell := range n.Cells {
		if cell.Type != notebook.TypeCode {
			continue
		}
		ordinal++
		if include != nil && !include(i, ordinal, cell) {
			continue
		}

		segment := Segment{
			Start:   len(lines) + 1,
			Cell:    i,
			Ordinal: ordinal,
		}
		for j, line := range cell.Source {
			encoded, isMagic := codec.EncodeLine(i, j, line)
			lines = append(lines, encoded)
			segment.Magic = append(segment.Magic, isMagic)
		}
		segment.End = len(lines)
		segment.TrailingSemicolon = endsWithSemicolon(cell.Source)
		positions.Append(segment)

		lines = append(lines, marker(token, i, len(cell.Source)))
	}

	if positions.Empty() {
		return &Linearized{Text: "", Map: positions}
	}
	return &Linearized{Text: text.JoinLines(lines), Map: positions}
}

// endsWithSemicolon reports that the last non-blank line of a cell
// ends with ";", the Jupyter convention suppressing the cell output.
func endsWithSemicolon(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		if text.IsBlank(lines[i]) {
			continue
		}
		return strings.HasSuffix(strings.TrimRight(lines[i], " \t"), ";")
	}
	return false
}

// marker emits the boundary comment written after each cell.
func marker(token string, cell, count int) string {
	return fmt.Sprintf("# nbrun-cell[%s]: %d %d", token, cell, count)
}

// parseMarker recognizes a boundary comment, tolerating surrounding
// whitespace a formatter may have normalized.
func parseMarker(token, line string) (cell int, count int, ok bool) {
	re := markerRegexp(token)
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	cell, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	count, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return cell, count, true
}

func markerRegexp(token string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*# nbrun-cell\[` + regexp.QuoteMeta(token) + `\]: (\d+) (\d+)\s*$`)
}
