package core

// Segment maps a contiguous range of synthetic lines back to one cell.
type Segment struct {
	// Start and End delimit the synthetic line range (1-based,
	// inclusive). End < Start for an empty cell.
	Start int
	End   int
	// Cell is the cell index in the notebook (0-based).
	Cell int
	// Ordinal is the 1-based position among the code cells of the
	// notebook. Diagnostics and exclusion rules use this numbering.
	Ordinal int
	// CellStart is the line-in-cell corresponding to Start (0-based).
	CellStart int
	// Magic records, per synthetic line, whether the line was
	// magic-encoded. Reconstruction checks every encoded line is
	// restored.
	Magic []bool
	// TrailingSemicolon records that the final statement of the cell
	// ended with ";" (Jupyter's output suppression). A formatter may
	// strip it; reconstruction puts it back.
	TrailingSemicolon bool
}

// MagicCount returns the number of magic-encoded lines of the segment.
func (s *Segment) MagicCount() int {
	count := 0
	for _, isMagic := range s.Magic {
		if isMagic {
			count++
		}
	}
	return count
}

// PositionMap is the ordered index between synthetic-file lines and
// (cell, line) coordinates. Segments never overlap and appear in the
// same order as their source cells; boundary markers are never
// attributed to a cell.
type PositionMap struct {
	segments []Segment
}

func (m *PositionMap) Append(segment Segment) {
	m.segments = append(m.segments, segment)
}

func (m *PositionMap) Segments() []Segment {
	return m.segments
}

// Empty reports whether no cell contributed to the synthetic file.
func (m *PositionMap) Empty() bool {
	return len(m.segments) == 0
}

// Lookup finds the segment owning a synthetic line and the 0-based
// line-in-cell it corresponds to. Marker lines and out-of-range lines
// belong to no segment.
func (m *PositionMap) Lookup(line int) (*Segment, int, bool) {
	for i := range m.segments {
		segment := &m.segments[i]
		if line >= segment.Start && line <= segment.End {
			return segment, segment.CellStart + (line - segment.Start), true
		}
	}
	return nil, 0, false
}
