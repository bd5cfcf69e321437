package core

import (
	"strings"

	"github.com/nbrun/nbrun/internal/magic"
	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/pkg/text"
)

// Reconstruct writes the (possibly tool-modified) synthetic text back
// into the notebook cells it was generated from.
//
// The text is re-split at the boundary markers. The markers recovered
// must match the segments originally written, in number and order: a
// tool that deleted, duplicated, or reordered a marker transformed the
// synthetic file in a way incompatible with the marker scheme, and
// reconstruction refuses to guess. In that case the notebook is left
// exactly as it was.
//
// Blank lines a formatter pushed against a marker, on either side, are
// trimmed from the cell; everything else is restored verbatim, with
// magic lines decoded back to their original text. A cell that ended
// with ";" gets it back on its last statement: the formatter strips
// it, but it suppresses the cell output and is not cosmetic.
func Reconstruct(n *notebook.Notebook, mutated string, positions *PositionMap, codec *magic.Codec, token string) error {
	segments := positions.Segments()

	var chunks [][]string
	var markers []int
	var current []string
	for _, line := range text.SplitLines(mutated) {
		if cell, _, ok := parseMarker(token, line); ok {
			chunks = append(chunks, current)
			markers = append(markers, cell)
			current = nil
			continue
		}
		current = append(current, line)
	}
	// Only blank lines may follow the last marker.
	for _, line := range current {
		if !text.IsBlank(line) {
			return &ReconstructionError{Path: n.Path}
		}
	}

	if len(markers) != len(segments) {
		return &ReconstructionError{Path: n.Path}
	}
	for i, segment := range segments {
		if markers[i] != segment.Cell {
			return &ReconstructionError{Path: n.Path}
		}
	}

	decodedChunks := make([][]string, len(segments))
	for i, segment := range segments {
		chunk := trimBlankEdges(chunks[i])
		decoded := make([]string, 0, len(chunk))
		restoredCount := 0
		for _, line := range chunk {
			restored, wasMagic := codec.DecodeLine(segment.Cell, line)
			if wasMagic {
				restoredCount++
			}
			decoded = append(decoded, restored)
		}
		// Every magic-encoded line must come back. A placeholder the
		// tool deleted or rewrote beyond recognition would otherwise
		// silently drop the user's magic.
		if restoredCount < segment.MagicCount() {
			return &ReconstructionError{Path: n.Path}
		}
		if segment.TrailingSemicolon {
			decoded = restoreTrailingSemicolon(decoded)
		}
		decodedChunks[i] = decoded
	}

	for i, segment := range segments {
		n.Cells[segment.Cell].SetSource(decodedChunks[i])
	}
	return nil
}

func trimBlankEdges(lines []string) []string {
	start := 0
	for start < len(lines) && text.IsBlank(lines[start]) {
		start++
	}
	end := len(lines)
	for end > start && text.IsBlank(lines[end-1]) {
		end--
	}
	return lines[start:end]
}

func restoreTrailingSemicolon(lines []string) []string {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], " \t")
		if text.IsBlank(line) {
			continue
		}
		if strings.HasSuffix(line, ";") || strings.HasPrefix(strings.TrimSpace(line), "#") {
			return lines
		}
		lines[i] = line + ";"
		return lines
	}
	return lines
}
