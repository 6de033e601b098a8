package engine

import "strings"

// Render symbols used by Snapshot.Render
const (
	SymbolEmpty  = '.'
	SymbolActive = '@'
	SymbolGhost  = '+'
)

// Render draws the board as text, one string per row. Locked cells show the
// letter of their kind.
func (s *Snapshot) Render() []string {
	rows := make([]string, Rows)
	var b strings.Builder
	for y := 0; y < Rows; y++ {
		b.Reset()
		for x := 0; x < Columns; x++ {
			cell := s.Cells[y][x]
			switch cell.Type {
			case CellLocked:
				b.WriteString(cell.Kind.String())
			case CellActive:
				b.WriteRune(SymbolActive)
			case CellGhost:
				b.WriteRune(SymbolGhost)
			default:
				b.WriteRune(SymbolEmpty)
			}
		}
		rows[y] = b.String()
	}
	return rows
}

// LockedGrid rebuilds the grid of locked cells the snapshot was taken from
func (s *Snapshot) LockedGrid() Grid {
	var g Grid
	for y := 0; y < Rows; y++ {
		for x := 0; x < Columns; x++ {
			if cell := s.Cells[y][x]; cell.Type == CellLocked {
				g.cells[y][x] = cell.Kind
			}
		}
	}
	return g
}

// Piece returns the active piece and its origin, if there is one
func (s *Snapshot) Piece() (Piece, GridPoint, bool) {
	if s.Active == nil {
		return Piece{}, GridPoint{}, false
	}
	return Piece{Kind: s.Active.Kind, Rotation: s.Active.Rotation}, s.Active.Origin, true
}
