package engine

// Grid holds the locked cells of the board. The zero value is an empty board.
type Grid struct {
	cells [Rows][Columns]Kind
}

// InBounds reports whether p lies on the visible board
func InBounds(p GridPoint) bool {
	return p.X >= 0 && p.X < Columns && p.Y >= 0 && p.Y < Rows
}

// At returns the kind locked at p, or KindNone for empty and out-of-bounds cells
func (g *Grid) At(p GridPoint) Kind {
	if !InBounds(p) {
		return KindNone
	}
	return g.cells[p.Y][p.X]
}

// Set writes k at p. Out-of-bounds points are ignored.
func (g *Grid) Set(p GridPoint, k Kind) {
	if InBounds(p) {
		g.cells[p.Y][p.X] = k
	}
}

// IsOccupied reports whether p is on the board and holds a locked kind
func (g *Grid) IsOccupied(p GridPoint) bool {
	return g.At(p) != KindNone
}

// CanPlace reports whether piece fits when anchored at origin. Cells above the
// board are only checked against the side walls.
func (g *Grid) CanPlace(piece Piece, origin GridPoint) bool {
	for _, c := range piece.CellsAt(origin) {
		if c.X < 0 || c.X >= Columns || c.Y >= Rows {
			return false
		}
		if c.Y >= 0 && g.IsOccupied(c) {
			return false
		}
	}
	return true
}

// Lock writes the piece into the grid and reports whether any of its cells
// were above the board. Those cells are not written.
func (g *Grid) Lock(piece Piece, origin GridPoint) (overflow bool) {
	for _, c := range piece.CellsAt(origin) {
		if c.Y < 0 {
			overflow = true
			continue
		}
		g.Set(c, piece.Kind)
	}
	return overflow
}

// ClearCompletedRows removes every full row, shifts the rows above it down and
// returns how many rows were removed.
func (g *Grid) ClearCompletedRows() int {
	write := Rows - 1
	for read := Rows - 1; read >= 0; read-- {
		if g.rowComplete(read) {
			continue
		}
		if write != read {
			g.cells[write] = g.cells[read]
		}
		write--
	}

	removed := write + 1
	for ; write >= 0; write-- {
		g.cells[write] = [Columns]Kind{}
	}
	return removed
}

// RowComplete reports whether row y is fully occupied
func (g *Grid) RowComplete(y int) bool {
	if y < 0 || y >= Rows {
		return false
	}
	return g.rowComplete(y)
}

func (g *Grid) rowComplete(y int) bool {
	for x := 0; x < Columns; x++ {
		if g.cells[y][x] == KindNone {
			return false
		}
	}
	return true
}

// DropDistance returns how many rows piece can fall from origin before it
// would collide.
func (g *Grid) DropDistance(piece Piece, origin GridPoint) int {
	distance := 0
	for g.CanPlace(piece, origin.Add(GridPoint{Y: distance + 1})) {
		distance++
	}
	return distance
}

// ColumnHeights returns the height of the highest locked cell in every column
func (g *Grid) ColumnHeights() [Columns]int {
	var heights [Columns]int
	for x := 0; x < Columns; x++ {
		for y := 0; y < Rows; y++ {
			if g.cells[y][x] != KindNone {
				heights[x] = Rows - y
				break
			}
		}
	}
	return heights
}

// Holes counts empty cells that have a locked cell somewhere above them
func (g *Grid) Holes() int {
	holes := 0
	for x := 0; x < Columns; x++ {
		covered := false
		for y := 0; y < Rows; y++ {
			switch {
			case g.cells[y][x] != KindNone:
				covered = true
			case covered:
				holes++
			}
		}
	}
	return holes
}
