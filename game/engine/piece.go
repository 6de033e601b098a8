package engine

// Piece is a shape kind in one of its rotation states. It is a value type;
// rotating produces a new Piece.
type Piece struct {
	Kind     Kind
	Rotation int
}

// NewPiece returns k in rotation state 0
func NewPiece(k Kind) Piece {
	return Piece{Kind: k}
}

// Cells returns the occupied cells in the piece's local frame
func (p Piece) Cells() [4]GridPoint {
	states := p.Kind.rotations()
	if len(states) == 0 {
		return [4]GridPoint{}
	}
	return states[mod(p.Rotation, len(states))]
}

// CellsAt returns the board cells the piece covers when anchored at origin
func (p Piece) CellsAt(origin GridPoint) [4]GridPoint {
	cells := p.Cells()
	for i := range cells {
		cells[i] = cells[i].Add(origin)
	}
	return cells
}

// Rotated returns the piece advanced by one rotation state
func (p Piece) Rotated() Piece {
	count := p.Kind.RotationCount()
	if count == 0 {
		return p
	}
	return Piece{Kind: p.Kind, Rotation: mod(p.Rotation+1, count)}
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
