package autoplay

import (
	"math"

	"github.com/wricardo/blockfall/game/engine"
)

// Weights scores a board after a placement. Positive terms are rewarded,
// negative ones penalized.
type Weights struct {
	AggregateHeight float64 `json:"aggregate_height"`
	CompletedLines  float64 `json:"completed_lines"`
	Holes           float64 `json:"holes"`
	Bumpiness       float64 `json:"bumpiness"`
}

// DefaultWeights is a well-known set tuned for single-piece lookahead
var DefaultWeights = Weights{
	AggregateHeight: -0.510066,
	CompletedLines:  0.760666,
	Holes:           -0.35663,
	Bumpiness:       -0.184483,
}

// overflowPenalty ranks placements that end the game below everything else
const overflowPenalty = -1e9

// Placement is a reachable resting position for the active piece and the
// commands that reach it from where the piece is now.
type Placement struct {
	Kind      engine.Kind      `json:"kind"`
	Rotation  int              `json:"rotation"`
	Origin    engine.GridPoint `json:"origin"`
	Lines     int              `json:"lines"`
	Holes     int              `json:"holes"`
	Height    int              `json:"aggregate_height"`
	Bumpiness int              `json:"bumpiness"`
	Score     float64          `json:"score"`
	Overflow  bool             `json:"overflow,omitempty"`
	Commands  []engine.Action  `json:"commands"`
}

// Planner picks placements greedily, one piece at a time
type Planner struct {
	weights Weights
}

// NewPlanner creates a planner with the given weights
func NewPlanner(weights Weights) *Planner {
	return &Planner{weights: weights}
}

// Weights returns the planner's weights
func (p *Planner) Weights() Weights {
	return p.weights
}

// PlanSnapshot plans the active piece of a snapshot
func (p *Planner) PlanSnapshot(snap *engine.Snapshot) (Placement, bool) {
	piece, origin, ok := snap.Piece()
	if !ok {
		return Placement{}, false
	}
	return p.Plan(snap.LockedGrid(), piece, origin)
}

// Plan returns the best placement for piece, currently anchored at origin.
// Only placements reachable by rotating in place, then shifting sideways,
// then hard dropping are considered, so the commands replay exactly as long
// as gravity does not move the piece in between.
func (p *Planner) Plan(grid engine.Grid, piece engine.Piece, origin engine.GridPoint) (Placement, bool) {
	var (
		best  Placement
		found bool
	)

	rotated := piece
	for turns := 0; turns < piece.Kind.RotationCount(); turns++ {
		if turns > 0 {
			rotated = rotated.Rotated()
			if !grid.CanPlace(rotated, origin) {
				break
			}
		}

		for _, dir := range []int{0, -1, 1} {
			for steps := 0; ; steps++ {
				if dir == 0 && steps > 0 {
					break
				}
				at := origin.Add(engine.GridPoint{X: dir * steps})
				if !grid.CanPlace(rotated, at) {
					break
				}
				if dir != 0 && steps == 0 {
					continue
				}

				candidate := p.evaluate(grid, rotated, at)
				if !found || candidate.Score > best.Score {
					candidate.Commands = commandsFor(turns, dir, steps)
					best, found = candidate, true
				}
			}
		}
	}
	return best, found
}

// evaluate drops piece from at and scores the resulting board
func (p *Planner) evaluate(grid engine.Grid, piece engine.Piece, at engine.GridPoint) Placement {
	landing := at.Add(engine.GridPoint{Y: grid.DropDistance(piece, at)})

	board := grid
	overflow := board.Lock(piece, landing)
	lines := 0
	if !overflow {
		lines = board.ClearCompletedRows()
	}

	heights := board.ColumnHeights()
	aggregate, bumpiness := 0, 0
	for x, h := range heights {
		aggregate += h
		if x > 0 {
			bumpiness += int(math.Abs(float64(h - heights[x-1])))
		}
	}
	holes := board.Holes()

	score := p.weights.AggregateHeight*float64(aggregate) +
		p.weights.CompletedLines*float64(lines) +
		p.weights.Holes*float64(holes) +
		p.weights.Bumpiness*float64(bumpiness)
	if overflow {
		score += overflowPenalty
	}

	return Placement{
		Kind:      piece.Kind,
		Rotation:  piece.Rotation,
		Origin:    landing,
		Lines:     lines,
		Holes:     holes,
		Height:    aggregate,
		Bumpiness: bumpiness,
		Score:     score,
		Overflow:  overflow,
	}
}

func commandsFor(turns, dir, steps int) []engine.Action {
	commands := make([]engine.Action, 0, turns+steps+1)
	for i := 0; i < turns; i++ {
		commands = append(commands, engine.ActionRotate)
	}
	shift := engine.ActionMoveRight
	if dir < 0 {
		shift = engine.ActionMoveLeft
	}
	for i := 0; i < steps; i++ {
		commands = append(commands, shift)
	}
	return append(commands, engine.ActionHardDrop)
}

// CommandNames converts actions to the names accepted by the service
func CommandNames(actions []engine.Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return names
}
