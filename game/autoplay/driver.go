package autoplay

import (
	"context"

	"github.com/wricardo/blockfall/game/engine"
)

// Game is the part of an engine the driver needs. *engine.GameEngine
// satisfies it.
type Game interface {
	Snapshot() engine.Snapshot
	Apply(engine.Action) ([]engine.Event, bool)
}

// Driver plays a game by replaying planned placements
type Driver struct {
	planner *Planner
	game    Game
}

// NewDriver creates a driver. A nil planner uses DefaultWeights.
func NewDriver(game Game, planner *Planner) *Driver {
	if planner == nil {
		planner = NewPlanner(DefaultWeights)
	}
	return &Driver{planner: planner, game: game}
}

// Step plans the active piece and plays the plan. It reports false when the
// game has no active piece.
func (d *Driver) Step() (Placement, []engine.Event, bool) {
	snap := d.game.Snapshot()
	placement, ok := d.planner.PlanSnapshot(&snap)
	if !ok {
		if snap.Active == nil {
			return Placement{}, nil, false
		}
		// Boxed in at spawn: drop where it stands
		placement = Placement{Kind: snap.Active.Kind, Commands: []engine.Action{engine.ActionHardDrop}}
	}

	var events []engine.Event
	for _, action := range placement.Commands {
		evs, _ := d.game.Apply(action)
		events = append(events, evs...)
	}
	return placement, events, true
}

// Play places up to maxPieces pieces, or until the game ends when maxPieces
// is zero or negative. It returns how many pieces were placed.
func (d *Driver) Play(ctx context.Context, maxPieces int) (int, error) {
	placed := 0
	for maxPieces <= 0 || placed < maxPieces {
		if err := ctx.Err(); err != nil {
			return placed, err
		}
		if _, _, ok := d.Step(); !ok {
			break
		}
		placed++
	}
	return placed, nil
}
