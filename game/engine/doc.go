// Package engine provides the core game logic for Blockfall, a falling-block
// puzzle on a fixed 10x20 board.
//
// The engine package implements:
//   - The shape catalog: seven kinds and their rotation states
//   - Collision checks, locking and row clearing on the Grid
//   - Movement, rotation with wall kicks, soft and hard drops
//   - Scoring, leveling and the level-driven gravity interval
//   - Presets (GameConfig) loaded from JSON or YAML
//
// Core Types:
//
// GameEngine is a mutex-guarded state machine (idle, running, game over). It
// is driven by commands and by a GravityClock, draws upcoming kinds from a
// KindSource, publishes Events to an EventSink and exposes a pure Snapshot for
// renderers.
//
// Usage:
//
//	e, err := engine.NewEngine(engine.DefaultGameConfig(),
//		engine.WithEventSink(engine.EventSinkFunc(func(ev engine.Event) {
//			log.Println(ev.Type)
//		})),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	e.Start()
//	e.Rotate()
//	e.HardDrop()
//	snap := e.Snapshot()
//
// Rules:
//
// Pieces spawn at the top of the board, centered, in rotation state 0. A soft
// drop scores one point per row and a hard drop two. Clearing 1 to 4 rows
// scores 100, 300, 500 or 800 times the level. Every ten cleared rows raise
// the level, which shortens the gravity interval from 0.90s down to 0.12s.
// The game ends when a piece locks above the board or a new piece cannot
// spawn.
package engine
