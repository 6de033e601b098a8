package engine

import (
	"fmt"
	"time"
)

// Board dimensions. They are fixed for every game.
const (
	Columns = 10
	Rows    = 20
)

// GridPoint is a cell coordinate. X grows to the right, Y grows downward and
// (0, 0) is the top-left cell of the playfield.
type GridPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the component-wise sum of two points
func (p GridPoint) Add(o GridPoint) GridPoint {
	return GridPoint{X: p.X + o.X, Y: p.Y + o.Y}
}

// Status is the lifecycle state of a game engine
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusGameOver Status = "game_over"
)

// CellType classifies a snapshot cell
type CellType string

const (
	CellEmpty  CellType = "empty"
	CellLocked CellType = "locked"
	CellActive CellType = "active"
	CellGhost  CellType = "ghost"
)

// CellState is the render-facing state of one board cell
type CellState struct {
	Type CellType `json:"type"`
	Kind Kind     `json:"kind,omitempty"`
}

// ActivePiece describes the falling piece inside a snapshot
type ActivePiece struct {
	Kind     Kind      `json:"kind"`
	Rotation int       `json:"rotation"`
	Origin   GridPoint `json:"origin"`
}

// Snapshot is a read-only projection of the engine state
type Snapshot struct {
	Cells           [Rows][Columns]CellState `json:"cells"`
	Status          Status                   `json:"status"`
	Score           int                      `json:"score"`
	Lines           int                      `json:"lines"`
	Level           int                      `json:"level"`
	GameOver        bool                     `json:"game_over"`
	Paused          bool                     `json:"paused"`
	Next            Kind                     `json:"next,omitempty"`
	Active          *ActivePiece             `json:"active,omitempty"`
	GravityInterval string                   `json:"gravity_interval"`

	// Seq counts committed state changes; a higher Seq is a newer snapshot
	Seq uint64 `json:"seq"`
}

// FormatInterval renders a gravity interval for display, e.g. "0.84s"
func FormatInterval(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
