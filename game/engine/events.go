package engine

// EventType names something that happened inside the engine
type EventType string

const (
	EventMove      EventType = "move"
	EventSoftDrop  EventType = "soft_drop"
	EventHardDrop  EventType = "hard_drop"
	EventRotate    EventType = "rotate"
	EventSpawn     EventType = "spawn"
	EventLock      EventType = "lock"
	EventLineClear EventType = "line_clear"
	EventGameOver  EventType = "game_over"
)

// Event describes one successful engine action. Rows and Level are set for
// line clears, Distance for hard drops.
type Event struct {
	Type     EventType `json:"type"`
	Kind     Kind      `json:"kind,omitempty"`
	Origin   GridPoint `json:"origin"`
	Rows     int       `json:"rows,omitempty"`
	Level    int       `json:"level,omitempty"`
	Distance int       `json:"distance,omitempty"`
	Seq      uint64    `json:"seq,omitempty"`
}

// EventSink receives engine events after the engine lock has been released
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

// HandleEvent calls f(ev)
func (f EventSinkFunc) HandleEvent(ev Event) {
	f(ev)
}

type discardSink struct{}

func (discardSink) HandleEvent(Event) {}

// Action is a player or scheduler command understood by GameEngine.Apply
type Action string

const (
	ActionMoveLeft  Action = "left"
	ActionMoveRight Action = "right"
	ActionSoftDrop  Action = "soft_drop"
	ActionHardDrop  Action = "hard_drop"
	ActionRotate    Action = "rotate"
	ActionTick      Action = "tick"
)

// Actions lists every action in a stable order
var Actions = []Action{ActionMoveLeft, ActionMoveRight, ActionSoftDrop, ActionHardDrop, ActionRotate, ActionTick}

// ParseAction resolves a command name, accepting a few common aliases
func ParseAction(s string) (Action, bool) {
	switch s {
	case "left", "move_left", "l":
		return ActionMoveLeft, true
	case "right", "move_right", "r":
		return ActionMoveRight, true
	case "soft_drop", "down", "d":
		return ActionSoftDrop, true
	case "hard_drop", "drop", "space":
		return ActionHardDrop, true
	case "rotate", "up", "u":
		return ActionRotate, true
	case "tick":
		return ActionTick, true
	}
	return "", false
}
