package service

import (
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	TurnBased      bool               `json:"turn_based"`
	Status         engine.Status      `json:"status"`
	Score          int                `json:"score"`
	Lines          int                `json:"lines"`
	Level          int                `json:"level"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot   `json:"snapshot,omitempty"`
	GameConfig     *engine.GameConfig `json:"game_config,omitempty"`
}

// CommandResult contains the outcome of a single command
type CommandResult struct {
	Command  string           `json:"command"`
	Applied  bool             `json:"applied"`
	Message  string           `json:"message"`
	Events   []engine.Event   `json:"events,omitempty"`
	Snapshot *engine.Snapshot `json:"snapshot"`
}

// BulkCommandResult contains the outcome of a command batch
type BulkCommandResult struct {
	RequestedCommands int              `json:"requested_commands"`
	CommandsExecuted  int              `json:"commands_executed"`
	CommandsApplied   int              `json:"commands_applied"`
	Events            []engine.Event   `json:"events"`
	StoppedReason     string           `json:"stopped_reason,omitempty"`
	StopReasonCode    string           `json:"stop_reason_code,omitempty"` // game_over|unknown_command|not_allowed
	StoppedOnCommand  int              `json:"stopped_on_command,omitempty"`
	Truncated         bool             `json:"truncated,omitempty"`
	Limit             int              `json:"limit,omitempty"`
	ScoreDelta        int              `json:"score_delta"`
	LinesDelta        int              `json:"lines_delta"`
	GameOver          bool             `json:"game_over"`
	Snapshot          *engine.Snapshot `json:"snapshot"`
}

// ConfigInfo provides information about a preset
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	TurnBased   bool   `json:"turn_based"`
	Scripted    bool   `json:"scripted"`
}
