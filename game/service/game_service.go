package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrCommandNotAllowed = errors.New("command not allowed")

	// Returned by ConfigManager implementations
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// MaxBulkCommands caps the commands executed by one BulkCommand call
const MaxBulkCommands = 50

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game lifecycle
	Start(ctx context.Context, sessionID string) (*CommandResult, error)
	Stop(ctx context.Context, sessionID string) (*CommandResult, error)
	Restart(ctx context.Context, sessionID string) (*CommandResult, error)

	// Game Operations
	Command(ctx context.Context, sessionID, command string) (*CommandResult, error)
	BulkCommand(ctx context.Context, sessionID string, commands []string) (*BulkCommandResult, error)

	// Game State
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles preset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Notifier receives live updates for a session
type Notifier interface {
	PublishSnapshot(sessionID string, snap *engine.Snapshot)
	PublishEvent(sessionID string, ev engine.Event)
}

// Session represents an active game session. Sessions are shared between
// requests and must not be copied.
type Session struct {
	ID        string
	ConfigID  string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	CreatedAt time.Time

	lastAccessed atomic.Int64
}

// LastAccessedAt returns when the session was last used
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}

// Touch records a use of the session at t
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}
