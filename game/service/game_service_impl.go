package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wricardo/blockfall/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *slog.Logger
}

// NewGameService creates a new game service instance. A nil logger falls back
// to slog.Default.
func NewGameService(sessions SessionManager, configs ConfigManager, logger *slog.Logger) GameService {
	if logger == nil {
		logger = slog.Default()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   logger.With("component", "game_service"),
	}
}

// CreateSession creates a new game session. Turn-based sessions start right
// away; real-time sessions wait for Start.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	config, configID, err := s.resolveConfig(configName)
	if err != nil {
		return nil, err
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if config.TurnBased {
		session.Engine.Start()
	}

	s.logger.Info("session created", "session", session.ID, "config", configID, "turn_based", config.TurnBased)
	return s.sessionInfo(session, true), nil
}

func (s *gameServiceImpl) resolveConfig(configName string) (*engine.GameConfig, string, error) {
	if configName == "" {
		config := s.configs.GetDefault()
		return config, s.configIDFor(config.Name), nil
	}

	config, err := s.configs.LoadConfig(configName)
	if err == nil {
		return config, configName, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, "", fmt.Errorf("failed to load config %s: %w", configName, err)
	}

	// Provide helpful error message with available options
	available, listErr := s.configs.ListConfigs()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
		return nil, "", fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, ids, err)
	}
	return nil, "", fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
}

// configIDFor returns the preset id for a display name
func (s *gameServiceImpl) configIDFor(name string) string {
	available, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range available {
			if cfg.Name == name {
				return cfg.ConfigID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

// GetSession retrieves session information including the current snapshot
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(session, true), nil
}

// ListSessions returns all active sessions without their boards
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	infos := make([]*SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, s.sessionInfo(session, false))
	}
	return infos, nil
}

// DeleteSession removes a session and halts its gravity clock
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Start begins the game, or resumes gravity after Stop
func (s *gameServiceImpl) Start(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.lifecycle(sessionID, "start", func(e *engine.GameEngine) bool {
		return e.Start()
	})
}

// Stop halts gravity without changing the game
func (s *gameServiceImpl) Stop(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.lifecycle(sessionID, "stop", func(e *engine.GameEngine) bool {
		return e.Stop()
	})
}

// Restart replaces the game with a fresh one
func (s *gameServiceImpl) Restart(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.lifecycle(sessionID, "restart", func(e *engine.GameEngine) bool {
		e.Restart()
		return true
	})
}

func (s *gameServiceImpl) lifecycle(sessionID, name string, fn func(*engine.GameEngine) bool) (*CommandResult, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	applied := fn(session.Engine)
	snap := session.Engine.Snapshot()
	s.logger.Debug("lifecycle", "session", sessionID, "command", name, "applied", applied, "status", snap.Status)

	return &CommandResult{
		Command:  name,
		Applied:  applied,
		Message:  lifecycleMessage(name, applied, &snap),
		Snapshot: &snap,
	}, nil
}

// Command executes one player command
func (s *gameServiceImpl) Command(ctx context.Context, sessionID, command string) (*CommandResult, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	action, err := resolveAction(session, command)
	if err != nil {
		return nil, err
	}

	events, applied := session.Engine.Apply(action)
	snap := session.Engine.Snapshot()
	s.logGameOver(sessionID, events, &snap)

	return &CommandResult{
		Command:  string(action),
		Applied:  applied,
		Message:  commandMessage(action, applied, events, &snap),
		Events:   events,
		Snapshot: &snap,
	}, nil
}

// BulkCommand executes commands in order until the list ends, the game ends
// or a command cannot be resolved
func (s *gameServiceImpl) BulkCommand(ctx context.Context, sessionID string, commands []string) (*BulkCommandResult, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkCommandResult{
		RequestedCommands: len(commands),
		Events:            []engine.Event{},
	}
	if len(commands) > MaxBulkCommands {
		commands = commands[:MaxBulkCommands]
		result.Truncated = true
		result.Limit = MaxBulkCommands
	}

	start := session.Engine.Snapshot()
	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		action, err := resolveAction(session, command)
		if err != nil {
			result.StoppedOnCommand = i + 1
			result.StoppedReason = err.Error()
			result.StopReasonCode = "unknown_command"
			if errors.Is(err, ErrCommandNotAllowed) {
				result.StopReasonCode = "not_allowed"
			}
			break
		}

		events, applied := session.Engine.Apply(action)
		result.CommandsExecuted++
		if applied {
			result.CommandsApplied++
		}
		result.Events = append(result.Events, events...)

		if session.Engine.IsGameOver() {
			if i+1 < len(commands) {
				result.StoppedOnCommand = i + 1
				result.StoppedReason = "game over"
				result.StopReasonCode = "game_over"
			}
			break
		}
	}

	end := session.Engine.Snapshot()
	result.ScoreDelta = end.Score - start.Score
	result.LinesDelta = end.Lines - start.Lines
	result.GameOver = end.GameOver
	result.Snapshot = &end
	s.logGameOver(sessionID, result.Events, &end)

	s.logger.Debug("bulk command", "session", sessionID,
		"executed", result.CommandsExecuted, "requested", result.RequestedCommands,
		"stop", result.StopReasonCode, "score_delta", result.ScoreDelta)
	return result, nil
}

// GetSnapshot returns the current board projection
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	snap := session.Engine.Snapshot()
	return &snap, nil
}

// ListConfigs returns the available presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig returns a preset by name
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig stores a preset
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	s.logger.Info("config saved", "config", configName)
	return nil
}

func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

func (s *gameServiceImpl) sessionInfo(session *Session, withSnapshot bool) *SessionInfo {
	snap := session.Engine.Snapshot()
	info := &SessionInfo{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		TurnBased:      session.Config.TurnBased,
		Status:         snap.Status,
		Score:          snap.Score,
		Lines:          snap.Lines,
		Level:          snap.Level,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt(),
	}
	if withSnapshot {
		info.Snapshot = &snap
		info.GameConfig = session.Config
	}
	return info
}

func (s *gameServiceImpl) logGameOver(sessionID string, events []engine.Event, snap *engine.Snapshot) {
	for _, ev := range events {
		if ev.Type == engine.EventGameOver {
			s.logger.Info("game over", "session", sessionID, "score", snap.Score, "lines", snap.Lines, "level", snap.Level)
			return
		}
	}
}

func resolveAction(session *Session, command string) (engine.Action, error) {
	action, ok := engine.ParseAction(strings.ToLower(strings.TrimSpace(command)))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if action == engine.ActionTick && !session.Config.TurnBased {
		return "", fmt.Errorf("%w: tick is only available in turn-based sessions", ErrCommandNotAllowed)
	}
	return action, nil
}

func commandMessage(action engine.Action, applied bool, events []engine.Event, snap *engine.Snapshot) string {
	switch {
	case snap.Status == engine.StatusIdle:
		return "Game has not started. Send start first."
	case !applied && snap.GameOver:
		return "Game over. Send restart to play again."
	case !applied:
		return fmt.Sprintf("%s blocked", action)
	}

	var parts []string
	for _, ev := range events {
		switch ev.Type {
		case engine.EventLineClear:
			parts = append(parts, fmt.Sprintf("cleared %d line(s)", ev.Rows))
		case engine.EventGameOver:
			parts = append(parts, fmt.Sprintf("game over with %d points", snap.Score))
		case engine.EventLock:
			parts = append(parts, fmt.Sprintf("locked %s", ev.Kind))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s ok", action)
	}
	return fmt.Sprintf("%s ok: %s", action, strings.Join(parts, ", "))
}

func lifecycleMessage(name string, applied bool, snap *engine.Snapshot) string {
	if !applied {
		return fmt.Sprintf("%s had no effect (status %s)", name, snap.Status)
	}
	switch name {
	case "start":
		return "Game running"
	case "stop":
		return "Gravity halted. Send start to resume."
	default:
		return "Game restarted"
	}
}
