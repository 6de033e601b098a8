// Package service provides the business logic layer for Blockfall.
//
// The service package implements:
//   - Multi-session game management
//   - Command parsing and dispatch to the session's engine
//   - Bulk command execution with a per-call limit
//   - Preset listing, loading and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages preset loading and validation.
// Notifier receives live snapshots and events from every session's engine.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns its own engine and gravity clock. Commands
// are named strings (left, right, soft_drop, hard_drop, rotate and, for
// turn-based presets, tick) and every result carries the events produced and
// a fresh snapshot.
//
// Usage:
//
//	sessionMgr := session.NewManager(session.WithEngineOptions(service.NotifyingEngineOptions(hub)))
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, logger)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	_, err = gameService.Start(ctx, info.ID)
//	result, err := gameService.Command(ctx, info.ID, "rotate")
package service
