// Package mcp exposes Blockfall to AI agents through the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, so agents, browsers and the terminal client all act on the same
// sessions. Tools:
//   - create_session, list_sessions
//   - game_state: status line plus an ASCII board
//   - command, bulk_commands
//   - start_game, stop_game, restart_game
//   - list_configs
//   - suggest_placement: runs the autoplay planner on the current snapshot
//   - game_instructions
//
// Turn-based presets suit agents best: gravity never fires on its own and a
// tick command advances it one row.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The same server answers JSON-RPC POSTs on /mcp when the HTTP server runs.
package mcp
