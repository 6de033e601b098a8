package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/blockfall/game/autoplay"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	planner    *autoplay.Planner
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		planner: autoplay.NewPlanner(autoplay.DefaultWeights),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Blockfall",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Blockfall - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Pieces fall into a 10x20 board. Complete horizontal rows to clear them and
score. The game ends when the stack reaches the top.

AVAILABLE TOOLS:
- create_session: Create a game session (use the "agent" preset for turn-based play)
- list_sessions: List all active sessions
- game_state: Board, score, level and next piece
- command: One command (left, right, soft_drop, hard_drop, rotate, tick)
- bulk_commands: Up to 50 commands at once
- start_game / stop_game / restart_game: Lifecycle
- list_configs: Available presets
- suggest_placement: Best placement for the active piece, optionally played
- game_instructions: Rules and scoring

NOTE: The 'intent' parameter on command/bulk_commands serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionIDProperty(),
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	commandNames := make([]string, 0, len(engine.Actions))
	for _, a := range engine.Actions {
		commandNames = append(commandNames, string(a))
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional preset selection. Turn-based presets start immediately; real-time ones wait for start_game.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset id from list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, score, lines, level, next piece and gravity interval",
		InputSchema: sessionOnlySchema(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Execute one command on the active piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"command": map[string]interface{}{
					"type":        "string",
					"enum":        commandNames,
					"description": "Command to execute (tick only in turn-based sessions)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this command (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, c.handleCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_commands",
		Description: fmt.Sprintf("Execute up to %d commands in sequence. Stops early at game over or on an invalid command.", service.MaxBulkCommands),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"commands": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": commandNames,
					},
					"description": "Commands in order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "commands"},
		},
	}, c.handleBulkCommands)

	// Lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start the game, or resume gravity after stop_game",
		InputSchema: sessionOnlySchema(),
	}, c.lifecycleHandler("start"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_game",
		Description: "Halt gravity without changing the board",
		InputSchema: sessionOnlySchema(),
	}, c.lifecycleHandler("stop"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_game",
		Description: "Throw the current game away and start a fresh one",
		InputSchema: sessionOnlySchema(),
	}, c.lifecycleHandler("restart"))

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	// Advice
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "suggest_placement",
		Description: "Compute the best placement for the active piece (height, holes, bumpiness and cleared lines) and the commands that reach it. Set apply to play them.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"apply": map[string]interface{}{
					"type":        "boolean",
					"description": "Execute the suggested commands",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSuggestPlacement)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get rules, scoring and command reference",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	v, _ := request.GetArguments()[key].(string)
	return v
}

func requireSession(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id := stringArg(request, "session_id")
	if id == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return id, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := stringArg(request, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		mode := "real-time"
		if s.TurnBased {
			mode = "turn-based"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, %s, %s, Score: %d, Lines: %d)\n",
			s.ID, s.ConfigName, mode, s.Status, s.Score, s.Lines)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request)
	if errResult != nil {
		return errResult, nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	command := stringArg(request, "command")
	if command == "" {
		return mcp.NewToolResultError("command is required"), nil
	}

	var result service.CommandResult
	body := map[string]string{"command": command}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/commands", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleBulkCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request)
	if errResult != nil {
		return errResult, nil
	}

	raw, _ := request.GetArguments()["commands"].([]interface{})
	commands := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			commands = append(commands, s)
		}
	}
	if len(commands) == 0 {
		return mcp.NewToolResultError("commands must not be empty"), nil
	}

	return c.bulk(ctx, sessionID, commands, "")
}

func (c *Client) bulk(ctx context.Context, sessionID string, commands []string, header string) (*mcp.CallToolResult, error) {
	var result service.BulkCommandResult
	body := map[string][]string{"commands": commands}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/bulk-commands", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(header + formatBulkResult(sessionID, &result)), nil
}

func (c *Client) lifecycleHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, errResult := requireSession(request)
		if errResult != nil {
			return errResult, nil
		}

		var result service.CommandResult
		if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/%s", sessionID, name), nil, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(formatCommandResult(&result)), nil
	}
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		var tags []string
		if cfg.TurnBased {
			tags = append(tags, "turn-based")
		} else {
			tags = append(tags, "real-time")
		}
		if cfg.Scripted {
			tags = append(tags, "scripted opening")
		}
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  %s\n\n", cfg.ConfigID, cfg.Name, cfg.Description, strings.Join(tags, ", "))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSuggestPlacement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request)
	if errResult != nil {
		return errResult, nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	placement, ok := c.planner.PlanSnapshot(&snap)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no active piece (status %s)", snap.Status)), nil
	}

	summary := formatPlacement(&placement)
	apply, _ := request.GetArguments()["apply"].(bool)
	if !apply {
		return mcp.NewToolResultText(summary), nil
	}
	return c.bulk(ctx, sessionID, autoplay.CommandNames(placement.Commands), summary+"\n")
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Blockfall - Instructions

BOARD:
%d columns by %d rows. Row 0 is the top. Pieces spawn centered on the top row.

PIECES:
I, O, T, S, Z, J, L. The next piece is shown in game_state.

COMMANDS:
• left / right: shift one column
• rotate: clockwise, with small wall kicks when blocked
• soft_drop: one row down, +1 point
• hard_drop: straight down and lock, +2 points per row
• tick: one gravity step (turn-based sessions only)

SCORING:
Clearing 1, 2, 3 or 4 rows at once scores 100, 300, 500 or 800 times the level.
Every 10 cleared rows raise the level and speed up gravity (0.90s down to 0.12s).

GAME OVER:
A piece locks above the top of the board, or a new piece has no room to spawn.
Use restart_game to play again.

BOARD LEGEND (game_state):
.  empty
@  active piece
+  where the active piece would land
I O T S Z J L  locked cells

STRATEGY:
Keep the stack low and flat and avoid covering empty cells. suggest_placement
shows what a greedy planner would do.`, engine.Columns, engine.Rows)

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	mode := "real-time (send start_game)"
	if session.TurnBased {
		mode = "turn-based (gravity advances on tick)"
	}
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nMode: %s\nCreated: %s\n",
		session.ID, session.ConfigName, mode,
		session.CreatedAt.Format("2006-01-02 15:04:05"))
	if session.Snapshot != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(session.Snapshot))
	}
	return b.String()
}

func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No game state available"
	}

	var b strings.Builder
	next := "-"
	if snap.Next.Valid() {
		next = snap.Next.String()
	}
	fmt.Fprintf(&b, "Status: %s | Score: %d | Lines: %d | Level: %d | Next: %s | Gravity: %s\n",
		snap.Status, snap.Score, snap.Lines, snap.Level, next, snap.GravityInterval)
	if snap.Active != nil {
		fmt.Fprintf(&b, "Active: %s rotation %d at (%d,%d)\n",
			snap.Active.Kind, snap.Active.Rotation, snap.Active.Origin.X, snap.Active.Origin.Y)
	}
	if snap.Paused {
		b.WriteString("Gravity halted\n")
	}
	b.WriteString("\n")

	border := "+" + strings.Repeat("-", engine.Columns) + "+\n"
	b.WriteString(border)
	for _, row := range snap.Render() {
		b.WriteString("|" + row + "|\n")
	}
	b.WriteString(border)

	if snap.GameOver {
		b.WriteString("\nGAME OVER")
	}
	return b.String()
}

func formatEvents(events []engine.Event) string {
	var parts []string
	for _, ev := range events {
		switch ev.Type {
		case engine.EventLineClear:
			parts = append(parts, fmt.Sprintf("line_clear x%d", ev.Rows))
		case engine.EventHardDrop:
			parts = append(parts, fmt.Sprintf("hard_drop %d rows", ev.Distance))
		case engine.EventLock, engine.EventSpawn:
			parts = append(parts, fmt.Sprintf("%s %s", ev.Type, ev.Kind))
		case engine.EventGameOver:
			parts = append(parts, "game_over")
		}
	}
	return strings.Join(parts, ", ")
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	if result.Applied {
		fmt.Fprintf(&b, "✓ %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "✗ %s\n", result.Message)
	}
	if events := formatEvents(result.Events); events != "" {
		fmt.Fprintf(&b, "Events: %s\n", events)
	}
	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatBulkResult(sessionID string, result *service.BulkCommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Executed %d/%d commands (%d applied)\n",
		result.CommandsExecuted, result.RequestedCommands, result.CommandsApplied)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d commands\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped at command %d: %s\n", result.StoppedOnCommand, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Score +%d, Lines +%d\n", result.ScoreDelta, result.LinesDelta)
	if events := formatEvents(result.Events); events != "" {
		fmt.Fprintf(&b, "Events: %s\n", events)
	}
	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatPlacement(p *autoplay.Placement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggested placement for %s: rotation %d, column %d, landing row %d\n",
		p.Kind, p.Rotation, p.Origin.X, p.Origin.Y)
	fmt.Fprintf(&b, "Lines: %d | Holes: %d | Aggregate height: %d | Bumpiness: %d | Score: %.2f\n",
		p.Lines, p.Holes, p.Height, p.Bumpiness, p.Score)
	if p.Overflow {
		b.WriteString("Warning: every placement tops out\n")
	}
	fmt.Fprintf(&b, "Commands: %s\n", strings.Join(autoplay.CommandNames(p.Commands), ", "))
	return b.String()
}
