package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

// Client talks to the Blockfall REST API for a single session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is bound to
func (c *Client) SessionID() string {
	return c.sessionID
}

// CreateSession starts a session from a preset and binds the client to it
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

// Resume binds the client to an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	var session service.SessionInfo
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID, nil, &session); err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

// Snapshot fetches the current board
func (c *Client) Snapshot(ctx context.Context) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodGet, c.sessionPath("state"), nil, &snap); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &snap, nil
}

// Start starts or resumes the game
func (c *Client) Start(ctx context.Context) (*service.CommandResult, error) {
	return c.lifecycle(ctx, "start")
}

// Restart replaces the game with a fresh one
func (c *Client) Restart(ctx context.Context) (*service.CommandResult, error) {
	return c.lifecycle(ctx, "restart")
}

func (c *Client) lifecycle(ctx context.Context, name string) (*service.CommandResult, error) {
	var result service.CommandResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(name), nil, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &result, nil
}

// BulkCommands runs commands in order
func (c *Client) BulkCommands(ctx context.Context, commands []string) (*service.BulkCommandResult, error) {
	var result service.BulkCommandResult
	body := map[string][]string{"commands": commands}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("bulk-commands"), body, &result); err != nil {
		return nil, fmt.Errorf("bulk commands: %w", err)
	}
	return &result, nil
}

func (c *Client) sessionPath(op string) string {
	return fmt.Sprintf("/api/sessions/%s/%s", c.sessionID, op)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
