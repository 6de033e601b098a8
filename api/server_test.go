package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Lifecycle
	StartFunc   func(ctx context.Context, sessionID string) (*service.CommandResult, error)
	StopFunc    func(ctx context.Context, sessionID string) (*service.CommandResult, error)
	RestartFunc func(ctx context.Context, sessionID string) (*service.CommandResult, error)

	// Game Operations
	CommandFunc     func(ctx context.Context, sessionID, command string) (*service.CommandResult, error)
	BulkCommandFunc func(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error)
	GetSnapshotFunc func(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, cfg *engine.GameConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "ab12", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "classic", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Start(ctx context.Context, sessionID string) (*service.CommandResult, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, sessionID)
	}
	return &service.CommandResult{Command: "start", Applied: true, Snapshot: &engine.Snapshot{}}, nil
}

func (m *MockGameService) Stop(ctx context.Context, sessionID string) (*service.CommandResult, error) {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, sessionID)
	}
	return &service.CommandResult{Command: "stop", Applied: true, Snapshot: &engine.Snapshot{}}, nil
}

func (m *MockGameService) Restart(ctx context.Context, sessionID string) (*service.CommandResult, error) {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, sessionID)
	}
	return &service.CommandResult{Command: "restart", Applied: true, Snapshot: &engine.Snapshot{}}, nil
}

func (m *MockGameService) Command(ctx context.Context, sessionID, command string) (*service.CommandResult, error) {
	if m.CommandFunc != nil {
		return m.CommandFunc(ctx, sessionID, command)
	}
	return &service.CommandResult{Command: command, Applied: true, Snapshot: &engine.Snapshot{}}, nil
}

func (m *MockGameService) BulkCommand(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error) {
	if m.BulkCommandFunc != nil {
		return m.BulkCommandFunc(ctx, sessionID, commands)
	}
	return &service.BulkCommandResult{
		RequestedCommands: len(commands),
		CommandsExecuted:  len(commands),
		Snapshot:          &engine.Snapshot{},
	}, nil
}

func (m *MockGameService) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(ctx, sessionID)
	}
	return &engine.Snapshot{Status: engine.StatusRunning, Level: 1}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{Name: configName, Description: "Test config"}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, cfg *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) (*Server, *websocket.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub(nil)
	go hub.Run(ctx)
	return NewServer(mockService, hub, nil), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %q)", err, w.Body.String())
	}
}

func serve(t *testing.T, m *MockGameService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	server, _ := setupTestServer(t, m)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default config",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific config",
			requestBody: map[string]string{"config_id": "agent"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", ConfigName: configName, TurnBased: true}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "agent" || !resp.TurnBased {
					t.Errorf("Expected turn-based agent session, got %+v", resp)
				}
			},
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			{ID: "aaaa", Score: 100, CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-1 * time.Minute)},
			{ID: "bbbb", Score: 900, CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-30 * time.Minute)},
			{ID: "cccc", Score: 400, CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
		}, nil
	}

	tests := []struct {
		name     string
		query    string
		expected []string
		total    int
	}{
		{"Default sorts by last access", "", []string{"cccc", "aaaa", "bbbb"}, 3},
		{"Sort by creation ascending", "?sort=created&order=asc", []string{"aaaa", "cccc", "bbbb"}, 3},
		{"Sort by score with limit", "?sort=score&limit=2", []string{"bbbb", "cccc"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &MockGameService{ListSessionsFunc: sessions}, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.total || resp.Count != len(tt.expected) {
				t.Errorf("Expected count %d of %d, got %d of %d", len(tt.expected), tt.total, resp.Count, resp.Total)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
		return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
	}

	t.Run("Get existing session", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("GET", "/api/sessions/ab12", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp service.SessionInfo
		parseResponse(t, w, &resp)
		if resp.ID != "ab12" {
			t.Errorf("Expected ab12, got %s", resp.ID)
		}
	})

	t.Run("Get missing session", func(t *testing.T) {
		w := serve(t, &MockGameService{GetSessionFunc: notFound}, makeRequest("GET", "/api/sessions/zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("Delete session", func(t *testing.T) {
		var deleted string
		m := &MockGameService{DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			deleted = sessionID
			return nil
		}}
		w := serve(t, m, makeRequest("DELETE", "/api/sessions/ab12", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if deleted != "ab12" {
			t.Errorf("Expected ab12 to be deleted, got %q", deleted)
		}
	})

	t.Run("Delete missing session", func(t *testing.T) {
		m := &MockGameService{DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			return fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
		}}
		w := serve(t, m, makeRequest("DELETE", "/api/sessions/zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

// Game Operation Tests

func TestCommand(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"Valid command", map[string]string{"command": "rotate"}, nil, http.StatusOK},
		{"Missing command", map[string]string{}, nil, http.StatusBadRequest},
		{"Unknown command", map[string]string{"command": "jump"}, fmt.Errorf("%w: %q", service.ErrUnknownCommand, "jump"), http.StatusBadRequest},
		{"Tick on real-time session", map[string]string{"command": "tick"}, fmt.Errorf("%w: tick", service.ErrCommandNotAllowed), http.StatusBadRequest},
		{"Missing session", map[string]string{"command": "left"}, fmt.Errorf("%w: zz", service.ErrSessionNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockGameService{CommandFunc: func(ctx context.Context, sessionID, command string) (*service.CommandResult, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &service.CommandResult{Command: command, Applied: true, Snapshot: &engine.Snapshot{Score: 2}}, nil
			}}

			w := serve(t, m, makeRequest("POST", "/api/sessions/ab12/commands", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var resp service.CommandResult
				parseResponse(t, w, &resp)
				if resp.Command != "rotate" || !resp.Applied {
					t.Errorf("Unexpected result %+v", resp)
				}
			}
		})
	}
}

func TestBulkCommand(t *testing.T) {
	t.Run("Forwards commands in order", func(t *testing.T) {
		var got []string
		m := &MockGameService{BulkCommandFunc: func(ctx context.Context, sessionID string, commands []string) (*service.BulkCommandResult, error) {
			got = commands
			return &service.BulkCommandResult{
				RequestedCommands: len(commands),
				CommandsExecuted:  len(commands),
				Snapshot:          &engine.Snapshot{},
			}, nil
		}}

		body := map[string][]string{"commands": {"left", "left", "hard_drop"}}
		w := serve(t, m, makeRequest("POST", "/api/sessions/ab12/bulk-commands", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if strings.Join(got, ",") != "left,left,hard_drop" {
			t.Errorf("Unexpected commands %v", got)
		}
		var resp service.BulkCommandResult
		parseResponse(t, w, &resp)
		if resp.CommandsExecuted != 3 {
			t.Errorf("Expected 3 executed, got %d", resp.CommandsExecuted)
		}
	})

	t.Run("Empty list rejected", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("POST", "/api/sessions/ab12/bulk-commands", map[string][]string{"commands": {}}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("Invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/bulk-commands", strings.NewReader("{"))
		w := serve(t, &MockGameService{}, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestLifecycleRoutes(t *testing.T) {
	var calls []string
	record := func(name string) func(ctx context.Context, sessionID string) (*service.CommandResult, error) {
		return func(ctx context.Context, sessionID string) (*service.CommandResult, error) {
			calls = append(calls, name+":"+sessionID)
			return &service.CommandResult{Command: name, Applied: true, Snapshot: &engine.Snapshot{}}, nil
		}
	}
	m := &MockGameService{StartFunc: record("start"), StopFunc: record("stop"), RestartFunc: record("restart")}

	for _, path := range []string{"start", "stop", "restart"} {
		w := serve(t, m, makeRequest("POST", "/api/sessions/ab12/"+path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}

	if strings.Join(calls, ",") != "start:ab12,stop:ab12,restart:ab12" {
		t.Errorf("Unexpected calls %v", calls)
	}

	w := serve(t, m, makeRequest("GET", "/api/sessions/ab12/start", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET start, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "POST" {
		t.Errorf("Expected Allow: POST, got %q", allow)
	}
}

func TestUnmatchedRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		status int
		allow  string
	}{
		{"PUT", "/api/sessions/ab12", http.StatusMethodNotAllowed, "GET, DELETE"},
		{"DELETE", "/api/configs", http.StatusMethodNotAllowed, "GET, POST"},
		{"GET", "/api/sessions/ab12/commands", http.StatusMethodNotAllowed, "POST"},
		{"GET", "/api/nothing", http.StatusNotFound, ""},
		{"POST", "/api/sessions/ab12/fly", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(t, &MockGameService{}, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if allow := w.Header().Get("Allow"); allow != tt.allow {
				t.Errorf("Expected Allow %q, got %q", tt.allow, allow)
			}
		})
	}
}

func TestGetSnapshot(t *testing.T) {
	m := &MockGameService{GetSnapshotFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
		snap := &engine.Snapshot{Status: engine.StatusRunning, Score: 38, Level: 1}
		snap.Cells[engine.Rows-1][0] = engine.CellState{Type: engine.CellLocked, Kind: engine.KindI}
		return snap, nil
	}}

	t.Run("JSON", func(t *testing.T) {
		w := serve(t, m, makeRequest("GET", "/api/sessions/ab12/state", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var snap engine.Snapshot
		parseResponse(t, w, &snap)
		if snap.Score != 38 {
			t.Errorf("Expected score 38, got %d", snap.Score)
		}
	})

	t.Run("Text", func(t *testing.T) {
		w := serve(t, m, makeRequest("GET", "/api/sessions/ab12/state?format=text", nil))
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		if len(lines) != engine.Rows {
			t.Fatalf("Expected %d rows, got %d", engine.Rows, len(lines))
		}
		if lines[engine.Rows-1] != "I........." {
			t.Errorf("Unexpected bottom row %q", lines[engine.Rows-1])
		}
	})
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		m := &MockGameService{ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic"}, {ConfigID: "agent", TurnBased: true}}, nil
		}}
		w := serve(t, m, makeRequest("GET", "/api/configs", nil))
		var resp []service.ConfigInfo
		parseResponse(t, w, &resp)
		if len(resp) != 2 || !resp[1].TurnBased {
			t.Errorf("Unexpected configs %+v", resp)
		}
	})

	t.Run("Get strips extension", func(t *testing.T) {
		var requested string
		m := &MockGameService{LoadConfigFunc: func(ctx context.Context, name string) (*engine.GameConfig, error) {
			requested = name
			return &engine.GameConfig{Name: "Sprint", Description: "seeded"}, nil
		}}
		w := serve(t, m, makeRequest("GET", "/api/configs/sprint.yaml", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if requested != "sprint" {
			t.Errorf("Expected sprint, got %q", requested)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		m := &MockGameService{LoadConfigFunc: func(ctx context.Context, name string) (*engine.GameConfig, error) {
			return nil, config.ErrConfigNotFound
		}}
		w := serve(t, m, makeRequest("GET", "/api/configs/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("Create", func(t *testing.T) {
		var savedID string
		var saved *engine.GameConfig
		m := &MockGameService{SaveConfigFunc: func(ctx context.Context, name string, cfg *engine.GameConfig) error {
			savedID, saved = name, cfg
			return nil
		}}
		body := map[string]interface{}{"name": "Night Shift", "description": "turn based", "turn_based": true, "sequence": "IOT"}
		w := serve(t, m, makeRequest("POST", "/api/configs", body))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d (%s)", w.Code, w.Body.String())
		}
		if savedID != "night_shift" {
			t.Errorf("Expected id night_shift, got %q", savedID)
		}
		if saved == nil || !saved.TurnBased || saved.Sequence != "IOT" {
			t.Errorf("Unexpected saved config %+v", saved)
		}
	})

	t.Run("Create invalid", func(t *testing.T) {
		m := &MockGameService{SaveConfigFunc: func(ctx context.Context, name string, cfg *engine.GameConfig) error {
			return fmt.Errorf("%w: sequence", config.ErrInvalidConfig)
		}}
		w := serve(t, m, makeRequest("POST", "/api/configs", map[string]string{"name": "Bad"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

// Middleware Tests

func TestRequestID(t *testing.T) {
	w := serve(t, &MockGameService{}, makeRequest("GET", "/api/health", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}

	req := makeRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = serve(t, &MockGameService{}, req)
	if got := w.Header().Get(RequestIDHeader); got != "fixed-id" {
		t.Errorf("Expected echoed request id, got %q", got)
	}
}

func TestGzipResponses(t *testing.T) {
	m := &MockGameService{ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
		infos := make([]*service.SessionInfo, 0, 50)
		for i := 0; i < 50; i++ {
			infos = append(infos, &service.SessionInfo{ID: fmt.Sprintf("%04x", i), ConfigName: "classic"})
		}
		return infos, nil
	}}

	req := makeRequest("GET", "/api/sessions", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(t, m, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Expected gzip encoding, got %q", w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to open gzip body: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("Failed to read gzip body: %v", err)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if resp.Count != 50 {
		t.Errorf("Expected 50 sessions, got %d", resp.Count)
	}
}

// WebSocket Tests

func TestWebSocket(t *testing.T) {
	t.Run("Missing session parameter", func(t *testing.T) {
		w := serve(t, &MockGameService{}, httptest.NewRequest("GET", "/ws", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("Invalid session", func(t *testing.T) {
		m := &MockGameService{GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, service.ErrSessionNotFound
		}}
		w := serve(t, m, httptest.NewRequest("GET", "/ws?session=zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("Valid session receives snapshots", func(t *testing.T) {
		server, hub := setupTestServer(t, &MockGameService{})
		ts := httptest.NewServer(server)
		defer ts.Close()

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=ab12"
		conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()
		if resp.StatusCode != http.StatusSwitchingProtocols {
			t.Errorf("Expected 101, got %d", resp.StatusCode)
		}

		deadline := time.Now().Add(2 * time.Second)
		for hub.ClientCount("ab12") == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}

		hub.PublishSnapshot("ab12", &engine.Snapshot{Score: 7})

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		if msg.Snapshot == nil || msg.Snapshot.Score != 7 {
			t.Errorf("Unexpected message %+v", msg)
		}
	})
}
