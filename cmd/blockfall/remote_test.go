package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/blockfall/api"
	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/logging"
	hub "github.com/wricardo/blockfall/transport/websocket"
)

type recordingSink struct {
	mu     sync.Mutex
	events []engine.Event
}

func (s *recordingSink) HandleEvent(ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) has(t engine.EventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func newRemoteServer(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	preset := `{"name": "Agent", "description": "turn based", "turn_based": true, "sequence": "IIII"}`
	if err := os.WriteFile(filepath.Join(dir, "agent.json"), []byte(preset), 0644); err != nil {
		t.Fatal(err)
	}
	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	h := hub.NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	sessions := session.NewManager(session.WithEngineOptions(service.NotifyingEngineOptions(h)))
	t.Cleanup(sessions.StopAll)
	gs := service.NewGameService(sessions, configs, nil)

	h.SetCommandHandler(func(ctx context.Context, id, command string) (interface{}, error) {
		var (
			result *service.CommandResult
			err    error
		)
		switch command {
		case "start":
			result, err = gs.Start(ctx, id)
		case "stop":
			result, err = gs.Stop(ctx, id)
		case "restart":
			result, err = gs.Restart(ctx, id)
		default:
			result, err = gs.Command(ctx, id, command)
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	})

	server := httptest.NewServer(api.NewServer(gs, h, nil))
	t.Cleanup(server.Close)
	return server.URL
}

func waitFor(t *testing.T, b Backend, what string, cond func(engine.Snapshot) bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond(b.Snapshot()) {
			return
		}
		select {
		case <-b.Changes():
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestRemoteBackend(t *testing.T) {
	url := newRemoteServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sink := &recordingSink{}
	b, err := dialRemote(ctx, url+"/", "", "agent", sink)
	if err != nil {
		t.Fatalf("dialRemote failed: %v", err)
	}

	snap := b.Snapshot()
	if snap.Status != engine.StatusRunning || snap.Active == nil || snap.Active.Kind != engine.KindI {
		t.Fatalf("Expected a running game with an I piece, got %+v", snap)
	}

	b.Apply(engine.ActionHardDrop)
	waitFor(t, b, "hard drop score", func(s engine.Snapshot) bool { return s.Score > 0 })
	waitFor(t, b, "hard drop event", func(engine.Snapshot) bool { return sink.has(engine.EventHardDrop) })

	b.Stop()
	waitFor(t, b, "pause", func(s engine.Snapshot) bool { return s.Paused })

	b.Restart()
	waitFor(t, b, "restart", func(s engine.Snapshot) bool { return s.Score == 0 && !s.Paused })

	if err := b.Close(); err != nil {
		t.Logf("close: %v", err)
	}

	// The session outlives the connection
	again, err := dialRemote(ctx, url, b.SessionID(), "", nil)
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	defer again.Close()
	if again.SessionID() != b.SessionID() {
		t.Errorf("Expected session %s, got %s", b.SessionID(), again.SessionID())
	}
}

func TestRemoteBackendErrors(t *testing.T) {
	url := newRemoteServer(t)
	ctx := context.Background()

	if _, err := dialRemote(ctx, url, "zzzz", "", nil); err == nil {
		t.Error("Expected error for unknown session")
	}
	if _, err := dialRemote(ctx, url, "", "missing", nil); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base     string
		expected string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws?session=ab12"},
		{"https://example.com/game/", "wss://example.com/game/ws?session=ab12"},
	}
	for _, tt := range tests {
		got, err := websocketURL(tt.base, "ab12")
		if err != nil {
			t.Fatalf("websocketURL(%q) failed: %v", tt.base, err)
		}
		if got != tt.expected {
			t.Errorf("websocketURL(%q) = %q, expected %q", tt.base, got, tt.expected)
		}
	}
}

func TestRemoteBackendKeepsNewestSnapshot(t *testing.T) {
	b := &remoteBackend{changes: make(chan struct{}, 1)}

	b.update(engine.Snapshot{Seq: 5, Score: 50})
	b.update(engine.Snapshot{Seq: 3, Score: 30})
	if got := b.Snapshot().Score; got != 50 {
		t.Errorf("Expected stale snapshot to be ignored, score is %d", got)
	}

	b.update(engine.Snapshot{Seq: 6, Score: 60})
	if got := b.Snapshot().Score; got != 60 {
		t.Errorf("Expected newer snapshot to replace the board, score is %d", got)
	}
}
