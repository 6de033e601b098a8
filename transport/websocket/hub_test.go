package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/blockfall/game/engine"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if cap(hub.broadcast) != broadcastQueueSize {
		t.Errorf("Expected broadcast queue of %d, got %d", broadcastQueueSize, cap(hub.broadcast))
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "ab12")

	hub.registerClient(client)
	if !hub.sessions["ab12"][client] {
		t.Fatal("Client was not registered in session")
	}

	hub.unregisterClient(client)
	if _, exists := hub.sessions["ab12"]; exists {
		t.Error("Empty session should be removed after last client leaves")
	}

	// Channel is closed exactly once
	if _, ok := <-client.send; ok {
		t.Error("Client send channel should be closed")
	}
	hub.unregisterClient(client)
}

func TestHubBroadcastOnlyReachesSession(t *testing.T) {
	hub := NewHub(nil)
	watcher := newTestClient(hub, "ab12")
	other := newTestClient(hub, "cd34")
	hub.registerClient(watcher)
	hub.registerClient(other)

	snap := engine.Snapshot{Status: engine.StatusRunning, Score: 38, Level: 1}
	hub.broadcastMessage(&Message{SessionID: "ab12", Snapshot: &snap, Event: "state_update"})

	select {
	case data := <-watcher.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Event != "state_update" {
			t.Errorf("Expected state_update, got %q", msg.Event)
		}
		if msg.Snapshot == nil || msg.Snapshot.Score != 38 {
			t.Errorf("Expected snapshot with score 38, got %+v", msg.Snapshot)
		}
	default:
		t.Fatal("Watcher did not receive broadcast")
	}

	select {
	case <-other.send:
		t.Error("Client of another session received the broadcast")
	default:
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)

	// Nothing drains the queue; publishing past capacity must return
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastQueueSize+10; i++ {
			hub.PublishEvent("ab12", engine.Event{Type: engine.EventMove})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishEvent blocked on a full queue")
	}
	if len(hub.broadcast) != broadcastQueueSize {
		t.Errorf("Expected full queue, got %d", len(hub.broadcast))
	}
}

func TestHubPublishEventPayload(t *testing.T) {
	hub := NewHub(nil)
	hub.PublishEvent("ab12", engine.Event{Type: engine.EventLineClear, Rows: 2, Level: 1})

	msg := <-hub.broadcast
	if msg.Event != "line_clear" {
		t.Errorf("Expected line_clear, got %q", msg.Event)
	}
	ev, ok := msg.Data.(engine.Event)
	if !ok || ev.Rows != 2 {
		t.Errorf("Expected line clear event data, got %#v", msg.Data)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "ab12", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "ab12", Event: "state_update"})

	if _, exists := hub.sessions["ab12"]; exists {
		t.Error("Client with a full buffer should be unregistered")
	}
}

func startHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients in session %s, got %d", want, sessionID, hub.ClientCount(sessionID))
}

func TestWebSocketReceivesSnapshot(t *testing.T) {
	hub := NewHub(nil)
	server := startHub(t, hub)
	conn := dial(t, server, "ab12")
	waitForClients(t, hub, "ab12", 1)

	snap := engine.Snapshot{Status: engine.StatusRunning, Lines: 3, Level: 1}
	hub.PublishSnapshot("ab12", &snap)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if msg.SessionID != "ab12" || msg.Event != "state_update" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if msg.Snapshot == nil || msg.Snapshot.Lines != 3 {
		t.Errorf("Expected snapshot with 3 lines, got %+v", msg.Snapshot)
	}
}

func TestWebSocketCommandFrames(t *testing.T) {
	hub := NewHub(nil)
	hub.SetCommandHandler(func(ctx context.Context, sessionID, command string) (interface{}, error) {
		if command != "rotate" {
			return nil, errors.New("unknown command")
		}
		return map[string]string{"session": sessionID, "command": command}, nil
	})
	server := startHub(t, hub)
	conn := dial(t, server, "ab12")
	waitForClients(t, hub, "ab12", 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteJSON(ClientMessage{Command: "rotate"}); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	if msg.Event != "command_result" {
		t.Errorf("Expected command_result, got %q", msg.Event)
	}

	if err := conn.WriteJSON(ClientMessage{Command: "fly"}); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	if msg.Event != "error" || msg.Data != "unknown command" {
		t.Errorf("Expected error reply, got %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}
	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	if msg.Event != "error" {
		t.Errorf("Expected error reply for malformed frame, got %q", msg.Event)
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil)
	server := startHub(t, hub)
	conn := dial(t, server, "ab12")
	waitForClients(t, hub, "ab12", 1)

	conn.Close()
	waitForClients(t, hub, "ab12", 0)
}

func TestHubDropsStaleSnapshots(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "ab12")
	hub.registerClient(client)

	for _, seq := range []uint64{5, 3, 6} {
		snap := engine.Snapshot{Seq: seq}
		hub.broadcastMessage(&Message{SessionID: "ab12", Snapshot: &snap, Event: "state_update"})
	}

	var got []uint64
	for len(client.send) > 0 {
		var msg Message
		if err := json.Unmarshal(<-client.send, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		got = append(got, msg.Snapshot.Seq)
	}
	if len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("Expected snapshots 5 and 6, got %v", got)
	}
}

func TestHubShutdownReleasesCallers(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	served := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "ab12")
		served <- struct{}{}
	}))
	t.Cleanup(server.Close)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if n := hub.ClientCount("ab12"); n != 0 {
		t.Errorf("Expected no clients after shutdown, got %d", n)
	}

	conn := dial(t, server, "ab12")
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWS blocked after the hub stopped")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed by a stopped hub")
	}
}
