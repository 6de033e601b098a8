package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	hub "github.com/wricardo/blockfall/transport/websocket"
)

// frame is a server message with its payload left undecoded
type frame struct {
	SessionID string           `json:"session_id"`
	Snapshot  *engine.Snapshot `json:"snapshot"`
	Event     string           `json:"event"`
	Data      json.RawMessage  `json:"data"`
}

// remoteBackend plays a session hosted by a Blockfall server. Commands go out
// as WebSocket frames and snapshots come back on the same connection.
type remoteBackend struct {
	sessionID string
	conn      *websocket.Conn
	sink      engine.EventSink
	changes   chan struct{}

	mu   sync.RWMutex
	snap engine.Snapshot

	writeMu sync.Mutex
	done    chan struct{}
}

// dialRemote joins sessionID on the server at baseURL, creating a session
// from preset when sessionID is empty. Events received from the server are
// passed to sink.
func dialRemote(ctx context.Context, baseURL, sessionID, preset string, sink engine.EventSink) (*remoteBackend, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	if sessionID == "" {
		info, err := createSession(ctx, client, baseURL, preset)
		if err != nil {
			return nil, err
		}
		sessionID = info.ID
	}

	var snap engine.Snapshot
	if err := getJSON(ctx, client, baseURL+"/api/sessions/"+sessionID+"/state", &snap); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	wsURL, err := websocketURL(baseURL, sessionID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect websocket: %w", err)
	}

	b := &remoteBackend{
		sessionID: sessionID,
		conn:      conn,
		sink:      sink,
		changes:   make(chan struct{}, 1),
		snap:      snap,
		done:      make(chan struct{}),
	}
	go b.listen()
	return b, nil
}

// websocketURL maps an http(s) base URL to the session's ws(s) endpoint
func websocketURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func createSession(ctx context.Context, client *http.Client, baseURL, preset string) (*service.SessionInfo, error) {
	body, err := json.Marshal(map[string]string{"config_id": preset})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create session failed: %s", resp.Status)
	}
	var info service.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}
	return &info, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SessionID returns the joined session
func (b *remoteBackend) SessionID() string {
	return b.sessionID
}

func (b *remoteBackend) listen() {
	defer close(b.done)
	for {
		var f frame
		if err := b.conn.ReadJSON(&f); err != nil {
			return
		}
		b.handle(f)
	}
}

func (b *remoteBackend) handle(f frame) {
	switch {
	case f.Snapshot != nil:
		b.update(*f.Snapshot)
	case f.Event == "command_result":
		var result service.CommandResult
		if err := json.Unmarshal(f.Data, &result); err == nil && result.Snapshot != nil {
			b.update(*result.Snapshot)
		}
	case f.Event == "error":
		// rejected commands leave the board unchanged
	default:
		var ev engine.Event
		if err := json.Unmarshal(f.Data, &ev); err == nil && ev.Type != "" && b.sink != nil {
			b.sink.HandleEvent(ev)
		}
	}
}

// update keeps the newest snapshot; broadcasts and command replies travel on
// separate queues and may arrive out of order
func (b *remoteBackend) update(snap engine.Snapshot) {
	b.mu.Lock()
	if snap.Seq < b.snap.Seq {
		b.mu.Unlock()
		return
	}
	b.snap = snap
	b.mu.Unlock()
	notify(b.changes)
}

func (b *remoteBackend) send(command string) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	b.conn.WriteJSON(hub.ClientMessage{Command: command})
}

func (b *remoteBackend) Snapshot() engine.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *remoteBackend) Apply(action engine.Action) { b.send(string(action)) }
func (b *remoteBackend) Start() { b.send("start") }
func (b *remoteBackend) Stop() { b.send("stop") }
func (b *remoteBackend) Restart() { b.send("restart") }
func (b *remoteBackend) Changes() <-chan struct{} { return b.changes }

// Close leaves the session running on the server and hangs up
func (b *remoteBackend) Close() error {
	b.writeMu.Lock()
	b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.writeMu.Unlock()

	err := b.conn.Close()
	<-b.done
	return err
}
