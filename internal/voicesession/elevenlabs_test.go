package voicesession

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/gorilla/websocket"
)

type fakeAgent struct {
	server   *httptest.Server
	received chan map[string]any
	headers  chan http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

func newFakeAgent(t *testing.T, sendMetadata bool) *fakeAgent {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	a := &fakeAgent{
		received: make(chan map[string]any, 32),
		headers:  make(chan http.Header, 4),
	}

	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("agent_id") == "" {
			http.Error(w, "missing agent", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("agent_id") == "forbidden" {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		a.headers <- r.Header.Clone()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.conn = ws
		a.mu.Unlock()

		if sendMetadata {
			ws.WriteJSON(map[string]any{
				"type": "conversation_initiation_metadata",
				"conversation_initiation_metadata_event": map[string]any{
					"conversation_id": "conv-1",
				},
			})
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if json.Unmarshal(data, &msg) == nil {
				a.received <- msg
			}
		}
	}))
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAgent) url() string {
	return "ws" + strings.TrimPrefix(a.server.URL, "http")
}

func (a *fakeAgent) send(t *testing.T, v any) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		t.Fatal("agent has no connection")
	}
	if err := a.conn.WriteJSON(v); err != nil {
		t.Fatalf("agent write: %v", err)
	}
}

func (a *fakeAgent) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		a.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		a.conn.Close()
	}
}

func (a *fakeAgent) expect(t *testing.T, msgType string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-a.received:
			if msg["type"] == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return nil
		}
	}
}

func waitForStatus(t *testing.T, s *ElevenLabs, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected status %s, got %s", want, s.Status())
}

func newTestSession(url string, sink *eventlog.Sink) *ElevenLabs {
	return NewElevenLabs(Config{
		BaseURL: url,
		Notices: sink,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func hasNotice(sink *eventlog.Sink, category eventlog.Category, contains string) bool {
	for _, e := range sink.Entries() {
		if e.Category == category && strings.Contains(e.Message, contains) {
			return true
		}
	}
	return false
}

func TestElevenLabs_Defaults(t *testing.T) {
	s := NewElevenLabs(Config{})
	if s.baseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", s.baseURL)
	}
	if s.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", s.Status())
	}
}

func TestElevenLabs_ConnectMissingAgentID(t *testing.T) {
	sink := eventlog.NewSink()
	s := newTestSession("ws://127.0.0.1:1", sink)

	err := s.Connect(context.Background(), "  ")
	if !errors.Is(err, ErrMissingAgentID) {
		t.Fatalf("expected ErrMissingAgentID, got %v", err)
	}
	if s.Status() != StatusIdle {
		t.Errorf("status should stay idle, got %s", s.Status())
	}
	if !hasNotice(sink, eventlog.CategoryError, "agent ID") {
		t.Error("expected an error notice")
	}
}

func TestElevenLabs_ConnectLifecycle(t *testing.T) {
	agent := newFakeAgent(t, false)
	sink := eventlog.NewSink()
	s := NewElevenLabs(Config{
		BaseURL: agent.url(),
		APIKey:  func(context.Context) string { return "xi-secret" },
		Notices: sink,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var mu sync.Mutex
	var seen []Status
	s.OnStatusChange(func(st Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if s.Status() != StatusConnecting {
		t.Errorf("expected connecting before metadata, got %s", s.Status())
	}

	hdr := <-agent.headers
	if hdr.Get("xi-api-key") != "xi-secret" {
		t.Errorf("expected api key header, got %q", hdr.Get("xi-api-key"))
	}
	agent.expect(t, "conversation_initiation_client_data")

	agent.send(t, map[string]any{
		"type": "conversation_initiation_metadata",
		"conversation_initiation_metadata_event": map[string]any{"conversation_id": "conv-9"},
	})
	waitForStatus(t, s, StatusConnected)

	info := s.Info()
	if info.AgentID != "agent-1" || info.ConversationID != "conv-9" {
		t.Errorf("unexpected info %+v", info)
	}
	if !hasNotice(sink, eventlog.CategorySuccess, "connected") {
		t.Error("expected success notice")
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if s.Status() != StatusIdle {
		t.Errorf("expected idle after disconnect, got %s", s.Status())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusConnecting, StatusConnected, StatusIdle}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestElevenLabs_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	agent := newFakeAgent(t, true)
	s := newTestSession(agent.url(), eventlog.NewSink())

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	hdr := <-agent.headers
	if hdr.Get("xi-api-key") != "" {
		t.Error("api key header should be omitted")
	}
}

func TestElevenLabs_ConnectTwice(t *testing.T) {
	agent := newFakeAgent(t, true)
	s := newTestSession(agent.url(), eventlog.NewSink())

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if err := s.Connect(context.Background(), "agent-1"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestElevenLabs_DisconnectDuringDialDropsStaleSocket(t *testing.T) {
	agent := newFakeAgent(t, false)

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var callsMu sync.Mutex
	s := NewElevenLabs(Config{
		BaseURL: agent.url(),
		APIKey: func(context.Context) string {
			callsMu.Lock()
			calls++
			first := calls == 1
			callsMu.Unlock()
			if first {
				close(entered)
				<-release
			}
			return ""
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	staleErr := make(chan error, 1)
	go func() {
		staleErr <- s.Connect(context.Background(), "agent-1")
	}()
	<-entered

	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := s.Connect(context.Background(), "agent-2"); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	defer s.Disconnect()

	s.mu.RLock()
	live := s.conn
	s.mu.RUnlock()

	close(release)
	select {
	case err := <-staleErr:
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected stale dial to return ErrNotConnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale connect did not return")
	}

	s.mu.RLock()
	current := s.conn
	s.mu.RUnlock()
	if current != live {
		t.Error("stale dial replaced the live connection")
	}
	if got := s.Info().AgentID; got != "agent-2" {
		t.Errorf("expected agent-2 to stay active, got %s", got)
	}
	if s.Status() != StatusConnecting {
		t.Errorf("expected second attempt still connecting, got %s", s.Status())
	}
}

func TestElevenLabs_ConnectAuthFailure(t *testing.T) {
	agent := newFakeAgent(t, true)
	sink := eventlog.NewSink()
	s := newTestSession(agent.url(), sink)

	err := s.Connect(context.Background(), "forbidden")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T %v", err, err)
	}
	if authErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", authErr.StatusCode)
	}
	if s.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", s.Status())
	}
	if s.Info().LastError == "" {
		t.Error("last error should be recorded")
	}
	if !hasNotice(sink, eventlog.CategoryError, "Voice connection failed") {
		t.Error("expected error notice")
	}
}

func TestElevenLabs_ConnectNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	s := newTestSession(url, eventlog.NewSink())
	err := s.Connect(context.Background(), "agent-1")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T %v", err, err)
	}
	if s.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", s.Status())
	}
}

func TestElevenLabs_PushContext(t *testing.T) {
	agent := newFakeAgent(t, true)
	s := newTestSession(agent.url(), eventlog.NewSink())

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()
	waitForStatus(t, s, StatusConnected)

	if err := s.PushContext(context.Background(), "They picked up a mug."); err != nil {
		t.Fatalf("push: %v", err)
	}

	msg := agent.expect(t, "contextual_update")
	if msg["text"] != "They picked up a mug." {
		t.Errorf("unexpected text %v", msg["text"])
	}
}

func TestElevenLabs_PushContextNotConnected(t *testing.T) {
	s := newTestSession("ws://127.0.0.1:1", eventlog.NewSink())

	err := s.PushContext(context.Background(), "hello")
	var pushErr *PushError
	if !errors.As(err, &pushErr) {
		t.Fatalf("expected *PushError, got %T", err)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Error("push error should wrap ErrNotConnected")
	}
}

func TestElevenLabs_PushContextWhileConnecting(t *testing.T) {
	agent := newFakeAgent(t, false)
	s := newTestSession(agent.url(), eventlog.NewSink())

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if err := s.PushContext(context.Background(), "too early"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected while connecting, got %v", err)
	}
}

func TestElevenLabs_AnswersPing(t *testing.T) {
	agent := newFakeAgent(t, true)
	s := newTestSession(agent.url(), eventlog.NewSink())

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()
	waitForStatus(t, s, StatusConnected)

	agent.send(t, map[string]any{"type": "ping", "ping_event": map[string]any{"event_id": 42}})

	msg := agent.expect(t, "pong")
	if id, _ := msg["event_id"].(float64); id != 42 {
		t.Errorf("expected event_id 42, got %v", msg["event_id"])
	}
}

func TestElevenLabs_TranscriptsAndErrorsReachNotices(t *testing.T) {
	agent := newFakeAgent(t, true)
	sink := eventlog.NewSink()
	s := newTestSession(agent.url(), sink)

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()
	waitForStatus(t, s, StatusConnected)

	agent.send(t, map[string]any{"type": "user_transcript", "user_transcription_event": map[string]any{"user_transcript": "what do you see"}})
	agent.send(t, map[string]any{"type": "agent_response", "agent_response_event": map[string]any{"agent_response": "a mug"}})
	agent.send(t, map[string]any{"type": "error", "message": "quota"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hasNotice(sink, eventlog.CategoryError, "quota") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !hasNotice(sink, eventlog.CategoryInfo, "You: what do you see") {
		t.Error("missing user transcript notice")
	}
	if !hasNotice(sink, eventlog.CategoryInfo, "Agent: a mug") {
		t.Error("missing agent response notice")
	}
	if !hasNotice(sink, eventlog.CategoryError, "Voice agent error: quota") {
		t.Error("missing error notice")
	}
}

func TestElevenLabs_RemoteCloseReturnsToIdle(t *testing.T) {
	agent := newFakeAgent(t, true)
	sink := eventlog.NewSink()
	s := newTestSession(agent.url(), sink)

	if err := s.Connect(context.Background(), "agent-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForStatus(t, s, StatusConnected)

	agent.close()
	waitForStatus(t, s, StatusIdle)

	if err := s.Disconnect(); err != nil {
		t.Errorf("disconnect after remote close: %v", err)
	}
}

func TestElevenLabs_DisconnectIdle(t *testing.T) {
	s := newTestSession("ws://127.0.0.1:1", eventlog.NewSink())
	if err := s.Disconnect(); err != nil {
		t.Errorf("disconnect idle: %v", err)
	}
}
