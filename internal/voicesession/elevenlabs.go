package voicesession

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/gorilla/websocket"
)

const (
	DefaultBaseURL = "wss://api.elevenlabs.io/v1/convai/conversation"

	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

type Config struct {
	BaseURL          string
	APIKey           func(ctx context.Context) string
	HandshakeTimeout time.Duration
	Notices          Notifier
	Logger           *slog.Logger
}

// ElevenLabs speaks the hosted conversational-agent websocket protocol.
type ElevenLabs struct {
	baseURL string
	apiKey  func(ctx context.Context) string
	dialer  websocket.Dialer
	notices Notifier
	logger  *slog.Logger

	mu             sync.RWMutex
	conn           *websocket.Conn
	status         Status
	agentID        string
	conversationID string
	lastErr        error
	listeners      []func(Status)
	// attempt advances on every Connect and Disconnect so a dial that
	// finishes late can tell it has been superseded.
	attempt        uint64

	writeMu sync.Mutex
}

func NewElevenLabs(cfg Config) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 15 * time.Second
	}
	if cfg.APIKey == nil {
		cfg.APIKey = func(context.Context) string { return "" }
	}
	if cfg.Notices == nil {
		cfg.Notices = noopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &ElevenLabs{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		dialer:  websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		notices: cfg.Notices,
		logger:  cfg.Logger.With("component", "voice_session"),
		status:  StatusIdle,
	}
}

func (e *ElevenLabs) Connect(ctx context.Context, agentID string) error {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		e.fail(ErrMissingAgentID)
		return ErrMissingAgentID
	}

	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return ErrAlreadyConnected
	}
	e.status = StatusConnecting
	e.attempt++
	attempt := e.attempt
	e.agentID = agentID
	e.conversationID = ""
	e.lastErr = nil
	e.mu.Unlock()
	e.emitStatus(StatusConnecting)

	wsURL, err := url.Parse(e.baseURL)
	if err != nil {
		return e.dialFailed(attempt, &NetworkError{Err: fmt.Errorf("invalid URL: %w", err)})
	}
	q := wsURL.Query()
	q.Set("agent_id", agentID)
	wsURL.RawQuery = q.Encode()

	headers := http.Header{}
	if key := e.apiKey(ctx); key != "" {
		headers.Set("xi-api-key", key)
	}

	e.logger.Info("connecting to voice agent", "agent_id", agentID)

	conn, resp, err := e.dialer.DialContext(ctx, wsURL.String(), headers)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return e.dialFailed(attempt, &AuthError{StatusCode: resp.StatusCode, Err: err})
			}
			return e.dialFailed(attempt, &NetworkError{StatusCode: resp.StatusCode, Err: err})
		}
		return e.dialFailed(attempt, &NetworkError{Err: err})
	}
	conn.SetReadLimit(maxMessageSize)

	e.mu.Lock()
	if e.attempt != attempt || e.status != StatusConnecting {
		e.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	e.conn = conn
	e.mu.Unlock()

	if err := e.write(ctx, conn, map[string]any{"type": "conversation_initiation_client_data"}); err != nil {
		e.teardown(conn, &NetworkError{Err: err})
		return &NetworkError{Err: err}
	}

	go e.readLoop(conn)
	return nil
}

func (e *ElevenLabs) dialFailed(attempt uint64, err error) error {
	e.mu.Lock()
	if e.attempt != attempt {
		e.mu.Unlock()
		e.logger.Debug("superseded voice dial failed", "error", err)
		return err
	}
	e.status = StatusIdle
	e.lastErr = err
	e.mu.Unlock()
	e.emitStatus(StatusIdle)

	e.logger.Warn("voice agent connection failed", "error", err)
	e.notices.Append(fmt.Sprintf("Voice connection failed: %v", err), eventlog.CategoryError)
	return err
}

func (e *ElevenLabs) fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.notices.Append(fmt.Sprintf("Voice connection failed: %v", err), eventlog.CategoryError)
}

func (e *ElevenLabs) Disconnect() error {
	e.mu.Lock()
	conn := e.conn
	wasIdle := e.status == StatusIdle
	e.attempt++
	e.conn = nil
	e.status = StatusIdle
	e.conversationID = ""
	e.mu.Unlock()

	if wasIdle {
		return nil
	}

	if conn != nil {
		e.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		e.writeMu.Unlock()
		conn.Close()
	}

	e.emitStatus(StatusIdle)
	e.logger.Info("disconnected from voice agent")
	e.notices.Append("Voice agent disconnected", eventlog.CategoryInfo)
	return nil
}

func (e *ElevenLabs) PushContext(ctx context.Context, text string) error {
	e.mu.RLock()
	conn := e.conn
	status := e.status
	e.mu.RUnlock()

	if status != StatusConnected || conn == nil {
		return &PushError{Err: ErrNotConnected}
	}

	if err := e.write(ctx, conn, contextualUpdate{Type: "contextual_update", Text: text}); err != nil {
		return &PushError{Err: err}
	}
	return nil
}

func (e *ElevenLabs) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *ElevenLabs) IsConnected() bool {
	return e.Status() == StatusConnected
}

func (e *ElevenLabs) Info() Info {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info := Info{
		Status:         e.status,
		AgentID:        e.agentID,
		ConversationID: e.conversationID,
	}
	if e.lastErr != nil {
		info.LastError = e.lastErr.Error()
	}
	return info
}

func (e *ElevenLabs) OnStatusChange(fn func(Status)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *ElevenLabs) emitStatus(s Status) {
	e.mu.RLock()
	listeners := make([]func(Status), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (e *ElevenLabs) write(ctx context.Context, conn *websocket.Conn, v any) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteJSON(v)
}

func (e *ElevenLabs) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				e.teardown(conn, nil)
			} else {
				e.teardown(conn, &NetworkError{Err: err})
			}
			return
		}

		var msg incoming
		if err := json.Unmarshal(data, &msg); err != nil {
			e.logger.Warn("failed to parse message", "error", err)
			continue
		}
		e.handleMessage(conn, msg)
	}
}

// teardown resets state after the read loop exits. It is a no-op when the
// connection was already replaced or closed by Disconnect.
func (e *ElevenLabs) teardown(conn *websocket.Conn, cause error) {
	e.mu.Lock()
	if e.conn != conn {
		e.mu.Unlock()
		return
	}
	e.conn = nil
	e.status = StatusIdle
	e.conversationID = ""
	if cause != nil {
		e.lastErr = cause
	}
	e.mu.Unlock()

	conn.Close()
	e.emitStatus(StatusIdle)

	if cause != nil {
		e.logger.Warn("voice agent connection lost", "error", cause)
		e.notices.Append(fmt.Sprintf("Voice connection lost: %v", cause), eventlog.CategoryError)
		return
	}
	e.logger.Info("voice agent closed the conversation")
	e.notices.Append("Voice agent disconnected", eventlog.CategoryInfo)
}

func (e *ElevenLabs) handleMessage(conn *websocket.Conn, msg incoming) {
	switch msg.Type {
	case "conversation_initiation_metadata":
		convID := ""
		if msg.InitiationMetadata != nil {
			convID = msg.InitiationMetadata.ConversationID
		}
		e.mu.Lock()
		if e.conn != conn {
			e.mu.Unlock()
			return
		}
		e.status = StatusConnected
		e.conversationID = convID
		e.mu.Unlock()

		e.emitStatus(StatusConnected)
		e.logger.Info("voice agent connected", "conversation_id", convID)
		e.notices.Append("Voice agent connected", eventlog.CategorySuccess)

	case "ping":
		eventID := 0
		if msg.PingEvent != nil {
			eventID = msg.PingEvent.EventID
		}
		if err := e.write(context.Background(), conn, pong{Type: "pong", EventID: eventID}); err != nil {
			e.logger.Debug("pong failed", "error", err)
		}

	case "user_transcript":
		if text := msg.userText(); text != "" {
			e.notices.Append("You: "+text, eventlog.CategoryInfo)
		}

	case "agent_response":
		if text := msg.agentText(); text != "" {
			e.notices.Append("Agent: "+text, eventlog.CategoryInfo)
		}

	case "error":
		text := msg.Message
		if text == "" {
			text = "unknown error"
		}
		e.logger.Warn("voice agent error", "code", msg.Code, "message", text)
		e.notices.Append("Voice agent error: "+text, eventlog.CategoryError)

	default:
		e.logger.Debug("unhandled message type", "type", msg.Type)
	}
}

type contextualUpdate struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pong struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

type incoming struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	InitiationMetadata *struct {
		ConversationID string `json:"conversation_id"`
	} `json:"conversation_initiation_metadata_event,omitempty"`
	PingEvent *struct {
		EventID int `json:"event_id"`
	} `json:"ping_event,omitempty"`
	UserTranscription *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`
	AgentResponse *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`
}

func (m incoming) userText() string {
	if m.UserTranscription != nil && m.UserTranscription.UserTranscript != "" {
		return m.UserTranscription.UserTranscript
	}
	return m.Text
}

func (m incoming) agentText() string {
	if m.AgentResponse != nil && m.AgentResponse.AgentResponse != "" {
		return m.AgentResponse.AgentResponse
	}
	return m.Text
}

var _ Session = (*ElevenLabs)(nil)
