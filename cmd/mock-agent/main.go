// Command mock-agent is a local stand-in for the hosted conversational
// agent. Point VOICE_BASE_URL at it to exercise the bridge without an
// account: it acknowledges the conversation, pings, and answers every
// contextual update with a short agent response.
package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const pingInterval = 10 * time.Second

type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type agentConn struct {
	conn *websocket.Conn
	log  *slog.Logger
	mu   sync.Mutex
}

func (a *agentConn) send(v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteJSON(v)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := os.Getenv("MOCK_AGENT_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	apiKey := os.Getenv("MOCK_AGENT_API_KEY")

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" {
			http.Error(w, "agent_id required", http.StatusBadRequest)
			return
		}
		if apiKey != "" && r.Header.Get("xi-api-key") != apiKey {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		a := &agentConn{conn: conn, log: logger.With("agent_id", agentID)}
		a.serve()
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		srv.Close()
	}()

	logger.Info("mock agent listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func (a *agentConn) serve() {
	defer a.conn.Close()

	done := make(chan struct{})
	defer close(done)
	go a.pingLoop(done)

	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			a.log.Info("client gone", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			a.log.Warn("bad message", "error", err)
			continue
		}

		switch msg.Type {
		case "conversation_initiation_client_data":
			conversationID := uuid.NewString()
			a.log.Info("conversation started", "conversation_id", conversationID)
			err = a.send(map[string]any{
				"type": "conversation_initiation_metadata",
				"conversation_initiation_metadata_event": map[string]any{
					"conversation_id": conversationID,
				},
			})
		case "contextual_update":
			a.log.Info("contextual update", "text", msg.Text)
			err = a.send(map[string]any{
				"type": "agent_response",
				"agent_response_event": map[string]any{
					"agent_response": "Noted: " + msg.Text,
				},
			})
		case "pong":
		default:
			a.log.Debug("ignoring message", "type", msg.Type)
		}

		if err != nil {
			a.log.Warn("write failed", "error", err)
			return
		}
	}
}

func (a *agentConn) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	eventID := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			eventID++
			if err := a.send(map[string]any{
				"type":       "ping",
				"ping_event": map[string]any{"event_id": eventID},
			}); err != nil {
				return
			}
		}
	}
}
