package voicesession

import (
	"context"

	"github.com/eleven-am/vision-bridge/internal/eventlog"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
)

// Session is a live conversation with a hosted voice agent. Only the
// contextual-update channel is used by the bridge; audio I/O is handled
// elsewhere.
type Session interface {
	Connect(ctx context.Context, agentID string) error
	Disconnect() error
	PushContext(ctx context.Context, text string) error
	Status() Status
	OnStatusChange(fn func(Status))
}

// Notifier receives user-facing notices. *eventlog.Sink satisfies it.
type Notifier interface {
	Append(message string, category eventlog.Category) eventlog.Entry
}

type Info struct {
	Status         Status `json:"status"`
	AgentID        string `json:"agent_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

type noopNotifier struct{}

func (noopNotifier) Append(message string, category eventlog.Category) eventlog.Entry {
	return eventlog.Entry{Message: message, Category: category}
}
