package vision

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	MaxOutputTokens = 100
	Temperature     = 0.1
	TopK            = 1
	CandidateCount  = 1

	// NoChangeToken is the exact reply the model gives when nothing
	// significant changed between frames.
	NoChangeToken = "NO_CHANGE"
)

// KeyFunc resolves the API key at call time.
type KeyFunc func(ctx context.Context) string

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	APIKey  KeyFunc
	Logger  *slog.Logger
}

// Observation is one analyzer verdict: either a short description of what
// changed or the "unchanged" sentinel.
type Observation struct {
	Text      string    `json:"text,omitempty"`
	Unchanged bool      `json:"unchanged"`
	At        time.Time `json:"at"`
}

func (o Observation) HasText() bool {
	return !o.Unchanged && o.Text != ""
}
