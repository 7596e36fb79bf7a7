package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eleven-am/vision-bridge/internal/frame"
)

const maxErrorBody = 64 * 1024

// Client asks the Gemini generateContent endpoint what changed between two
// camera snapshots.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     KeyFunc
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKey == nil {
		cfg.APIKey = func(context.Context) string { return "" }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		logger:     cfg.Logger.With("component", "vision_client"),
		now:        time.Now,
	}
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Analyze sends the current snapshot, plus the previous snapshot and prior
// description when present, and returns the model's observation.
func (c *Client) Analyze(ctx context.Context, current, previous *frame.Snapshot, last *Observation) (Observation, error) {
	if current == nil || len(current.Data) == 0 {
		return Observation{}, &AnalysisError{Kind: KindUnknown, Message: "no frame data provided"}
	}

	key := c.apiKey(ctx)
	if key == "" {
		return Observation{}, &AnalysisError{Kind: KindAuth, Err: ErrMissingAPIKey}
	}

	body, err := json.Marshal(buildRequest(current, previous, last))
	if err != nil {
		return Observation{}, &AnalysisError{Kind: KindUnknown, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Observation{}, &AnalysisError{Kind: KindUnknown, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Observation{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return Observation{}, classifyTransport(err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		apiStatus := ""
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
			apiStatus = parsed.Error.Status
		}
		return Observation{}, &AnalysisError{
			Kind:    classifyResponse(resp.StatusCode, apiStatus, msg),
			Status:  resp.StatusCode,
			Message: truncate(msg, 200),
		}
	}
	if decodeErr != nil {
		return Observation{}, &AnalysisError{Kind: KindUnknown, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return Observation{}, &AnalysisError{
			Kind:    classifyResponse(parsed.Error.Code, parsed.Error.Status, parsed.Error.Message),
			Status:  parsed.Error.Code,
			Message: parsed.Error.Message,
		}
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return Observation{}, &AnalysisError{
			Kind:    KindSafety,
			Message: "prompt blocked: " + parsed.PromptFeedback.BlockReason,
		}
	}

	var text strings.Builder
	if len(parsed.Candidates) > 0 {
		cand := parsed.Candidates[0]
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() == 0 && isSafetyReason(cand.FinishReason) {
			return Observation{}, &AnalysisError{
				Kind:    KindSafety,
				Message: "response blocked: " + cand.FinishReason,
			}
		}
	}

	obs := parseReply(text.String())
	obs.At = c.now()

	c.logger.Debug("analysis complete",
		"unchanged", obs.Unchanged,
		"has_previous", previous != nil,
		"duration_ms", c.now().Sub(start).Milliseconds(),
	)
	return obs, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

