package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/eleven-am/vision-bridge/internal/frame"
)

func staticKey(key string) KeyFunc {
	return func(context.Context) string { return key }
}

func testSnapshot(b byte) *frame.Snapshot {
	return &frame.Snapshot{Data: []byte{0xff, 0xd8, b}, Width: 640, Height: 360}
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL: url,
		APIKey:  staticKey("test-key"),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func textResponse(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{})
	if client.baseURL != DefaultBaseURL {
		t.Errorf("expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
	}
	if client.model != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, client.model)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", client.httpClient.Timeout)
	}
	if client.apiKey(context.Background()) != "" {
		t.Error("default key func should return empty")
	}
}

func TestClient_Analyze_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("x-goog-api-key"))
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		cfg := req.GenerationConfig
		if cfg.MaxOutputTokens != 100 || cfg.Temperature != 0.1 || cfg.TopK != 1 || cfg.CandidateCount != 1 {
			t.Errorf("unexpected generation config: %+v", cfg)
		}
		if !strings.Contains(req.SystemInstruction.Parts[0].Text, "NO_CHANGE") {
			t.Error("system instruction should mention the sentinel")
		}

		parts := req.Contents[0].Parts
		if len(parts) != 5 {
			t.Fatalf("expected 5 parts (context, previous label+image, current label+image), got %d", len(parts))
		}
		if parts[0].Text != "Prior description: A person sits at a desk." {
			t.Errorf("unexpected context part %q", parts[0].Text)
		}
		if parts[2].InlineData == nil || parts[2].InlineData.MimeType != "image/jpeg" {
			t.Error("expected previous image part")
		}
		if parts[4].InlineData == nil || parts[4].InlineData.Data != testSnapshot(2).Base64() {
			t.Error("expected current image as last part")
		}

		io.WriteString(w, textResponse("They stood up."))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	last := &Observation{Text: "A person sits at a desk."}
	obs, err := client.Analyze(context.Background(), testSnapshot(2), testSnapshot(1), last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Unchanged || obs.Text != "They stood up." {
		t.Errorf("unexpected observation: %+v", obs)
	}
	if obs.At.IsZero() {
		t.Error("observation time should be set")
	}
}

func TestClient_Analyze_FirstCallOnlyCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if n := len(req.Contents[0].Parts); n != 2 {
			t.Errorf("expected only current label and image, got %d parts", n)
		}
		io.WriteString(w, textResponse("A desk by a window."))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).Analyze(context.Background(), testSnapshot(1), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Text != "A desk by a window." {
		t.Errorf("unexpected text %q", obs.Text)
	}
}

func TestClient_Analyze_Sentinel(t *testing.T) {
	replies := []string{"NO_CHANGE", "no_change", "  NO_CHANGE.\n", "`NO_CHANGE`", ""}
	for _, reply := range replies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, textResponse(reply))
		}))

		obs, err := newTestClient(server.URL).Analyze(context.Background(), testSnapshot(1), nil, nil)
		server.Close()
		if err != nil {
			t.Fatalf("reply %q: unexpected error %v", reply, err)
		}
		if !obs.Unchanged {
			t.Errorf("reply %q should be unchanged", reply)
		}
		if obs.HasText() {
			t.Errorf("reply %q should carry no text", reply)
		}
	}
}

func TestClient_Analyze_MissingKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Analyze(context.Background(), testSnapshot(1), nil, nil)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if KindOf(err) != KindAuth {
		t.Errorf("expected auth kind, got %s", KindOf(err))
	}
}

func TestClient_Analyze_NoFrame(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Analyze(context.Background(), nil, nil, nil)
	if err == nil {
		t.Fatal("expected error without a frame")
	}
}

func TestClient_Analyze_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"rate limit status", 429, `{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`, KindRateLimit},
		{"unauthorized", 401, `{"error":{"code":401,"message":"bad","status":"UNAUTHENTICATED"}}`, KindAuth},
		{"invalid key as 400", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, KindAuth},
		{"unavailable", 503, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`, KindNetwork},
		{"quota in message", 400, `{"error":{"code":400,"message":"Quota exceeded for metric"}}`, KindRateLimit},
		{"unknown", 500, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, KindUnknown},
		{"non json", 500, `oops`, KindUnknown},
		{"prompt blocked", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, KindSafety},
		{"finish safety", 200, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`, KindSafety},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Analyze(context.Background(), testSnapshot(1), nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *AnalysisError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *AnalysisError, got %T", err)
			}
			if ae.Kind != tt.want {
				t.Errorf("expected kind %s, got %s (%v)", tt.want, ae.Kind, err)
			}
		})
	}
}

func TestClient_Analyze_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Analyze(context.Background(), testSnapshot(1), nil, nil)
	if KindOf(err) != KindNetwork {
		t.Errorf("expected network kind, got %s (%v)", KindOf(err), err)
	}
}

func TestClient_Analyze_KeyReadPerCall(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("x-goog-api-key"))
		io.WriteString(w, textResponse("NO_CHANGE"))
	}))
	defer server.Close()

	key := "first"
	client := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  func(context.Context) string { return key },
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	client.Analyze(context.Background(), testSnapshot(1), nil, nil)
	key = "second"
	client.Analyze(context.Background(), testSnapshot(1), nil, nil)

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Errorf("expected key to be resolved per call, got %v", seen)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "quota", 10, "quota"},
		{"ascii", "quota exceeded", 5, "quota..."},
		{"inside rune", "caf\u00e9 ferm\u00e9", 4, "caf..."},
		{"rune boundary", "caf\u00e9 ferm\u00e9", 5, "caf\u00e9..."},
		{"wide runes", "\u8d85\u51fa\u914d\u989d", 7, "\u8d85\u51fa..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.n, got)
			}
		})
	}
}
