package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/vision-bridge/internal/bridge"
	"github.com/eleven-am/vision-bridge/internal/credentials"
	"github.com/eleven-am/vision-bridge/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type stubBridge struct{ st bridge.Status }

func (s stubBridge) Status() bridge.Status { return s.st }

type stubVoice struct{ info voicesession.Info }

func (s stubVoice) Info() voicesession.Info { return s.info }

type stubCreds map[credentials.Name]bool

func (s stubCreds) Has(_ context.Context, name credentials.Name) bool { return s[name] }

type stubCamera bool

func (s stubCamera) Ready() bool { return bool(s) }

type stubLog int

func (s stubLog) Len() int { return int(s) }

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func readiness(t *testing.T, h *Handler) (int, HealthResponse) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	e := echo.New()
	NewHandler(Deps{}).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness_AllHealthy(t *testing.T) {
	client, _ := newTestRedis(t)
	h := NewHandler(Deps{
		Redis:       client,
		Bridge:      stubBridge{bridge.Status{State: bridge.VisionActive, Active: true}},
		Voice:       stubVoice{voicesession.Info{Status: voicesession.StatusConnected}},
		Credentials: stubCreds{credentials.VisionAPIKey: true, credentials.VoiceAgentID: true},
		Camera:      stubCamera(true),
		Log:         stubLog(7),
		Version:     "test",
	})

	code, resp := readiness(t, h)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s (%+v)", resp.Status, resp.Components)
	}
	if resp.Stats.Bridge.State != bridge.VisionActive {
		t.Errorf("expected bridge state in stats, got %+v", resp.Stats.Bridge)
	}
	if resp.Stats.Voice.Status != voicesession.StatusConnected {
		t.Errorf("expected voice status in stats, got %+v", resp.Stats.Voice)
	}
	if resp.Stats.LogEntries != 7 || resp.Version != "test" {
		t.Errorf("unexpected stats %+v", resp)
	}
}

func TestReadiness_RedisDownIsDegraded(t *testing.T) {
	client, mr := newTestRedis(t)
	mr.Close()

	h := NewHandler(Deps{
		Redis:       client,
		Credentials: stubCreds{credentials.VisionAPIKey: true, credentials.VoiceAgentID: true},
		Camera:      stubCamera(true),
	})

	code, resp := readiness(t, h)
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	if resp.Components["redis"].Status != StatusUnhealthy {
		t.Errorf("expected redis unhealthy, got %+v", resp.Components["redis"])
	}
}

func TestReadiness_MissingCredentials(t *testing.T) {
	client, _ := newTestRedis(t)
	h := NewHandler(Deps{Redis: client, Credentials: stubCreds{}, Camera: stubCamera(false)})

	_, resp := readiness(t, h)
	if resp.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	for _, name := range []string{"vision_credentials", "voice_credentials", "camera"} {
		if resp.Components[name].Status != StatusDegraded {
			t.Errorf("%s: expected degraded, got %+v", name, resp.Components[name])
		}
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	h := NewHandler(Deps{})
	e := echo.New()
	e.Use(h.Middleware())
	h.RegisterRoutes(e)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	_, resp := readiness(t, h)
	if resp.Stats.Requests.TotalRequests != 3 {
		t.Errorf("expected 3 counted requests, got %d", resp.Stats.Requests.TotalRequests)
	}
	if resp.Stats.Requests.ActiveConnections != 0 {
		t.Errorf("expected no active connections, got %d", resp.Stats.Requests.ActiveConnections)
	}
}

func TestComputeOverallStatus(t *testing.T) {
	if computeOverallStatus(map[string]ComponentStatus{"a": {Status: StatusHealthy}}) != StatusHealthy {
		t.Error("all healthy should be healthy")
	}
	if computeOverallStatus(map[string]ComponentStatus{"a": {Status: StatusUnhealthy}}) != StatusDegraded {
		t.Error("unhealthy component should degrade, not fail, the service")
	}
}
