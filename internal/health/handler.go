package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/vision-bridge/internal/bridge"
	"github.com/eleven-am/vision-bridge/internal/credentials"
	"github.com/eleven-am/vision-bridge/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Bridge     bridge.Status     `json:"bridge"`
	Voice      voicesession.Info `json:"voice"`
	LogEntries int               `json:"log_entries"`
	Requests   RequestStats      `json:"requests"`
	Runtime    RuntimeStats      `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type BridgeStatus interface {
	Status() bridge.Status
}

type VoiceStatus interface {
	Info() voicesession.Info
}

type CredentialChecker interface {
	Has(ctx context.Context, name credentials.Name) bool
}

type CameraStatus interface {
	Ready() bool
}

type LogCounter interface {
	Len() int
}

type Deps struct {
	Redis       *redis.Client
	Bridge      BridgeStatus
	Voice       VoiceStatus
	Credentials CredentialChecker
	Camera      CameraStatus
	Log         LogCounter
	Version     string
}

type Handler struct {
	deps      Deps
	startTime time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:      deps,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

// Middleware counts requests and in-flight connections for the stats block.
func (h *Handler) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddUint64(&h.totalRequests, 1)
			atomic.AddInt64(&h.activeConnections, 1)
			defer atomic.AddInt64(&h.activeConnections, -1)
			return next(c)
		}
	}
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"redis", h.checkRedis},
		{"vision_credentials", h.checkCredential(credentials.VisionAPIKey)},
		{"voice_credentials", h.checkCredential(credentials.VoiceAgentID)},
		{"camera", h.checkCamera},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := Stats{
		Requests: RequestStats{
			TotalRequests:     atomic.LoadUint64(&h.totalRequests),
			ActiveConnections: atomic.LoadInt64(&h.activeConnections),
		},
		Runtime: RuntimeStats{
			Goroutines:         runtime.NumGoroutine(),
			MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
			MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
			MemorySysMB:        memStats.Sys / 1024 / 1024,
			NumGC:              memStats.NumGC,
		},
	}
	if h.deps.Bridge != nil {
		stats.Bridge = h.deps.Bridge.Status()
	}
	if h.deps.Voice != nil {
		stats.Voice = h.deps.Voice.Info()
	}
	if h.deps.Log != nil {
		stats.LogEntries = h.deps.Log.Len()
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:        computeOverallStatus(components),
		Timestamp:     time.Now().UTC(),
		Version:       h.deps.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats:         stats,
		Components:    components,
	})
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.deps.Redis == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "redis not configured",
		}
	}

	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkCredential(name credentials.Name) func(context.Context) ComponentStatus {
	return func(ctx context.Context) ComponentStatus {
		start := time.Now()
		if h.deps.Credentials == nil || !h.deps.Credentials.Has(ctx, name) {
			return ComponentStatus{
				Status:    StatusDegraded,
				LatencyMs: time.Since(start).Milliseconds(),
				Error:     string(name) + " not set",
			}
		}
		return ComponentStatus{
			Status:    StatusHealthy,
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
}

func (h *Handler) checkCamera(ctx context.Context) ComponentStatus {
	if h.deps.Camera == nil || !h.deps.Camera.Ready() {
		return ComponentStatus{Status: StatusDegraded, Error: "no camera frames"}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// computeOverallStatus never reports unhealthy: every component here is
// optional for the process to keep serving.
func computeOverallStatus(components map[string]ComponentStatus) Status {
	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}
