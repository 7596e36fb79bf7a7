package bootstrap

import (
	"github.com/eleven-am/vision-bridge/internal/bridge"
	"github.com/eleven-am/vision-bridge/internal/credentials"
	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/eleven-am/vision-bridge/internal/frame"
	"github.com/eleven-am/vision-bridge/internal/health"
	"github.com/eleven-am/vision-bridge/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type HealthParams struct {
	fx.In

	Redis       *redis.Client
	Loop        *bridge.Loop
	Voice       *voicesession.ElevenLabs
	Credentials *credentials.Store
	Camera      *frame.LiveSource
	Sink        *eventlog.Sink
}

func ProvideHealthHandler(p HealthParams) *health.Handler {
	return health.NewHandler(health.Deps{
		Redis:       p.Redis,
		Bridge:      p.Loop,
		Voice:       p.Voice,
		Credentials: p.Credentials,
		Camera:      p.Camera,
		Log:         p.Sink,
		Version:     version,
	})
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.Middleware())
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
