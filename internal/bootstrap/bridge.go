package bootstrap

import (
	"context"
	"log/slog"

	_ "github.com/eleven-am/vision-bridge/docs"
	"github.com/eleven-am/vision-bridge/internal/bridge"
	"github.com/eleven-am/vision-bridge/internal/credentials"
	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/eleven-am/vision-bridge/internal/frame"
	"github.com/eleven-am/vision-bridge/internal/realtime"
	"github.com/eleven-am/vision-bridge/internal/vision"
	"github.com/eleven-am/vision-bridge/internal/voicesession"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
)

func ProvideLiveSource(logger *slog.Logger) *frame.LiveSource {
	return frame.NewLiveSource(frame.SourceConfig{Logger: logger})
}

func ProvideVisionClient(cfg *Config, creds *credentials.Store, logger *slog.Logger) *vision.Client {
	return vision.NewClient(vision.Config{
		BaseURL: cfg.VisionBaseURL,
		APIKey:  creds.Func(credentials.VisionAPIKey),
		Logger:  logger,
	})
}

func ProvideVoiceSession(lc fx.Lifecycle, cfg *Config, creds *credentials.Store, sink *eventlog.Sink, logger *slog.Logger) *voicesession.ElevenLabs {
	session := voicesession.NewElevenLabs(voicesession.Config{
		BaseURL: cfg.VoiceBaseURL,
		APIKey:  creds.Func(credentials.VoiceAPIKey),
		Notices: sink,
		Logger:  logger,
	})

	lc.Append(fx.StopHook(session.Disconnect))
	return session
}

type LoopParams struct {
	fx.In

	Source *frame.LiveSource
	Vision *vision.Client
	Voice  *voicesession.ElevenLabs
	Sink   *eventlog.Sink
	Meters metric.MeterProvider
	Logger *slog.Logger
	Lc     fx.Lifecycle
}

func ProvideBridgeLoop(p LoopParams) (*bridge.Loop, error) {
	loop, err := bridge.NewLoop(bridge.Config{
		Source:        p.Source,
		Analyzer:      p.Vision,
		Voice:         p.Voice,
		Notices:       p.Sink,
		MeterProvider: p.Meters,
		Logger:        p.Logger,
	})
	if err != nil {
		return nil, err
	}

	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			loop.Close()
			return nil
		},
	})

	return loop, nil
}

func ProvideRTCConfig(cfg *Config) realtime.Config {
	iceServers := make([]realtime.ICEServerConfig, 0, len(cfg.RTCICEServers))
	for _, s := range cfg.RTCICEServers {
		iceServers = append(iceServers, realtime.ICEServerConfig{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	return realtime.Config{
		ICEServers: iceServers,
		PortRange: realtime.PortRange{
			Min: cfg.RTCPortMin,
			Max: cfg.RTCPortMax,
		},
	}
}

func ProvideRTCManager(lc fx.Lifecycle, cfg realtime.Config) (*realtime.Manager, error) {
	mgr, err := realtime.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(mgr.RemoveAll))
	return mgr, nil
}

type RouteParams struct {
	fx.In

	Echo        *echo.Echo
	Logger      *slog.Logger
	Source      *frame.LiveSource
	Loop        *bridge.Loop
	Voice       *voicesession.ElevenLabs
	Sink        *eventlog.Sink
	Credentials *credentials.Store
	RTC         *realtime.Manager
}

func RegisterRoutes(p RouteParams) {
	api := p.Echo.Group("/api/v1")

	frame.NewHandler(p.Source, p.Logger).RegisterRoutes(api.Group("/frames"))
	bridge.NewHandler(p.Loop, p.Logger).RegisterRoutes(api.Group("/vision"))
	voicesession.NewHandler(p.Voice, p.Credentials.Func(credentials.VoiceAgentID), p.Logger).
		RegisterRoutes(api.Group("/voice"))
	eventlog.NewHandler(p.Sink, p.Logger).RegisterRoutes(api.Group("/logs"))
	credentials.NewHandler(p.Credentials, p.Logger).RegisterRoutes(api.Group("/credentials"))
	realtime.NewHandler(p.RTC, p.Source, p.Logger).RegisterRoutes(api.Group("/rtc"))

	p.Echo.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

var BridgeModule = fx.Options(
	fx.Provide(
		eventlog.NewSink,
		ProvideLiveSource,
		ProvideVisionClient,
		ProvideVoiceSession,
		ProvideBridgeLoop,
		ProvideRTCConfig,
		ProvideRTCManager,
	),
	fx.Invoke(RegisterRoutes),
)
