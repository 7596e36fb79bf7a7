package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/vision-bridge/internal/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideRedisClient(lc fx.Lifecycle, cfg *Config, logger *slog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Redis only backs the credential cache, so an outage degrades
			// rather than blocks startup.
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable, credential cache disabled until it recovers",
					"addr", cfg.RedisAddr, "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

func ProvideCredentialStore(cfg *Config, client *redis.Client, logger *slog.Logger) *credentials.Store {
	cache := credentials.NewRedisCache(client, cfg.CredentialTTL)
	return credentials.NewStore(cache, map[credentials.Name]string{
		credentials.VisionAPIKey: cfg.GeminiAPIKey,
		credentials.VoiceAgentID: cfg.ElevenLabsAgentID,
		credentials.VoiceAPIKey:  cfg.ElevenLabsAPIKey,
	}, logger)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideCredentialStore,
	),
)
