package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"microsocial/internal/auth"
	"microsocial/internal/config"
	"microsocial/internal/database"
	handlers "microsocial/internal/handler"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
	"microsocial/internal/server"
	"microsocial/internal/service"
	"microsocial/internal/storage"
)

type App struct {
	Server *server.Server

	db    *database.DB
	redis *redis.Client
	log   *zap.Logger
}

// New connects to every configured backend and wires the layers together.
// Redis and MinIO are optional: without them realtime delivery and image
// uploads are disabled.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.ConnectDB(cfg, log.Named("database"))
	if err != nil {
		return nil, err
	}

	a := &App{db: db, log: log}

	var store storage.Storage
	if cfg.MinIO.Enabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		store = minioClient
		log.Info("object storage enabled", zap.String("bucket", cfg.MinIO.BucketName))
	} else {
		log.Warn("MINIO_ENDPOINT not set, image uploads are disabled")
	}

	var notifier realtime.Notifier = realtime.NopNotifier{}
	var realtimeServer handlers.RealtimeServer
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		notifier = realtime.NewRedisNotifier(a.redis, cfg.Redis.Channel, log.Named("notifier"))

		hub := realtime.NewHub(cfg.Server.AllowedOrigin, log.Named("hub"))
		go hub.Run(ctx, a.redis, cfg.Redis.Channel)
		realtimeServer = hub
	} else {
		log.Warn("REDIS_URL not set, realtime updates are disabled")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecretKey, cfg.AccessTokenDuration)
	if err != nil {
		a.Close()
		return nil, err
	}

	providers := auth.NewProviders(cfg.OAuth)
	if len(providers) == 0 {
		log.Warn("no OAuth providers configured, sign-in is unavailable")
	}

	repo := repository.NewRepository(db.DB)
	services := service.NewService(repo, cfg, tokens, providers, store, notifier, log)
	h := handlers.NewHandlers(services, providers, realtimeServer, db, cfg, log.Named("http"))

	a.Server = server.New(cfg, h, tokens, log.Named("http"))
	return a, nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("closing redis", zap.Error(err))
		}
	}
	if err := a.db.CloseDB(); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
}
