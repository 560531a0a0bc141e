package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"studycompanion/internal/app"
	"studycompanion/internal/config"
	"studycompanion/internal/ratelimit"
	"studycompanion/internal/server"
	"studycompanion/internal/util"
	"studycompanion/pkg/ai"
	"studycompanion/pkg/storage"
	"studycompanion/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var dataStore store.Store
	if cfg.DatabaseURL != "" {
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
	} else {
		slog.Warn("databaseURL not set, using in-memory store")
		dataStore = store.NewMemoryStore()
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init minio store: %v", err)
		}
	} else {
		objects, err = storage.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to init file store: %v", err)
		}
	}

	generator := ai.NewOpenAICompatGenerator(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, time.Duration(cfg.AITimeoutSeconds)*time.Second)

	appCore, err := app.New(app.Config{
		Store:          dataStore,
		Objects:        objects,
		Assistant:      ai.NewAssistant(generator),
		MaxUploadBytes: cfg.MaxUploadBytes,
		HistoryLimit:   cfg.HistoryLimit,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var limiter server.Limiter
	if cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "studycompanion:ratelimit", cfg.AICallsPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
		limiter = redisLimiter
	} else {
		slog.Warn("redisAddr not set, AI endpoints are not rate limited")
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Limiter:        limiter,
		TrustedProxies: trustedProxies,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("study companion listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
