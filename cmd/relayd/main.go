package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ctlst/telegramollamabot/internal/api"
	"github.com/ctlst/telegramollamabot/internal/config"
	"github.com/ctlst/telegramollamabot/internal/history"
	"github.com/ctlst/telegramollamabot/internal/ollama"
	"github.com/ctlst/telegramollamabot/internal/redis"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "relayd",
	})

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RELAY_CONFIG"))
	if err != nil {
		logger.Fatal("loading configuration failed", "err", err)
	}

	var store history.Store = history.NewMemoryStore()
	if cfg.Redis != nil {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			logger.Fatal("connecting to redis failed", "err", err)
		}
		defer client.Close()
		ttl := time.Duration(cfg.BasicConfig.HistoryTTLMinutes) * time.Minute
		store = history.NewRedisStore(client, ttl)
		logger.Info("using redis history store", "host", cfg.Redis.Host, "ttl", ttl)
	}

	svc, err := ollama.NewService(context.Background(), cfg, store, logger)
	if err != nil {
		logger.Fatal("initializing ollama service failed", "err", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.RequestID(), api.RequestLogger(logger), api.Recovery(logger))
	api.NewHandler(svc).RegisterRoutes(router)

	logger.Info("relay listening", "addr", cfg.BasicConfig.ServerAddress, "ollama", cfg.Ollama.BaseURL)
	if err := router.Run(cfg.BasicConfig.ServerAddress); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}
