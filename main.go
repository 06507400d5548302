package main

import (
	"context"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"door-tags/api"
	"door-tags/cache"
	"door-tags/config"
	"door-tags/preset"
	"door-tags/preview"
	"door-tags/session"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	logger := newLogger(cfg.LogLevel)

	c, err := newCache(cfg.Cache)
	if err != nil {
		logger.Fatal("failed to set up cache", "err", err)
	}
	defer c.Close()

	pm, err := preset.NewManager(cfg.PresetFile)
	if err != nil {
		logger.Fatal("failed to load presets", "err", err)
	}

	gen := preview.NewHTTPGenerator(cfg.PreviewURL, c, cfg.Cache.TTL.Std(), logger)
	manager := session.NewManager(cfg.SessionTTL.Std())

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.SweepSchedule, func() {
		if n := manager.Sweep(); n > 0 {
			logger.Info("swept idle sessions", "count", n)
		}
	}); err != nil {
		logger.Fatal("invalid sweep schedule", "schedule", cfg.SweepSchedule, "err", err)
	}
	sched.Start()
	defer sched.Stop()

	router := api.RegisterRoutes(manager, pm, gen, staticFiles, logger)

	logger.Info("door-tags listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Fatal("server error", "err", err)
	}
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})
}

func newCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisCache(context.Background(), cfg.RedisAddr)
	case "none":
		return cache.NewNullCache(), nil
	default:
		return cache.NewMemoryCache(), nil
	}
}
