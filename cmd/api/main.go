package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tiremarket/internal/config"
	"tiremarket/internal/db"
	httpserver "tiremarket/internal/http"
	"tiremarket/internal/logging"
	"tiremarket/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if !cfg.EnvFileLoaded {
		logger.Debug("no .env file found, using process environment")
	}

	gdb, err := db.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Fatal("failed to connect database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := db.AutoMigrate(gdb); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	cat, err := seed.LoadCatalog(cfg.SeedCatalog)
	if err != nil {
		logger.Fatal("failed to load seed catalog", zap.String("path", cfg.SeedCatalog), zap.Error(err))
	}
	sum, err := seed.FirstSetup(gdb, cat)
	if err != nil {
		logger.Fatal("first setup failed", zap.Error(err))
	}
	logger.Info("first setup done",
		zap.String("org", sum.OrgSlug),
		zap.Strings("roles", sum.Roles),
		zap.Int("brands", sum.Brands),
		zap.Int("diameters", sum.Diameters),
	)

	r := httpserver.NewRouter(gdb, httpserver.Options{
		JWTSecret:     cfg.JWTSecret,
		DefaultLocale: cfg.DefaultLocale,
		Logger:        logger,
	})
	logger.Info("server listening", zap.String("port", cfg.AppPort), zap.String("locale", string(cfg.DefaultLocale)))
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
