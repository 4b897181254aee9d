package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"heartrisk/config"
	qhttp "heartrisk/http"
	"heartrisk/logging"
	"heartrisk/ml"
	"heartrisk/monitoring"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(filepath.Join("..", configPath)); err == nil {
			configPath = filepath.Join("..", configPath)
		}
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.String("path", configPath), zap.Error(err))
	}

	// 2. Logger
	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Development: cfg.Log.Development,
	})
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 3. Load artifacts once; the service refuses to start without them
	paths := ml.ArtifactPaths{
		Schema:    cfg.Artifacts.Schema,
		Scaler:    cfg.Artifacts.Scaler,
		Model:     cfg.Artifacts.Model,
		ModelType: cfg.Artifacts.ModelType,
	}
	registry, err := ml.NewRegistry(paths, cfg.Cache.Size, logger.Named("ml"))
	if err != nil {
		logger.Fatal("failed to load artifacts", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Artifacts.Watch {
		go func() {
			if err := registry.Watch(ctx); err != nil {
				logger.Error("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	// 4. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	serverConfig.Timeout = cfg.Http.Timeout
	serverConfig.AllowedOrigins = cfg.Http.AllowedOrigins

	handler := qhttp.NewHandler(registry, monitoring.NewMetricsCollector(), cfg.Http.AllowedOrigins, logger.Named("http"))
	server := qhttp.NewServer(serverConfig, handler, logger.Named("http"))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting", zap.Int64("artifact_reloads", registry.Reloads()))
}
