package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/gmllt/taskboard/internal/api"
	"github.com/gmllt/taskboard/internal/board"
	"github.com/gmllt/taskboard/internal/storage"
)

func newLogger(cfg LogConfig) (*log.Logger, error) {
	logger := log.New()
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger, nil
}

func main() {
	configPath := flag.String("config", "config.yml", "path to a YAML or TOML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to init storage: %v", err)
	}
	defer closeKV()

	adapter := storage.NewAdapter(kv, logger.WithField("component", "storage"))
	if !adapter.CheckAvailability(ctx) {
		logger.Warn("storage is not writable, changes will fail until it recovers")
	}
	store := board.NewStore(adapter, board.WithLogger(logger.WithField("component", "board")))
	if err := store.Initialize(ctx); err != nil {
		logger.Fatalf("Failed to init board: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	h := api.NewHandler(store, adapter, logger.WithField("component", "api"), api.NewMetrics(reg))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           h.Router(cfg.StaticDir, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(log.Fields{"addr": cfg.Listen, "storage": cfg.Storage.Backend}).Info("Kanban server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Kanban server stopped")
}
