package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"example.com/fitjournal/internal/api"
	"example.com/fitjournal/internal/backup"
	"example.com/fitjournal/internal/config"
	"example.com/fitjournal/internal/domain"
	"example.com/fitjournal/internal/events"
	"example.com/fitjournal/internal/logging"
	"example.com/fitjournal/internal/persistence/jsonfile"
	"example.com/fitjournal/internal/static"
	httptransport "example.com/fitjournal/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := jsonfile.NewStore(cfg.DBPath)
	if _, err := store.Load(ctx); err != nil {
		switch {
		case errors.Is(err, domain.ErrDocumentNotFound):
			logger.Fatal("journal document missing, run cmd/seed first", zap.String("path", cfg.DBPath), zap.Error(err))
		case errors.Is(err, domain.ErrCorruptState):
			logger.Warn("journal document is corrupt, reads will fail until it is repaired", zap.String("path", cfg.DBPath), zap.Error(err))
		default:
			logger.Warn("journal document could not be read", zap.String("path", cfg.DBPath), zap.Error(err))
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	var async *events.AsyncPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.ChallengeTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka close failed", zap.Error(err))
			}
		}()
		async = events.NewAsyncPublisher(producer, cfg.EventQueueSize, cfg.EventPublishTimeout, logger.Named("events"))
		go async.Start(ctx)
		publisher = async
	}

	assets, err := static.NewHandler(cfg.PublicRoot, cfg.DBPath, cfg.BackupDir)
	if err != nil {
		logger.Fatal("failed to open public root", zap.String("root", cfg.PublicRoot), zap.Error(err))
	}

	service := domain.NewService(store, publisher,
		domain.WithDefaultName(cfg.DefaultJoinName),
		domain.WithLogger(logger.Named("domain")),
	)

	handler := api.NewHandler(service, assets, logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	scheduler := cron.New()
	if cfg.BackupDir != "" {
		snapshotter := backup.NewSnapshotter(store, cfg.BackupDir, cfg.BackupKeep, logger.Named("backup"))
		if _, err := snapshotter.Schedule(scheduler, cfg.BackupSchedule); err != nil {
			logger.Fatal("invalid backup schedule", zap.String("schedule", cfg.BackupSchedule), zap.Error(err))
		}
		scheduler.Start()
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, api.Chain(mux, logger.Named("http")))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("fitjournal listening", zap.String("address", cfg.HTTPAddress), zap.String("db_path", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	<-scheduler.Stop().Done()

	cancel()
	if async != nil {
		async.Wait()
	}
}
