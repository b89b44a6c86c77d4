package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"example.com/fitjournal/internal/config"
	"example.com/fitjournal/internal/domain"
	"example.com/fitjournal/internal/logging"
	"example.com/fitjournal/internal/persistence/jsonfile"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("failed to load config", zap.Error(err))
		return 1
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()

	store := jsonfile.NewStore(cfg.DBPath)
	err = seed(context.Background(), store, cfg.SeedGoalText)
	switch {
	case err == nil:
		logger.Info("journal document created", zap.String("path", cfg.DBPath), zap.String("goal_text", cfg.SeedGoalText))
		return 0
	case errors.Is(err, domain.ErrDocumentExists):
		logger.Info("journal document already exists, leaving it untouched", zap.String("path", cfg.DBPath))
		return 0
	default:
		logger.Error("failed to seed journal document", zap.String("path", cfg.DBPath), zap.Error(err))
		return 1
	}
}

func seed(ctx context.Context, store *jsonfile.Store, goalText string) error {
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		return err
	}
	return store.Create(ctx, domain.NewDatabase(goalText))
}
