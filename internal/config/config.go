// Package config centralises configuration parsing for the journal service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config captures runtime configuration values for the journal service.
type Config struct {
	HTTPAddress     string        `yaml:"http_address"`
	DBPath          string        `yaml:"db_path"`
	PublicRoot      string        `yaml:"public_root"`
	DefaultJoinName string        `yaml:"default_join_name"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Log LogConfig `yaml:"log"`

	KafkaBrokers        []string      `yaml:"kafka_brokers"` // Empty disables event publishing.
	ChallengeTopic      string        `yaml:"challenge_topic"`
	EventQueueSize      int           `yaml:"event_queue_size"`
	EventPublishTimeout time.Duration `yaml:"event_publish_timeout"`

	BackupDir      string `yaml:"backup_dir"` // Empty disables snapshots.
	BackupSchedule string `yaml:"backup_schedule"`
	BackupKeep     int    `yaml:"backup_keep"`

	SeedGoalText string `yaml:"seed_goal_text"`
}

// Defaults returns the configuration used for local development.
func Defaults() Config {
	return Config{
		HTTPAddress:     ":4000",
		DBPath:          "server/data/db.json",
		PublicRoot:      ".",
		DefaultJoinName: "访客",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		ChallengeTopic:      "challenge_events",
		EventQueueSize:      256,
		EventPublishTimeout: 5 * time.Second,
		BackupSchedule:      "@hourly",
		BackupKeep:          24,
		SeedGoalText:        "三大项总和突破 350kg",
	}
}

// Load applies CONFIG_FILE (YAML) over the defaults, then environment variables over both.
func Load() (Config, error) {
	cfg := Defaults()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.PublicRoot = getEnv("PUBLIC_ROOT", cfg.PublicRoot)
	cfg.DefaultJoinName = getEnv("DEFAULT_JOIN_NAME", cfg.DefaultJoinName)
	cfg.ReadTimeout = getDurationEnv("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getDurationEnv("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = getDurationEnv("IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getIntEnv("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getIntEnv("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getIntEnv("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.ChallengeTopic = getEnv("CHALLENGE_TOPIC", cfg.ChallengeTopic)
	cfg.EventQueueSize = getIntEnv("EVENT_QUEUE_SIZE", cfg.EventQueueSize)
	cfg.EventPublishTimeout = getDurationEnv("EVENT_PUBLISH_TIMEOUT", cfg.EventPublishTimeout)

	cfg.BackupDir = getEnv("BACKUP_DIR", cfg.BackupDir)
	cfg.BackupSchedule = getEnv("BACKUP_SCHEDULE", cfg.BackupSchedule)
	cfg.BackupKeep = getIntEnv("BACKUP_KEEP", cfg.BackupKeep)

	cfg.SeedGoalText = getEnv("SEED_GOAL_TEXT", cfg.SeedGoalText)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
