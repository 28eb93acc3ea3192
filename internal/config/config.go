package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	GameTTL   time.Duration
	MoveRetry int

	NotifyBaseURL string
	NotifyWSURL   string
	NotifyMode    string
	NotifyDryRun  bool
	NotifyAPIKey  string
	NotifyTimeout time.Duration

	MsgTemplateDir string

	Log LogConfig
}

type LogConfig struct {
	Level     string
	ToConsole bool
	ToFile    bool
	File      string
	Format    string
	Caller    bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:      ":8080",
		MoveRetry:     5,
		NotifyMode:    "http",
		NotifyTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:     "info",
			ToConsole: true,
			ToFile:    false,
			File:      filepath.Join("logs", "chess-server.log"),
			Format:    "legacy",
		},
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GAME_TTL: %w", err)
		}
		cfg.GameTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MoveRetry = n
		}
	}

	cfg.NotifyBaseURL = strings.TrimSpace(os.Getenv("NOTIFY_BASE_URL"))
	cfg.NotifyWSURL = strings.TrimSpace(os.Getenv("NOTIFY_WS_URL"))
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_MODE"))); v != "" {
		cfg.NotifyMode = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_DRYRUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NotifyDryRun = b
		}
	}
	cfg.NotifyAPIKey = strings.TrimSpace(os.Getenv("NOTIFY_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("NOTIFY_TIMEOUT")); v != "" {
		if d, err := parseDuration(v); err == nil && d > 0 {
			cfg.NotifyTimeout = d
		}
	}
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	cfg.Log.ToConsole = envBool("LOG_TO_CONSOLE", cfg.Log.ToConsole)
	cfg.Log.ToFile = envBool("LOG_TO_FILE", cfg.Log.ToFile)
	cfg.Log.Caller = envBool("LOG_CALLER", cfg.Log.Caller)
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))); v != "" {
		cfg.Log.Format = v
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.NotifyMode {
	case "http", "ws", "auto", "off":
	default:
		return nil, fmt.Errorf("NOTIFY_MODE must be one of http, ws, auto, off (got %q)", cfg.NotifyMode)
	}
	if cfg.NotifyMode == "ws" && cfg.NotifyWSURL == "" {
		return nil, errors.New("NOTIFY_WS_URL is required when NOTIFY_MODE=ws")
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("24h") or plain seconds ("3600").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
