package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"tft-tracker/internal/constants"
	"tft-tracker/internal/standings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath            string
	ServerPort        string
	LogLevel          string
	DefaultLobbySize  int
	RankMode          standings.RankMode
	RecalcMaxRetries  uint64
	RecalcBaseBackoff time.Duration
	SubmitRateLimit   float64 // requests per second per IP
	SubmitRateBurst   int
	AllowedOrigins    []string
	RebuildOnStart    bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("default_lobby_size", cfg.DefaultLobbySize).
		Str("rank_mode", string(cfg.RankMode)).
		Uint64("recalc_max_retries", cfg.RecalcMaxRetries).
		Dur("recalc_base_backoff", cfg.RecalcBaseBackoff).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("rebuild_on_start", cfg.RebuildOnStart).
		Msg("configuration loaded")

	return cfg, nil
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "tft.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DefaultLobbySize, err = strconv.Atoi(getEnv("DEFAULT_LOBBY_SIZE", "8")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LOBBY_SIZE: %w", err)
	}
	if cfg.DefaultLobbySize < constants.MinLobbySize || cfg.DefaultLobbySize > constants.MaxLobbySize {
		return nil, fmt.Errorf("DEFAULT_LOBBY_SIZE must be between %d and %d, got %d",
			constants.MinLobbySize, constants.MaxLobbySize, cfg.DefaultLobbySize)
	}
	if cfg.RankMode, err = standings.ParseRankMode(getEnv("RANK_MODE", string(standings.RankUnique))); err != nil {
		return nil, fmt.Errorf("invalid RANK_MODE: %w", err)
	}
	if cfg.RecalcMaxRetries, err = strconv.ParseUint(getEnv("RECALC_MAX_RETRIES", "5"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid RECALC_MAX_RETRIES: %w", err)
	}
	if cfg.RecalcBaseBackoff, err = time.ParseDuration(getEnv("RECALC_BASE_BACKOFF", "50ms")); err != nil {
		return nil, fmt.Errorf("invalid RECALC_BASE_BACKOFF: %w", err)
	}
	if cfg.RecalcBaseBackoff <= 0 {
		return nil, fmt.Errorf("RECALC_BASE_BACKOFF must be positive")
	}
	if cfg.SubmitRateLimit, err = strconv.ParseFloat(getEnv("SUBMIT_RATE_LIMIT", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_RATE_LIMIT: %w", err)
	}
	if cfg.SubmitRateBurst, err = strconv.Atoi(getEnv("SUBMIT_RATE_BURST", "10")); err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_RATE_BURST: %w", err)
	}
	if cfg.RebuildOnStart, err = strconv.ParseBool(getEnv("REBUILD_ON_START", "false")); err != nil {
		return nil, fmt.Errorf("invalid REBUILD_ON_START: %w", err)
	}
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "*"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
