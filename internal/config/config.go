package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/benbeisheim/minichess-backend/internal/model"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	Policy         model.Policy
	LogLevel       log.Level
	MatchInterval  time.Duration
}

func Default() Config {
	return Config{
		Addr:           ":3000",
		AllowedOrigins: []string{"http://localhost:5173"},
		Policy:         model.PolicySimplified,
		LogLevel:       log.LevelInfo,
		MatchInterval:  time.Second,
	}
}

// Load reads CHESS_* variables from the environment on top of Default.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is Load with a custom variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("CHESS_ADDR"); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup("CHESS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	if v, ok := lookup("CHESS_RULES"); ok {
		policy, err := model.ParsePolicy(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHESS_RULES: %w", err)
		}
		cfg.Policy = policy
	}
	if v, ok := lookup("CHESS_LOG_LEVEL"); ok && v != "" {
		level, err := parseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHESS_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	if v, ok := lookup("CHESS_MATCH_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHESS_MATCH_INTERVAL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("CHESS_MATCH_INTERVAL: must be positive, got %s", d)
		}
		cfg.MatchInterval = d
	}
	return cfg, nil
}

func parseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
