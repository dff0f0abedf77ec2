package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIKey      string `env:"RIOT_API_KEY"`
	RiotRegionalURL string `env:"RIOT_REGIONAL_URL" envDefault:"https://europe.api.riotgames.com"`
	RiotPlatformURL string `env:"RIOT_PLATFORM_URL" envDefault:"https://euw1.api.riotgames.com"`

	DBPath     string `env:"DB_PATH" envDefault:"lol-tracker.db"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	CacheTTL        time.Duration `env:"STATS_CACHE_TTL" envDefault:"10m"`
	EmptyHistoryTTL time.Duration `env:"EMPTY_HISTORY_TTL" envDefault:"2m"`
	MatchLimit      int           `env:"MATCH_LIMIT" envDefault:"20"`
	ChunkSize       int           `env:"CHUNK_SIZE" envDefault:"10"`
	ChunkCooldown   time.Duration `env:"CHUNK_COOLDOWN" envDefault:"1200ms"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
	RefreshWorkers  int           `env:"REFRESH_WORKERS" envDefault:"4"`

	RedisURL     string `env:"REDIS_URL"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("riot_regional_url", cfg.RiotRegionalURL).
		Dur("cache_ttl", cfg.CacheTTL).
		Int("match_limit", cfg.MatchLimit).
		Int("chunk_size", cfg.ChunkSize).
		Dur("chunk_cooldown", cfg.ChunkCooldown).
		Bool("redis_enabled", cfg.RedisURL != "").
		Bool("tracing_enabled", cfg.OTELEndpoint != "").
		Msg("configuration loaded")

	return cfg, nil
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RiotAPIKey == "" {
		errs = append(errs, errors.New("RIOT_API_KEY is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("STATS_CACHE_TTL must be positive"))
	}
	if c.EmptyHistoryTTL <= 0 {
		errs = append(errs, errors.New("EMPTY_HISTORY_TTL must be positive"))
	}
	if c.MatchLimit <= 0 || c.MatchLimit > 100 {
		errs = append(errs, errors.New("MATCH_LIMIT must be between 1 and 100"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkCooldown < 0 {
		errs = append(errs, errors.New("CHUNK_COOLDOWN must not be negative"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.RefreshWorkers <= 0 {
		errs = append(errs, errors.New("REFRESH_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

var Module = fx.Provide(Load)
