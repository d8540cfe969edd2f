package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"8080"`

	// Mongo
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://127.0.0.1:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"booksearch"`

	// session tokens
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"2h"`

	// profile cache: redis when an address is given, in-process otherwise
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`

	// empty endpoint disables tracing
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimit          int           `env:"RATE_LIMIT" envDefault:"120"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load reads an optional .env file, then the process environment.
// A missing JWT secret is a startup error.
func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var cfg Config

	err := env.Parse(&cfg)

	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Validate()

	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}

	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1], got %v", c.OTelSampleRatio)
	}

	if c.Port <= 0 {
		return fmt.Errorf("PORT must be positive, got %d", c.Port)
	}

	if c.ProfileCacheTTL <= 0 {
		return fmt.Errorf("PROFILE_CACHE_TTL must be positive, got %s", c.ProfileCacheTTL)
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}

	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}

	return nil
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
