package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	LogPretty       bool          `env:"LOG_PRETTY,       default=false"`
	APIPrefix       string        `env:"API_PREFIX,       default=/api"`
	StorageBackend  string        `env:"STORAGE_BACKEND,  default=mongo"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`
	BatchWorkers    int           `env:"BATCH_WORKERS,    default=8"`

	Mongo     MongoConfig
	Redis     RedisConfig
	NSQ       NSQConfig
	Hub       HubConfig
	RateLimit RateLimitConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=livreurs_gps_db"`
}

// RedisConfig leaves Addr empty by default: submission idempotency is off
// unless a Redis address is configured.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=1h"`
}

// NSQConfig enables event forwarding when NSQDAddr is set.
type NSQConfig struct {
	NSQDAddr string `env:"NSQD_ADDR"`
	Topic    string `env:"NSQ_TOPIC, default=positions"`
}

type HubConfig struct {
	QueueSize       int           `env:"HUB_QUEUE_SIZE,       default=64"`
	DeliveryTimeout time.Duration `env:"HUB_DELIVERY_TIMEOUT, default=5s"`
	MaxDrops        int           `env:"HUB_MAX_DROPS,        default=3"`
	StallTimeout    time.Duration `env:"HUB_STALL_TIMEOUT,    default=1s"`
}

// RateLimitConfig applies per client IP on position submission. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,   default=50"`
	Burst int     `env:"RATE_LIMIT_BURST, default=100"`
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}

	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case StorageMongo, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMongo, StorageMemory, c.StorageBackend)
	}

	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.APIPrefix == "/" {
		return errors.New("API_PREFIX must not be empty")
	}
	return nil
}
