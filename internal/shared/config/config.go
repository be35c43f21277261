package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	HTTP      HTTPConfig      `toml:"http"`
	DB        DBConfig        `toml:"db"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`
	WS        WSConfig        `toml:"ws"`
	Lifecycle LifecycleConfig `toml:"lifecycle"`
	Bids      BidsConfig      `toml:"bids"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Users     UsersConfig     `toml:"users"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	MaxConns int32  `toml:"max_conns"`
}

type StorageConfig struct {
	// postgres or memory
	Driver string `toml:"driver"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type WSConfig struct {
	SendBuffer int `toml:"send_buffer"`
}

type LifecycleConfig struct {
	SweepInterval    Duration `toml:"sweep_interval"`
	SweepConcurrency int      `toml:"sweep_concurrency"`
}

type BidsConfig struct {
	Timeout Duration `toml:"timeout"`
}

type RateLimitConfig struct {
	RedisAddr  string  `toml:"redis_addr"`
	BucketSize int64   `toml:"bucket_size"`
	RefillRate float64 `toml:"refill_rate"`
}

type UsersConfig struct {
	CacheSize int `toml:"cache_size"`
}

// Duration decodes "15s" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":9000"},
		DB: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "auctionhouse",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Storage:   StorageConfig{Driver: "postgres"},
		Log:       LogConfig{Level: "info", Format: "console"},
		WS:        WSConfig{SendBuffer: 256},
		Lifecycle: LifecycleConfig{SweepInterval: Duration{15 * time.Second}, SweepConcurrency: 8},
		Bids:      BidsConfig{Timeout: Duration{5 * time.Second}},
		RateLimit: RateLimitConfig{BucketSize: 10, RefillRate: 2},
		Users:     UsersConfig{CacheSize: 1024},
	}
}

// Load builds the configuration from defaults, the optional TOML file at path,
// a .env file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// config file is optional
		case err != nil:
			return nil, fmt.Errorf("failed to open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.User, "DB_USER")
	setString(&c.DB.Password, "DB_PASSWORD")
	setString(&c.DB.Name, "DB_NAME")
	setString(&c.DB.SSLMode, "DB_SSLMODE")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.RateLimit.RedisAddr, "REDIS_ADDR")

	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.DB.Port = port
	}
	if err := setDuration(&c.Lifecycle.SweepInterval, "SWEEP_INTERVAL"); err != nil {
		return err
	}
	return setDuration(&c.Bids.Timeout, "BID_TIMEOUT")
}

// PostgresDSN builds the connection url used by both pgx and the migrations.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode,
	)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return dst.UnmarshalText([]byte(v))
}
