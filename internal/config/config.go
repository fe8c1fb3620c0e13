package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
)

type Config struct {
	AppConfig     AppConfig     `env:"APPCONFIG"`
	DBConfig      DBConfig      `env:"DBCONFIG"`
	AuthConfig    AuthConfig    `env:"AUTHCONFIG"`
	CatalogConfig CatalogConfig `env:"CATALOGCONFIG"`
	LogConfig     LogConfig     `env:"LOGCONFIG"`
}

type AppConfig struct {
	Name      string `default:"animetracker" env:"APP_NAME"`
	HTTPAddr  string `default:":3000" env:"HTTP_ADDR"`
	GRPCAddr  string `env:"GRPC_ADDR"` // empty disables the gRPC listener
	StaticDir string `default:"./public" env:"STATIC_DIR"`
}

type DBConfig struct {
	Path     string `default:"./data/anime_tracker.db" env:"DB_PATH"`
	SeedFile string `default:"./data/shows.json" env:"SEED_FILE"`
}

type AuthConfig struct {
	JWTSecret     string `env:"JWT_SECRET"`
	TokenTTLHours int    `default:"24" env:"TOKEN_TTL_HOURS"`
}

type CatalogConfig struct {
	BaseURL        string `default:"https://api.jikan.moe/v4" env:"CATALOG_BASE_URL"`
	TimeoutSeconds int    `default:"10" env:"CATALOG_TIMEOUT_SECONDS"`
}

type LogConfig struct {
	Level        string `default:"info" env:"LOG_LEVEL"`
	BufferSize   int    `default:"100" env:"LOG_BUFFER_SIZE"`
	Dir          string `default:"logs" env:"LOG_DIR"`
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `default:"animetracker-logs" env:"KAFKA_TOPIC"`
	DisableFile  bool   `env:"LOG_DISABLE_FILE"`
}

// Load reads an optional .env file, then the given config files (missing
// ones are skipped) and finally the process environment. JWT_SECRET has no
// default and must be set.
func Load(files ...string) (Config, error) {
	cfg, err := load(files)
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.AuthConfig.JWTSecret) == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadTooling is Load for commands that never sign or verify tokens.
func LoadTooling(files ...string) (Config, error) {
	return load(files)
}

func load(files []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := configor.Load(&cfg, files...); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.AuthConfig.TokenTTLHours <= 0 {
		cfg.AuthConfig.TokenTTLHours = 24
	}
	if cfg.CatalogConfig.TimeoutSeconds <= 0 {
		cfg.CatalogConfig.TimeoutSeconds = 10
	}
	if cfg.LogConfig.BufferSize <= 0 {
		cfg.LogConfig.BufferSize = 100
	}
	return cfg, nil
}

func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Brokers splits KAFKA_BROKERS; an empty result disables the Kafka log sink.
func (c LogConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
