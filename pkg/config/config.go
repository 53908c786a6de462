package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. Nested keys use a double underscore:
// STORYHUB_DATABASE__DSN -> database.dsn.
const EnvPrefix = "STORYHUB_"

type HTTPConfig struct {
	Addr    string `koanf:"addr" validate:"required"`
	GinMode string `koanf:"gin_mode"`
}

type GRPCConfig struct {
	// Addr is optional; the gRPC listener is disabled when empty.
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	Driver          string `koanf:"driver" validate:"required,oneof=sqlite3 mysql"`
	Path            string `koanf:"path" validate:"required_if=Driver sqlite3"`
	DSN             string `koanf:"dsn" validate:"required_if=Driver mysql"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"gte=0"`
	MaxLifetimeMins int    `koanf:"max_lifetime_mins" validate:"gte=0"`
}

type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret" validate:"required"`
	JWTIssuer   string `koanf:"jwt_issuer" validate:"required"`
	JWTTTLHours int    `koanf:"jwt_ttl_hours" validate:"gt=0"`
}

// JWTDuration is the token lifetime.
func (a AuthConfig) JWTDuration() time.Duration {
	return time.Duration(a.JWTTTLHours) * time.Hour
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `koanf:"json"`
}

type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
}

type IngestConfig struct {
	RatePerMinute int    `koanf:"rate_per_minute" validate:"gt=0"`
	Burst         int    `koanf:"burst" validate:"gt=0"`
	FeedURL       string `koanf:"feed_url" validate:"omitempty,url"`
	Schedule      string `koanf:"schedule"`
}

// FeedConfig controls the plain TCP mirror of the websocket feed.
type FeedConfig struct {
	TCPAddr string `koanf:"tcp_addr"`
}

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Feed     FeedConfig     `koanf:"feed"`
}

// Default is the configuration used for anything not set by file or env.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		GRPC: GRPCConfig{Addr: ":9090"},
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Path:            "data/storyhub.db",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			MaxLifetimeMins: 10,
		},
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "storyhub",
			JWTTTLHours: 24,
		},
		Log: LogConfig{Level: "info"},
		CORS: CORSConfig{AllowOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}},
		Ingest: IngestConfig{RatePerMinute: 60, Burst: 20},
	}
}

// Load layers defaults, an optional YAML file and STORYHUB_* env vars, then validates.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports every failing field in one error.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:")
	for _, e := range errs {
		sb.WriteString(fmt.Sprintf(" %s failed '%s' (value: %v);", e.Namespace(), e.Tag(), e.Value()))
	}
	return errors.New(sb.String())
}
