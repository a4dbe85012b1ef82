// Package config loads the tracker's settings from the environment. cmd/server
// reads an optional .env first. Every field carries its variable name in an
// env tag; validation failures and malformed values are reported by that name.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// defaultJWTSecret is only acceptable while AUTH_REQUIRED is off.
const defaultJWTSecret = "dev-insecure-secret"

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0"`
}

// AuthConfig governs bearer tokens. Register and login work either way;
// Required only decides whether anonymous calls reach the API.
type AuthConfig struct {
	Required  bool          `env:"AUTH_REQUIRED"`
	JWTSecret string        `env:"JWT_SECRET" validate:"min=16"` // HS256
	JWTTTL    time.Duration `env:"JWT_TTL" validate:"gt=0"`
}

type SentryConfig struct {
	DSN         string  `env:"SENTRY_DSN"` // empty disables Sentry
	Environment string  `env:"SENTRY_ENVIRONMENT"`
	SampleRate  float64 `env:"SENTRY_SAMPLE_RATE" validate:"gte=0,lte=1"`
}

// Enabled reports whether a DSN is configured.
func (s SentryConfig) Enabled() bool { return s.DSN != "" }

type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" validate:"required"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// Config holds all configuration values for the application.
type Config struct {
	Port              string        `env:"PORT" validate:"required,numeric"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"`

	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty      bool   `env:"LOG_PRETTY"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED"`
	APIBasePath    string `env:"API_BASE_PATH"`

	DBPath   string `env:"DB_PATH" validate:"required"`
	SeedDemo bool   `env:"SEED_DEMO"` // insert demo applications into an empty database

	// Token buckets: the API-wide one keyed by user or IP, and a much slower
	// one for register/login keyed by IP.
	RateRPS       float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst     int     `env:"RATE_BURST" validate:"gte=1"`
	AuthRateRPS   float64 `env:"RATE_AUTH_RPS" validate:"gte=0"`
	AuthRateBurst int     `env:"RATE_AUTH_BURST" validate:"gte=1"`

	CORS     CORSConfig
	Security SecurityConfig
	Auth     AuthConfig

	// IdempotencyTTL is how long an Idempotency-Key keeps replaying.
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" validate:"gt=0"`

	Sentry SentryConfig
	OTEL   OTELConfig
}

// Load reads the environment, applies defaults and validates the result.
// A variable that is set but cannot be parsed is an error, not a silent
// fallback to the default.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              strings.TrimSpace(e.str("PORT", "8080")),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(e.str("GIN_MODE", "release")),

		LogLevel:       logLevel(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api")),

		DBPath:   strings.TrimSpace(e.str("DB_PATH", "tracker.db")),
		SeedDemo: e.flag("SEED_DEMO", false),

		RateRPS:       e.float("RATE_RPS", 5.0),
		RateBurst:     e.integer("RATE_BURST", 10),
		AuthRateRPS:   e.float("RATE_AUTH_RPS", 5.0/900), // 5 per 15 minutes
		AuthRateBurst: e.integer("RATE_AUTH_BURST", 5),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		Auth: AuthConfig{
			Required:  e.flag("AUTH_REQUIRED", false),
			JWTSecret: e.str("JWT_SECRET", defaultJWTSecret),
			JWTTTL:    e.dur("JWT_TTL", 24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		Sentry: SentryConfig{
			DSN:         e.str("SENTRY_DSN", ""),
			Environment: e.str("SENTRY_ENVIRONMENT", "development"),
			SampleRate:  e.float("SENTRY_SAMPLE_RATE", 0.1),
		},
		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-job-tracker"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	if len(e.errs) > 0 {
		return cfg, errors.Join(e.errs...)
	}
	if err := check(cfg); err != nil {
		return cfg, err
	}
	if cfg.Auth.Required && cfg.Auth.JWTSecret == defaultJWTSecret {
		return cfg, errors.New("JWT_SECRET must be set when AUTH_REQUIRED is true")
	}
	return cfg, nil
}

func check(cfg Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("env") })

	err := v.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return errors.Newf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// env reads typed variables and remembers every value that failed to parse.
// Unset and empty variables yield the default.
type env struct{ errs []error }

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *env) fail(k, v string, err error) {
	e.errs = append(e.errs, errors.Wrapf(err, "%s=%q", k, v))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return f
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return i
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return d
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, errors.New("not a boolean"))
	return def
}

// logLevel lowercases and accepts "warning" for "warn".
func logLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}

// ginMode falls back to release for anything gin would not recognise.
func ginMode(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones; "" is "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
