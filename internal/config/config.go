// Package config loads the signup server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gabrielmiguelok/agentsignup/pkg/limits"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

// Submission modes.
const (
	ModeSimulated = "simulated"
	ModePostgres  = "postgres"
)

// devSigningKey is accepted only with server.dev_mode.
const devSigningKey = "dev-only-signing-key"

// Config holds application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Handoff    HandoffConfig    `mapstructure:"handoff"`
}

// ServerConfig holds HTTP and live session settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	DevMode         bool          `mapstructure:"dev_mode"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	SessionsPerIP   int           `mapstructure:"max_sessions_per_ip"`
	RateLimit       int           `mapstructure:"rate_limit"`
	SessionIdle     time.Duration `mapstructure:"session_idle"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SubmissionConfig selects the account creator.
type SubmissionConfig struct {
	Mode    string        `mapstructure:"mode"`
	Delay   time.Duration `mapstructure:"delay"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// BreakerConfig guards the account store.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// HandoffConfig holds dashboard hand-off token settings.
type HandoffConfig struct {
	SigningKey    string        `mapstructure:"signing_key"`
	TTL           time.Duration `mapstructure:"ttl"`
	DashboardPath string        `mapstructure:"dashboard_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.max_sessions", 10000)
	v.SetDefault("server.max_sessions_per_ip", 20)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.session_idle", 30*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("submission.mode", ModeSimulated)
	v.SetDefault("submission.delay", 2*time.Second)
	v.SetDefault("submission.timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.cooldown", 30*time.Second)

	v.SetDefault("handoff.signing_key", "")
	v.SetDefault("handoff.ttl", 5*time.Minute)
	v.SetDefault("handoff.dashboard_path", "/dashboard")
}

// Load reads defaults, then the YAML file named by SIGNUP_CONFIG (or
// ./signup.yaml when present), then SIGNUP_* environment overrides.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv("SIGNUP_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("signup")
	}

	v.SetEnvPrefix("SIGNUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Server.DevMode && c.Handoff.SigningKey == "" {
		c.Handoff.SigningKey = devSigningKey
	}
	return c, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server.max_sessions must not be negative"))
	}
	if _, err := limits.NewIPResolver(c.Server.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("server.trusted_proxies: %w", err))
	}
	if c.Server.SessionsPerIP < 0 {
		errs = append(errs, errors.New("server.max_sessions_per_ip must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	switch c.Submission.Mode {
	case ModeSimulated:
		if c.Submission.Delay < 0 {
			errs = append(errs, errors.New("submission.delay must not be negative"))
		}
	case ModePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required in postgres mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("submission.mode %q is not one of %s, %s", c.Submission.Mode, ModeSimulated, ModePostgres))
	}

	if c.Handoff.SigningKey == "" {
		errs = append(errs, errors.New("handoff.signing_key is required outside dev mode"))
	}
	if c.Handoff.TTL <= 0 {
		errs = append(errs, errors.New("handoff.ttl must be positive"))
	}
	if !strings.HasPrefix(c.Handoff.DashboardPath, "/") {
		errs = append(errs, errors.New("handoff.dashboard_path must be an absolute path"))
	}
	if c.Breaker.MaxFailures <= 0 {
		errs = append(errs, errors.New("breaker.max_failures must be positive"))
	}

	return errors.Join(errs...)
}

// LoggerOptions converts the log settings.
func (c LogConfig) LoggerOptions() ([]logging.LoggerOption, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := []logging.LoggerOption{logging.WithLevel(level)}
	if c.JSON {
		opts = append(opts, logging.WithJSON())
	}
	return opts, nil
}
