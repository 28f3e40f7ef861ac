// Package config loads service settings from MOBILEAPP_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

// Prefix is prepended to every variable name.
const Prefix = "MOBILEAPP_"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Version  string `env:"VERSION" envDefault:"dev"`
	Commit   string `env:"COMMIT" envDefault:"unknown"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:8091"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DSN         string `env:"DSN"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// TokenSecret is base64; see auth.DecodeSecret.
	TokenSecret          string        `env:"TOKEN_SECRET"`
	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"240h"`
	PasswordResetTTL     time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	RequireVerifiedEmail bool          `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"false"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@admin.admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	SMTP SMTP `envPrefix:"SMTP_"`
}

// SMTP holds mail delivery settings. An empty Host disables delivery.
type SMTP struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"587"`
	User string `env:"USER"`
	Pass string `env:"PASS"`
	From string `env:"FROM"`
}

// Development reports whether the service runs with development fallbacks.
func (c Config) Development() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Fallbacks lists the development defaults applied by
// ApplyDevelopmentFallbacks, for logging.
type Fallbacks struct {
	EphemeralSecret bool
	AdminPassword   bool
}

// ApplyDevelopmentFallbacks fills a missing secret and admin password in
// development. It is a no-op elsewhere.
func (c *Config) ApplyDevelopmentFallbacks() (Fallbacks, error) {
	var fb Fallbacks
	if !c.Development() {
		return fb, nil
	}
	if c.TokenSecret == "" {
		buf := make([]byte, 64)
		if _, err := rand.Read(buf); err != nil {
			return fb, fmt.Errorf("generate secret: %w", err)
		}
		c.TokenSecret = base64.StdEncoding.EncodeToString(buf)
		fb.EphemeralSecret = true
	}
	if c.AdminEmail != "" && c.AdminPassword == "" {
		c.AdminPassword = "123456789"
		fb.AdminPassword = true
	}
	return fb, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
		if c.DSN == "" {
			errs = append(errs, fmt.Errorf("%sDSN is required for store driver %q", Prefix, c.StoreDriver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("%sSTORE_DRIVER must be postgres, sqlite or memory, got %q", Prefix, c.StoreDriver))
	}
	if !c.Development() {
		if c.TokenSecret == "" {
			errs = append(errs, fmt.Errorf("%sTOKEN_SECRET is required outside development", Prefix))
		}
		if c.AdminEmail != "" && c.AdminPassword == "" {
			errs = append(errs, fmt.Errorf("%sADMIN_PASSWORD is required when %sADMIN_EMAIL is set", Prefix, Prefix))
		}
	}
	if c.TokenSecret != "" {
		if _, err := auth.DecodeSecret(c.TokenSecret); err != nil {
			errs = append(errs, fmt.Errorf("%sTOKEN_SECRET: %w", Prefix, err))
		}
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sTOKEN_TTL must be positive", Prefix))
	}
	if c.PasswordResetTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sPASSWORD_RESET_TTL must be positive", Prefix))
	}
	return errors.Join(errs...)
}
