// Package config loads the immutable process configuration from the
// environment. The struct is built once at startup and handed to the
// constructors that need it; nothing reads the environment afterwards.
package config

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the full configuration surface of the API process.
type Config struct {
	Addr     string `env:"IDFORT_ADDR, default=:8080"`
	LogLevel string `env:"IDFORT_LOG_LEVEL, default=info"`

	DatabaseURL string `env:"IDFORT_PG_DSN"`

	SessionSecret string        `env:"IDFORT_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"IDFORT_SESSION_TTL, default=12h"`

	// PasswordSalt is mixed into password digests as an HMAC pepper, so
	// digests are only verifiable with the same secret. Optional.
	PasswordSalt string `env:"IDFORT_PASSWORD_SALT"`

	RegistrationEnabled bool `env:"IDFORT_REGISTRATION_ENABLED, default=false"`
	UsernameEnabled     bool `env:"IDFORT_USERNAME_ENABLED, default=true"`
	UsernameRequired    bool `env:"IDFORT_USERNAME_REQUIRED, default=true"`

	RateBurst  int `env:"IDFORT_RATE_BURST, default=20"`
	RatePerSec int `env:"IDFORT_RATE_PER_SEC, default=10"`

	Admin      BootstrapAccount `env:", prefix=IDFORT_ADMIN_"`
	SuperAdmin BootstrapAccount `env:", prefix=IDFORT_SUPER_ADMIN_"`
}

// BootstrapAccount holds seed credentials for a default account. All three
// fields must be set for the account to be created at bootstrap.
type BootstrapAccount struct {
	Email    string `env:"EMAIL"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("config: IDFORT_SESSION_SECRET is required")
	}
	return nil
}
