package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Issuer            string `env:"PROVIDER_ISSUER" envDefault:"http://localhost:8080"`
	ResourceServerURL string `env:"PROVIDER_RESOURCE_SERVER_URL" envDefault:"http://localhost:9000"`
	ResourceName      string `env:"PROVIDER_RESOURCE_NAME" envDefault:"protected-resource"`

	AllowedScopes []string `env:"PROVIDER_ALLOWED_SCOPES" envSeparator:" " envDefault:"read write admin"`
	DefaultScopes []string `env:"PROVIDER_DEFAULT_SCOPES" envSeparator:" " envDefault:"read"`

	CodeTTL    time.Duration `env:"PROVIDER_CODE_TTL" envDefault:"10m"`
	AccessTTL  time.Duration `env:"PROVIDER_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"PROVIDER_REFRESH_TTL" envDefault:"24h"`
	SessionTTL time.Duration `env:"PROVIDER_SESSION_TTL" envDefault:"30m"`

	DatabaseFile string `env:"PROVIDER_DATABASE_FILE" envDefault:"provider.db"`
	PasswordHash string `env:"PROVIDER_PASSWORD_HASH" envDefault:"sha256"` // sha256 or argon2

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
