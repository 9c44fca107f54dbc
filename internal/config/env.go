package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSET_INTERCEPTOR_"

// envOverrides lists the settings that may be overridden from the environment.
// Zero values leave the configured value untouched.
type envOverrides struct {
	Origin              string        `env:"ORIGIN"`
	ListenAddr          string        `env:"LISTEN_ADDR"`
	StorageDriver       string        `env:"STORAGE_DRIVER"`
	StoragePath         string        `env:"STORAGE_PATH"`
	StaticPartition     string        `env:"STATIC_PARTITION"`
	MediaPartition      string        `env:"MEDIA_PARTITION"`
	Timeout             time.Duration `env:"TIMEOUT"`
	UserAgent           string        `env:"USER_AGENT"`
	PrecacheConcurrency int           `env:"PRECACHE_CONCURRENCY"`
	PrecacheRate        float64       `env:"PRECACHE_RATE"`
	LogLevel            string        `env:"LOG_LEVEL"`
	LogFormat           string        `env:"LOG_FORMAT"`
}

// WithEnvironment applies ASSET_INTERCEPTOR_* overrides from environ. A nil
// environ reads the process environment. The result is validated by Build.
func (c *Config) WithEnvironment(environ map[string]string) (*Config, error) {
	overrides := envOverrides{}
	if err := env.ParseWithOptions(&overrides, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, err.Error())
	}

	if overrides.Origin != "" {
		origin, err := url.Parse(overrides.Origin)
		if err != nil {
			return nil, fmt.Errorf("%w: origin: %s", ErrInvalidEnvironment, err.Error())
		}
		c.origin = *origin
	}
	if overrides.ListenAddr != "" {
		c.listenAddr = overrides.ListenAddr
	}
	if overrides.StorageDriver != "" {
		c.storageDriver = overrides.StorageDriver
	}
	if overrides.StoragePath != "" {
		c.storagePath = overrides.StoragePath
	}
	if overrides.StaticPartition != "" {
		c.staticPartition = overrides.StaticPartition
	}
	if overrides.MediaPartition != "" {
		c.mediaPartition = overrides.MediaPartition
	}
	if overrides.Timeout != 0 {
		c.timeout = overrides.Timeout
	}
	if overrides.UserAgent != "" {
		c.userAgent = overrides.UserAgent
	}
	if overrides.PrecacheConcurrency != 0 {
		c.precacheConcurrency = overrides.PrecacheConcurrency
	}
	if overrides.PrecacheRate != 0 {
		c.precacheRate = overrides.PrecacheRate
	}
	if overrides.LogLevel != "" {
		c.logLevel = overrides.LogLevel
	}
	if overrides.LogFormat != "" {
		c.logFormat = overrides.LogFormat
	}

	return c, nil
}
