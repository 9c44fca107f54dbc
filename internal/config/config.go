package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rohmanhakim/asset-interceptor/internal/build"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"

	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogfmt = "logfmt"
)

type Config struct {
	//===============
	//  Origin
	//===============
	// Absolute base URL of the application origin. Manifest paths and
	// intercepted request paths are resolved against it.
	origin url.URL
	// Address the agent listens on
	listenAddr string

	//===============
	// Storage
	//===============
	// Where partitions live: "memory" (process lifetime) or "sqlite" (persistent)
	storageDriver string
	// SQLite database file, required by the sqlite driver
	storagePath string

	//===============
	// Partitions
	//===============
	// Versioned partition names, convention <purpose>-v<N>. Bump to invalidate.
	staticPartition string
	mediaPartition  string
	// Origin-absolute paths precached into each partition at install
	staticAssets []string
	mediaAssets  []string

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request. Zero means no timeout.
	timeout time.Duration
	// User agent sent when the intercepted request carries none
	userAgent string
	// Maximum in-flight precache fetches per partition
	precacheConcurrency int
	// Precache requests per second against the origin. Zero means unpaced.
	precacheRate float64
	// Token bucket size for precacheRate
	precacheBurst int

	//===============
	// Logging
	//===============
	logLevel  string
	logFormat string
}

type configDTO struct {
	Origin              string   `json:"origin"`
	ListenAddr          string   `json:"listenAddr,omitempty"`
	StorageDriver       string   `json:"storageDriver,omitempty"`
	StoragePath         string   `json:"storagePath,omitempty"`
	StaticPartition     string   `json:"staticPartition,omitempty"`
	MediaPartition      string   `json:"mediaPartition,omitempty"`
	StaticAssets        []string `json:"staticAssets,omitempty"`
	MediaAssets         []string `json:"mediaAssets,omitempty"`
	Timeout             string   `json:"timeout,omitempty"`
	UserAgent           string   `json:"userAgent,omitempty"`
	PrecacheConcurrency int      `json:"precacheConcurrency,omitempty"`
	PrecacheRate        float64  `json:"precacheRate,omitempty"`
	PrecacheBurst       int      `json:"precacheBurst,omitempty"`
	LogLevel            string   `json:"logLevel,omitempty"`
	LogFormat           string   `json:"logFormat,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	origin, err := url.Parse(dto.Origin)
	if err != nil {
		return Config{}, fmt.Errorf("%w: origin: %s", ErrInvalidConfig, err.Error())
	}

	cfg := WithDefault(*origin)

	// Only override if a value is provided
	if dto.ListenAddr != "" {
		cfg.listenAddr = dto.ListenAddr
	}
	if dto.StorageDriver != "" {
		cfg.storageDriver = dto.StorageDriver
	}
	if dto.StoragePath != "" {
		cfg.storagePath = dto.StoragePath
	}
	if dto.StaticPartition != "" {
		cfg.staticPartition = dto.StaticPartition
	}
	if dto.MediaPartition != "" {
		cfg.mediaPartition = dto.MediaPartition
	}
	// An explicit empty list is a valid manifest; only a missing one keeps the default
	if dto.StaticAssets != nil {
		cfg.staticAssets = dto.StaticAssets
	}
	if dto.MediaAssets != nil {
		cfg.mediaAssets = dto.MediaAssets
	}
	if dto.Timeout != "" {
		timeout, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("%w: timeout: %s", ErrConfigParsingFail, err.Error())
		}
		cfg.timeout = timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.PrecacheConcurrency != 0 {
		cfg.precacheConcurrency = dto.PrecacheConcurrency
	}
	if dto.PrecacheRate != 0 {
		cfg.precacheRate = dto.PrecacheRate
	}
	if dto.PrecacheBurst != 0 {
		cfg.precacheBurst = dto.PrecacheBurst
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config for the given origin with default values for all other fields.
// The origin is mandatory; Build rejects a relative or empty one.
func WithDefault(origin url.URL) *Config {
	defaultConfig := Config{
		origin:              origin,
		listenAddr:          ":8080",
		storageDriver:       StorageDriverMemory,
		storagePath:         "",
		staticPartition:     manifest.DefaultStaticPartition,
		mediaPartition:      manifest.DefaultMediaPartition,
		staticAssets:        manifest.DefaultStaticPaths(),
		mediaAssets:         manifest.DefaultMediaPaths(),
		timeout:             0,
		userAgent:           build.UserAgent(),
		precacheConcurrency: 4,
		precacheRate:        0,
		precacheBurst:       1,
		logLevel:            "info",
		logFormat:           LogFormatText,
	}
	return &defaultConfig
}

func (c *Config) WithOrigin(origin url.URL) *Config {
	c.origin = origin
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithStorageDriver(driver string) *Config {
	c.storageDriver = driver
	return c
}

func (c *Config) WithStoragePath(path string) *Config {
	c.storagePath = path
	return c
}

func (c *Config) WithStaticPartition(name string) *Config {
	c.staticPartition = name
	return c
}

func (c *Config) WithMediaPartition(name string) *Config {
	c.mediaPartition = name
	return c
}

func (c *Config) WithStaticAssets(paths []string) *Config {
	c.staticAssets = paths
	return c
}

func (c *Config) WithMediaAssets(paths []string) *Config {
	c.mediaAssets = paths
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithPrecacheConcurrency(concurrency int) *Config {
	c.precacheConcurrency = concurrency
	return c
}

func (c *Config) WithPrecacheRate(perSecond float64) *Config {
	c.precacheRate = perSecond
	return c
}

func (c *Config) WithPrecacheBurst(burst int) *Config {
	c.precacheBurst = burst
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if !c.origin.IsAbs() || c.origin.Host == "" {
		return Config{}, fmt.Errorf("%w: origin must be an absolute URL, got %q", ErrInvalidConfig, c.origin.String())
	}
	if c.origin.Scheme != "http" && c.origin.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: origin scheme must be http or https, got %q", ErrInvalidConfig, c.origin.Scheme)
	}

	switch c.storageDriver {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if strings.TrimSpace(c.storagePath) == "" {
			return Config{}, fmt.Errorf("%w: storagePath is required by the sqlite driver", ErrInvalidConfig)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.storageDriver)
	}

	if c.staticPartition == c.mediaPartition {
		return Config{}, fmt.Errorf("%w: static and media partitions must differ", ErrInvalidConfig)
	}
	for _, m := range []manifest.Manifest{c.StaticManifest(), c.MediaManifest()} {
		if err := m.Validate(); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if c.timeout < 0 {
		return Config{}, fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	if c.precacheConcurrency < 0 {
		return Config{}, fmt.Errorf("%w: precacheConcurrency cannot be negative", ErrInvalidConfig)
	}
	if c.precacheRate < 0 {
		return Config{}, fmt.Errorf("%w: precacheRate cannot be negative", ErrInvalidConfig)
	}
	if c.precacheBurst < 1 {
		c.precacheBurst = 1
	}

	if _, err := log.ParseLevel(c.logLevel); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	switch c.logFormat {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
	default:
		return Config{}, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.logFormat)
	}

	built := *c
	built.staticAssets = append([]string(nil), c.staticAssets...)
	built.mediaAssets = append([]string(nil), c.mediaAssets...)
	return built, nil
}

func (c Config) Origin() url.URL {
	return c.origin
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) StorageDriver() string {
	return c.storageDriver
}

func (c Config) StoragePath() string {
	return c.storagePath
}

func (c Config) StaticPartition() string {
	return c.staticPartition
}

func (c Config) MediaPartition() string {
	return c.mediaPartition
}

func (c Config) StaticAssets() []string {
	paths := make([]string, len(c.staticAssets))
	copy(paths, c.staticAssets)
	return paths
}

func (c Config) MediaAssets() []string {
	paths := make([]string, len(c.mediaAssets))
	copy(paths, c.mediaAssets)
	return paths
}

func (c Config) StaticManifest() manifest.Manifest {
	return manifest.New(c.staticPartition, c.staticAssets)
}

func (c Config) MediaManifest() manifest.Manifest {
	return manifest.New(c.mediaPartition, c.mediaAssets)
}

// AllowList is the set of partitions the current deployment keeps.
func (c Config) AllowList() []string {
	return []string{c.staticPartition, c.mediaPartition}
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) PrecacheConcurrency() int {
	return c.precacheConcurrency
}

func (c Config) PrecacheRate() float64 {
	return c.precacheRate
}

func (c Config) PrecacheBurst() int {
	return c.precacheBurst
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
