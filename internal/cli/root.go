package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile             string
	originURL           string
	listenAddr          string
	storageDriver       string
	storagePath         string
	staticPartition     string
	mediaPartition      string
	timeout             time.Duration
	userAgent           string
	precacheConcurrency int
	precacheRate        float64
	logLevel            string
	logFormat           string

	// environ replaces the process environment in tests. Nil reads os.Environ.
	environ map[string]string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "asset-interceptor",
	Short: "A cache-first asset interceptor for a single origin.",
	Long: `asset-interceptor sits in front of the origin that serves an application
and answers requests for its static assets (/favicons/) and media (/audio/)
from versioned cache partitions, filling them from the origin on a miss.

Every other request is forwarded to the origin untouched. Partitions are
precached when a version is installed, and partitions that no longer belong
to the deployment are removed when it activates.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /etc/asset-interceptor/config.json)")
	rootCmd.PersistentFlags().StringVar(&originURL, "origin", "", "absolute base URL of the origin (e.g., https://chimes.example)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "address the agent listens on (default :8080)")
	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage-driver", "", "partition storage: memory or sqlite (default memory)")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage-path", "", "SQLite database file for the sqlite driver")
	rootCmd.PersistentFlags().StringVar(&staticPartition, "static-partition", "", "name of the static asset partition")
	rootCmd.PersistentFlags().StringVar(&mediaPartition, "media-partition", "", "name of the media partition")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for origin requests (0 for none)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent sent when the request carries none")
	rootCmd.PersistentFlags().IntVar(&precacheConcurrency, "precache-concurrency", 0, "in-flight precache fetches per partition (default 4)")
	rootCmd.PersistentFlags().Float64Var(&precacheRate, "precache-rate", 0, "precache requests per second (0 for unpaced)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text, json or logfmt (default text)")

	rootCmd.AddCommand(serveCmd, precacheCmd, cachesCmd, pruneCmd, bumpCmd, versionCmd)
}

// InitConfigWithError builds the effective configuration. Sources are applied
// in order, each overriding the previous: defaults or the config file, then
// ASSET_INTERCEPTOR_* environment variables, then command-line flags.
func InitConfigWithError() (config.Config, error) {
	var configBuilder *config.Config

	if cfgFile != "" {
		fileCfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fileCfg
	} else {
		configBuilder = config.WithDefault(url.URL{})
	}

	configBuilder, err := configBuilder.WithEnvironment(environ)
	if err != nil {
		return config.Config{}, err
	}

	// Override with CLI flag values where provided
	if originURL != "" {
		origin, err := url.Parse(originURL)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: error parsing origin %s: %s", config.ErrInvalidConfig, originURL, err.Error())
		}
		configBuilder = configBuilder.WithOrigin(*origin)
	}

	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}

	if storageDriver != "" {
		configBuilder = configBuilder.WithStorageDriver(storageDriver)
	}

	if storagePath != "" {
		configBuilder = configBuilder.WithStoragePath(storagePath)
	}

	if staticPartition != "" {
		configBuilder = configBuilder.WithStaticPartition(staticPartition)
	}

	if mediaPartition != "" {
		configBuilder = configBuilder.WithMediaPartition(mediaPartition)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if precacheConcurrency > 0 {
		configBuilder = configBuilder.WithPrecacheConcurrency(precacheConcurrency)
	}

	if precacheRate > 0 {
		configBuilder = configBuilder.WithPrecacheRate(precacheRate)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	originURL = ""
	listenAddr = ""
	storageDriver = ""
	storagePath = ""
	staticPartition = ""
	mediaPartition = ""
	timeout = 0
	userAgent = ""
	precacheConcurrency = 0
	precacheRate = 0
	logLevel = ""
	logFormat = ""
	watch = false
	environ = map[string]string{}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetOriginForTest(origin string) {
	originURL = origin
}

func SetListenAddrForTest(addr string) {
	listenAddr = addr
}

func SetStorageForTest(driver string, path string) {
	storageDriver = driver
	storagePath = path
}

func SetPartitionsForTest(static string, media string) {
	staticPartition = static
	mediaPartition = media
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetPrecacheForTest(concurrency int, rate float64) {
	precacheConcurrency = concurrency
	precacheRate = rate
}

func SetLogForTest(level string, format string) {
	logLevel = level
	logFormat = format
}

func SetEnvironForTest(env map[string]string) {
	environ = env
}

// RunForTest executes the root command with args, writing output and logs to out.
func RunForTest(ctx context.Context, args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	return rootCmd.ExecuteContext(ctx)
}
