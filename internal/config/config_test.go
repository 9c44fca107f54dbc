package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/build"
	"github.com/rohmanhakim/asset-interceptor/internal/config"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
)

var testOrigin = url.URL{Scheme: "https", Host: "chimes.example"}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault(testOrigin).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	origin := cfg.Origin()
	if origin.String() != "https://chimes.example" {
		t.Errorf("expected origin https://chimes.example, got %s", origin.String())
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("expected ListenAddr :8080, got %s", cfg.ListenAddr())
	}
	if cfg.StorageDriver() != config.StorageDriverMemory {
		t.Errorf("expected memory storage driver, got %s", cfg.StorageDriver())
	}
	if cfg.StaticPartition() != manifest.DefaultStaticPartition {
		t.Errorf("expected static partition %s, got %s", manifest.DefaultStaticPartition, cfg.StaticPartition())
	}
	if cfg.MediaPartition() != manifest.DefaultMediaPartition {
		t.Errorf("expected media partition %s, got %s", manifest.DefaultMediaPartition, cfg.MediaPartition())
	}
	if len(cfg.StaticAssets()) != len(manifest.DefaultStaticPaths()) {
		t.Errorf("expected %d static assets, got %d", len(manifest.DefaultStaticPaths()), len(cfg.StaticAssets()))
	}
	if len(cfg.MediaAssets()) != 0 {
		t.Errorf("expected an empty default media manifest, got %v", cfg.MediaAssets())
	}
	if cfg.Timeout() != 0 {
		t.Errorf("expected no timeout, got %v", cfg.Timeout())
	}
	if cfg.UserAgent() != build.UserAgent() {
		t.Errorf("unexpected UserAgent %q", cfg.UserAgent())
	}
	if cfg.PrecacheConcurrency() != 4 {
		t.Errorf("expected PrecacheConcurrency 4, got %d", cfg.PrecacheConcurrency())
	}
	if cfg.PrecacheRate() != 0 {
		t.Errorf("expected unpaced precache, got %f", cfg.PrecacheRate())
	}
	if cfg.PrecacheBurst() != 1 {
		t.Errorf("expected PrecacheBurst 1, got %d", cfg.PrecacheBurst())
	}
	if cfg.LogLevel() != "info" || cfg.LogFormat() != config.LogFormatText {
		t.Errorf("unexpected log settings %s/%s", cfg.LogLevel(), cfg.LogFormat())
	}
}

func TestBuild_RejectsRelativeOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin url.URL
	}{
		{name: "empty", origin: url.URL{}},
		{name: "path only", origin: url.URL{Path: "/app"}},
		{name: "ftp scheme", origin: url.URL{Scheme: "ftp", Host: "chimes.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.WithDefault(tt.origin).Build()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBuild_StorageDriver(t *testing.T) {
	_, err := config.WithDefault(testOrigin).WithStorageDriver("redis").Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown driver, got %v", err)
	}

	_, err = config.WithDefault(testOrigin).WithStorageDriver(config.StorageDriverSQLite).Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for sqlite without path, got %v", err)
	}

	cfg, err := config.WithDefault(testOrigin).
		WithStorageDriver(config.StorageDriverSQLite).
		WithStoragePath("/var/lib/asset-interceptor/cache.db").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoragePath() != "/var/lib/asset-interceptor/cache.db" {
		t.Errorf("unexpected StoragePath %s", cfg.StoragePath())
	}
}

func TestBuild_PartitionsMustDiffer(t *testing.T) {
	_, err := config.WithDefault(testOrigin).
		WithStaticPartition("shared-v1").
		WithMediaPartition("shared-v1").
		Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuild_ValidatesManifests(t *testing.T) {
	_, err := config.WithDefault(testOrigin).
		WithStaticAssets([]string{"/favicons/a.png", "/favicons/a.png"}).
		Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for duplicate assets, got %v", err)
	}
	if !errors.Is(err, manifest.ErrInvalidManifest) {
		t.Errorf("expected wrapped ErrInvalidManifest, got %v", err)
	}

	_, err = config.WithDefault(testOrigin).
		WithMediaAssets([]string{"audio/C5.wav"}).
		Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for relative asset path, got %v", err)
	}
}

func TestBuild_EmptyManifestIsValid(t *testing.T) {
	cfg, err := config.WithDefault(testOrigin).WithMediaAssets([]string{}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MediaManifest().Len() != 0 {
		t.Errorf("expected empty media manifest, got %d entries", cfg.MediaManifest().Len())
	}
}

func TestBuild_RejectsNegativeValues(t *testing.T) {
	builders := map[string]*config.Config{
		"timeout":     config.WithDefault(testOrigin).WithTimeout(-time.Second),
		"concurrency": config.WithDefault(testOrigin).WithPrecacheConcurrency(-1),
		"rate":        config.WithDefault(testOrigin).WithPrecacheRate(-0.5),
	}

	for name, builder := range builders {
		t.Run(name, func(t *testing.T) {
			_, err := builder.Build()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBuild_BurstClampedToOne(t *testing.T) {
	cfg, err := config.WithDefault(testOrigin).WithPrecacheBurst(0).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrecacheBurst() != 1 {
		t.Errorf("expected PrecacheBurst 1, got %d", cfg.PrecacheBurst())
	}
}

func TestBuild_LogSettings(t *testing.T) {
	_, err := config.WithDefault(testOrigin).WithLogLevel("loud").Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown level, got %v", err)
	}

	_, err = config.WithDefault(testOrigin).WithLogFormat("xml").Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown format, got %v", err)
	}

	cfg, err := config.WithDefault(testOrigin).WithLogLevel("debug").WithLogFormat(config.LogFormatJSON).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel() != "debug" || cfg.LogFormat() != "json" {
		t.Errorf("unexpected log settings %s/%s", cfg.LogLevel(), cfg.LogFormat())
	}
}

func TestBuild_AssetsAreCopied(t *testing.T) {
	paths := []string{"/favicons/a.png"}
	cfg, err := config.WithDefault(testOrigin).WithStaticAssets(paths).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths[0] = "/favicons/changed.png"
	if cfg.StaticAssets()[0] != "/favicons/a.png" {
		t.Errorf("config shares the caller's slice: %v", cfg.StaticAssets())
	}

	returned := cfg.StaticAssets()
	returned[0] = "/favicons/mutated.png"
	if cfg.StaticAssets()[0] != "/favicons/a.png" {
		t.Errorf("accessor exposes internal slice: %v", cfg.StaticAssets())
	}
}

func TestManifestsAndAllowList(t *testing.T) {
	cfg, err := config.WithDefault(testOrigin).
		WithStaticPartition("static-v7").
		WithMediaPartition("media-v3").
		WithStaticAssets([]string{"/favicons/a.png"}).
		WithMediaAssets([]string{"/audio/C5.wav", "/audio/D5.wav"}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StaticManifest().Partition() != "static-v7" || cfg.StaticManifest().Len() != 1 {
		t.Errorf("unexpected static manifest %+v", cfg.StaticManifest())
	}
	if cfg.MediaManifest().Partition() != "media-v3" || cfg.MediaManifest().Len() != 2 {
		t.Errorf("unexpected media manifest %+v", cfg.MediaManifest())
	}

	allow := cfg.AllowList()
	if len(allow) != 2 || allow[0] != "static-v7" || allow[1] != "media-v3" {
		t.Errorf("unexpected allow-list %v", allow)
	}
}

func TestWithConfigFile_FileDoesNotExist(t *testing.T) {
	_, err := config.WithConfigFile("/nonexistent/path/config.json")

	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}

	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got: %v", err)
	}
}

func TestWithConfigFile_InvalidJSON(t *testing.T) {
	configPath := writeConfig(t, "{invalid json content}")

	_, err := config.WithConfigFile(configPath)

	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got: %v", err)
	}
}

func TestWithConfigFile_InvalidTimeout(t *testing.T) {
	configPath := writeConfig(t, `{"origin": "https://chimes.example", "timeout": "soon"}`)

	_, err := config.WithConfigFile(configPath)

	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got: %v", err)
	}
}

func TestWithConfigFile_MissingOrigin(t *testing.T) {
	configPath := writeConfig(t, `{"listenAddr": ":9000"}`)

	_, err := config.WithConfigFile(configPath)

	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestWithConfigFile_ValidCompleteConfig(t *testing.T) {
	configPath := writeConfig(t, `{
		"origin": "https://chimes.example/app/",
		"listenAddr": "127.0.0.1:9000",
		"storageDriver": "sqlite",
		"storagePath": "/tmp/partitions.db",
		"staticPartition": "pocketchimes-static-v3",
		"mediaPartition": "pocketchimes-media-v3",
		"staticAssets": ["/favicons/favicon.ico"],
		"mediaAssets": ["/audio/C5.wav", "/audio/C%235.wav"],
		"timeout": "5s",
		"userAgent": "chimes-agent/2.0",
		"precacheConcurrency": 8,
		"precacheRate": 20,
		"precacheBurst": 5,
		"logLevel": "debug",
		"logFormat": "json"
	}`)

	cfg, err := config.WithConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error loading valid config: %v", err)
	}

	origin := cfg.Origin()
	if origin.String() != "https://chimes.example/app/" {
		t.Errorf("unexpected origin %s", origin.String())
	}
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Errorf("unexpected ListenAddr %s", cfg.ListenAddr())
	}
	if cfg.StorageDriver() != config.StorageDriverSQLite || cfg.StoragePath() != "/tmp/partitions.db" {
		t.Errorf("unexpected storage %s %s", cfg.StorageDriver(), cfg.StoragePath())
	}
	if cfg.StaticPartition() != "pocketchimes-static-v3" || cfg.MediaPartition() != "pocketchimes-media-v3" {
		t.Errorf("unexpected partitions %s %s", cfg.StaticPartition(), cfg.MediaPartition())
	}
	if len(cfg.StaticAssets()) != 1 || len(cfg.MediaAssets()) != 2 {
		t.Errorf("unexpected assets %v %v", cfg.StaticAssets(), cfg.MediaAssets())
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("expected Timeout 5s, got %v", cfg.Timeout())
	}
	if cfg.UserAgent() != "chimes-agent/2.0" {
		t.Errorf("unexpected UserAgent %s", cfg.UserAgent())
	}
	if cfg.PrecacheConcurrency() != 8 || cfg.PrecacheRate() != 20 || cfg.PrecacheBurst() != 5 {
		t.Errorf("unexpected precache settings %d %f %d", cfg.PrecacheConcurrency(), cfg.PrecacheRate(), cfg.PrecacheBurst())
	}
	if cfg.LogLevel() != "debug" || cfg.LogFormat() != "json" {
		t.Errorf("unexpected log settings %s/%s", cfg.LogLevel(), cfg.LogFormat())
	}
}

func TestWithConfigFile_PartialConfigKeepsDefaults(t *testing.T) {
	configPath := writeConfig(t, `{"origin": "http://localhost:3000", "mediaAssets": []}`)

	cfg, err := config.WithConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr() != ":8080" {
		t.Errorf("expected default ListenAddr, got %s", cfg.ListenAddr())
	}
	if cfg.StaticPartition() != manifest.DefaultStaticPartition {
		t.Errorf("expected default static partition, got %s", cfg.StaticPartition())
	}
	if len(cfg.StaticAssets()) != len(manifest.DefaultStaticPaths()) {
		t.Errorf("expected default static assets, got %d", len(cfg.StaticAssets()))
	}
	if len(cfg.MediaAssets()) != 0 {
		t.Errorf("expected explicit empty media manifest, got %v", cfg.MediaAssets())
	}
}
