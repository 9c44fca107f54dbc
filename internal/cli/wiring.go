package cmd

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/config"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/limiter"
)

func newLogger(cfg config.Config, w io.Writer) *log.Logger {
	// Build has already validated the level
	level, _ := log.ParseLevel(cfg.LogLevel())

	formatter := log.TextFormatter
	switch cfg.LogFormat() {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "asset-interceptor",
	})
}

func openStorage(cfg config.Config) (cachestorage.Storage, error) {
	if cfg.StorageDriver() == config.StorageDriverSQLite {
		sqliteStorage, err := cachestorage.OpenSQLite(cfg.StoragePath())
		if err != nil {
			return nil, err
		}
		return sqliteStorage, nil
	}
	return cachestorage.NewMemoryStorage(), nil
}

func newManager(cfg config.Config, sink metadata.MetadataSink, storage cachestorage.Storage) (*interceptor.Manager, error) {
	httpFetcher := fetcher.NewHTTPFetcher(
		sink,
		&http.Client{Timeout: cfg.Timeout()},
		cfg.UserAgent(),
	)
	return interceptor.NewManager(sink, storage, httpFetcher, interceptor.ManagerParam{
		Origin:              cfg.Origin(),
		StaticManifest:      cfg.StaticManifest(),
		MediaManifest:       cfg.MediaManifest(),
		PrecacheConcurrency: cfg.PrecacheConcurrency(),
		RateLimiter:         limiter.NewTokenBucketLimiter(cfg.PrecacheRate(), cfg.PrecacheBurst()),
	})
}

// newAgent builds a versioned agent for cfg on top of an already open storage.
func newAgent(cfg config.Config, sink metadata.MetadataSink, storage cachestorage.Storage) (*interceptor.Dispatcher, error) {
	manager, err := newManager(cfg, sink, storage)
	if err != nil {
		return nil, err
	}
	return interceptor.Bind(manager), nil
}

type partitionSummary struct {
	name     string
	entries  int
	sizeByte uint64
	allowed  bool
}

// summarizePartitions reads every partition of storage and totals its stored bodies.
func summarizePartitions(ctx context.Context, storage cachestorage.Storage, allowList []string) ([]partitionSummary, error) {
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[name] = struct{}{}
	}

	names, err := storage.Keys(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]partitionSummary, 0, len(names))
	for _, name := range names {
		partition, err := storage.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		keys, err := partition.Keys(ctx)
		if err != nil {
			return nil, err
		}
		summary := partitionSummary{name: name, entries: len(keys)}
		_, summary.allowed = allowed[name]
		for _, key := range keys {
			resp, found, err := partition.Match(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				summary.sizeByte += resp.SizeByte()
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
