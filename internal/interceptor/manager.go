package interceptor

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/limiter"
)

/*
 Manager is the interception cache manager.

 It owns the caching policy and nothing else:
 - Populate the static and media partitions from their manifests at install
 - Delete partitions outside the allow-list at activation
 - Serve GET requests under /audio/ and /favicons/ cache-first, filling on miss

 Guarantees:
 - Cached entries are trusted unconditionally; there is no expiry,
   revalidation or integrity check. Renaming a partition is the only
   invalidation.
 - A present entry always short-circuits the network.
 - Fetch failures are never retried and never cached.
 - Pass-through requests never read or write a partition.

 Storage and network access are injected. The manager holds no mutable state
 of its own, so concurrent HandleRequest calls are independent.
*/
type Manager struct {
	metadataSink        metadata.MetadataSink
	storage             cachestorage.Storage
	fetcher             fetcher.Fetcher
	origin              url.URL
	staticManifest      manifest.Manifest
	mediaManifest       manifest.Manifest
	precacheConcurrency int
	rateLimiter         limiter.RateLimiter
	now                 func() time.Time
}

// ManagerParam carries the deployment-specific inputs of a Manager.
type ManagerParam struct {
	// Origin is the absolute base URL that manifest paths and intercepted
	// request paths are resolved against.
	Origin         url.URL
	StaticManifest manifest.Manifest
	MediaManifest  manifest.Manifest
	// PrecacheConcurrency bounds in-flight fetches per partition during install.
	// Zero or less means unbounded.
	PrecacheConcurrency int
	// RateLimiter paces precache fetches. Nil means unpaced.
	RateLimiter limiter.RateLimiter
}

var ErrInvalidManagerParam = errors.New("invalid manager param")

func NewManager(
	metadataSink metadata.MetadataSink,
	storage cachestorage.Storage,
	assetFetcher fetcher.Fetcher,
	param ManagerParam,
) (*Manager, error) {
	if !param.Origin.IsAbs() || param.Origin.Host == "" {
		return nil, fmt.Errorf("%w: origin %q is not an absolute URL", ErrInvalidManagerParam, param.Origin.String())
	}
	if err := param.StaticManifest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: static manifest: %w", ErrInvalidManagerParam, err)
	}
	if err := param.MediaManifest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: media manifest: %w", ErrInvalidManagerParam, err)
	}
	if param.StaticManifest.Partition() == param.MediaManifest.Partition() {
		return nil, fmt.Errorf("%w: static and media partitions share the name %q",
			ErrInvalidManagerParam, param.StaticManifest.Partition())
	}

	rateLimiter := param.RateLimiter
	if rateLimiter == nil {
		rateLimiter = limiter.Unlimited()
	}

	return &Manager{
		metadataSink:        metadataSink,
		storage:             storage,
		fetcher:             assetFetcher,
		origin:              param.Origin,
		staticManifest:      param.StaticManifest,
		mediaManifest:       param.MediaManifest,
		precacheConcurrency: param.PrecacheConcurrency,
		rateLimiter:         rateLimiter,
		now:                 time.Now,
	}, nil
}

func (m *Manager) StaticPartition() string {
	return m.staticManifest.Partition()
}

func (m *Manager) MediaPartition() string {
	return m.mediaManifest.Partition()
}

// AllowList is the set of partitions that survive activation.
func (m *Manager) AllowList() []string {
	return []string{m.StaticPartition(), m.MediaPartition()}
}

// Version identifies the deployment by its partition names.
func (m *Manager) Version() string {
	return strings.Join(m.AllowList(), "+")
}

func (m *Manager) partitionFor(class Class) string {
	switch class {
	case ClassMedia:
		return m.MediaPartition()
	case ClassStatic:
		return m.StaticPartition()
	default:
		return ""
	}
}

// storable reports whether a response may be put into a partition.
// Partial content and responses that vary on everything are refused.
func storable(resp cachestorage.Response) bool {
	if resp.Status < 200 || resp.Status > 299 || resp.Status == http.StatusPartialContent {
		return false
	}
	for _, v := range resp.Header.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if strings.TrimSpace(field) == "*" {
				return false
			}
		}
	}
	return true
}

func (m *Manager) toResponse(result fetcher.FetchResult) cachestorage.Response {
	return cachestorage.Response{
		Status:   result.Code(),
		Header:   result.Header().Clone(),
		Body:     result.Body(),
		Digest:   result.Digest(),
		StoredAt: m.now().UTC(),
	}
}

func (m *Manager) recordError(action string, err *InterceptError, attrs ...metadata.Attribute) {
	if err.Partition != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrPartition, err.Partition))
	}
	m.metadataSink.RecordError(
		m.now(),
		"interceptor",
		action,
		mapInterceptErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}
