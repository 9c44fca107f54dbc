package interceptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
	"github.com/rohmanhakim/asset-interceptor/pkg/urlutil"
)

// Initialize opens both partitions and populates them from their manifests,
// the two partitions concurrently.
//
// Initialization is all-or-nothing: the first fetch failure or non-success
// response fails the whole run and cancels the fetches still in flight.
// Within one partition the bulk add is atomic, entries are written only once
// every entry of that manifest has been fetched.
//
// Running Initialize again with unchanged manifests overwrites entries in
// place and leaves the same set of keys.
func (m *Manager) Initialize(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, mf := range []manifest.Manifest{m.staticManifest, m.mediaManifest} {
		mf := mf
		g.Go(func() error {
			return m.precache(gctx, mf)
		})
	}
	if err := g.Wait(); err != nil {
		var interceptErr *InterceptError
		if errors.As(err, &interceptErr) {
			m.recordError("Manager.Initialize", interceptErr)
		}
		return err
	}
	return nil
}

func (m *Manager) precache(ctx context.Context, mf manifest.Manifest) error {
	name := mf.Partition()
	partition, err := m.storage.Open(ctx, name)
	if err != nil {
		return &InterceptError{
			Message:   err.Error(),
			Retryable: failure.SeverityOf(err) == failure.SeverityRecoverable,
			Cause:     ErrCauseOpenFailure,
			Partition: name,
			Err:       err,
		}
	}

	paths := mf.Paths()
	entries := make([]cachestorage.Entry, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if m.precacheConcurrency > 0 {
		g.SetLimit(m.precacheConcurrency)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			entry, err := m.fetchEntry(gctx, name, path)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := partition.PutAll(ctx, entries); err != nil {
		return &InterceptError{
			Message:   err.Error(),
			Retryable: failure.SeverityOf(err) == failure.SeverityRecoverable,
			Cause:     ErrCauseStoreFailure,
			Partition: name,
			Err:       err,
		}
	}
	m.metadataSink.RecordPartition(metadata.PartitionPopulated, name, len(entries))
	return nil
}

// fetchEntry fetches one manifest entry the way a bulk add does: the response
// must be storable, anything else rejects the whole manifest.
func (m *Manager) fetchEntry(ctx context.Context, partitionName string, path string) (cachestorage.Entry, error) {
	target, err := urlutil.Resolve(m.origin, path)
	if err != nil {
		return cachestorage.Entry{}, &InterceptError{
			Message:   err.Error(),
			Cause:     ErrCauseInvalidReference,
			Partition: partitionName,
			Err:       err,
		}
	}

	if err := m.rateLimiter.Wait(ctx); err != nil {
		return cachestorage.Entry{}, &InterceptError{
			Message:   fmt.Sprintf("%s: %v", target.String(), err),
			Cause:     ErrCauseFetchFailure,
			Partition: partitionName,
			Err:       err,
		}
	}

	result, fetchErr := m.fetcher.Fetch(ctx, fetcher.NewFetchParam(http.MethodGet, target, nil))
	if fetchErr != nil {
		return cachestorage.Entry{}, &InterceptError{
			Message:   fmt.Sprintf("%s: %v", target.String(), fetchErr),
			Retryable: fetchErr.Severity() == failure.SeverityRecoverable,
			Cause:     ErrCauseFetchFailure,
			Partition: partitionName,
			Err:       fetchErr,
		}
	}

	resp := m.toResponse(result)
	if !storable(resp) {
		return cachestorage.Entry{}, &InterceptError{
			Message:   fmt.Sprintf("%s answered %d", target.String(), resp.Status),
			Retryable: resp.Status >= 500,
			Cause:     ErrCauseOriginRejected,
			Partition: partitionName,
		}
	}

	return cachestorage.Entry{
		Key:      cachestorage.NewRequestKey(http.MethodGet, target),
		Response: resp,
	}, nil
}
