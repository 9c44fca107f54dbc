package interceptor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
	"github.com/rohmanhakim/asset-interceptor/pkg/urlutil"
)

// Source tells where a handled response came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Outcome is the result of HandleRequest.
// When Handled is false the request must take the default network path and
// the remaining fields are zero.
type Outcome struct {
	Class    Class
	Handled  bool
	Source   Source
	Response cachestorage.Response
}

// HandleRequest applies the interception policy to req.
//
// Pass-through requests return an unhandled Outcome without touching storage.
// Media and static requests are answered cache-first: a stored entry is
// returned without network access; on a miss the request is fetched, a copy
// of a storable response is put into the partition, and the live response is
// returned. A failed fetch is returned as an error and nothing is stored.
func (m *Manager) HandleRequest(ctx context.Context, req *http.Request) (Outcome, error) {
	class := Classify(req.Method, *req.URL)
	if class == ClassPassThrough {
		return Outcome{Class: class}, nil
	}

	resp, source, err := m.cacheFirst(ctx, m.partitionFor(class), req)
	if err != nil {
		return Outcome{Class: class, Handled: true}, err
	}
	return Outcome{
		Class:    class,
		Handled:  true,
		Source:   source,
		Response: resp,
	}, nil
}

func (m *Manager) cacheFirst(ctx context.Context, partitionName string, req *http.Request) (cachestorage.Response, Source, error) {
	callerMethod := "Manager.HandleRequest"
	target := urlutil.ResolveRequestURL(m.origin, *req.URL)
	key := cachestorage.NewRequestKey(req.Method, target)
	urlAttr := metadata.NewAttr(metadata.AttrURL, key.URL)

	partition, err := m.storage.Open(ctx, partitionName)
	if err != nil {
		interceptErr := &InterceptError{
			Message:   err.Error(),
			Retryable: failure.SeverityOf(err) == failure.SeverityRecoverable,
			Cause:     ErrCauseOpenFailure,
			Partition: partitionName,
			Err:       err,
		}
		m.recordError(callerMethod, interceptErr, urlAttr)
		return cachestorage.Response{}, "", interceptErr
	}

	cached, found, err := partition.Match(ctx, key)
	if err != nil {
		interceptErr := &InterceptError{
			Message:   err.Error(),
			Retryable: failure.SeverityOf(err) == failure.SeverityRecoverable,
			Cause:     ErrCauseLookupFailure,
			Partition: partitionName,
			Err:       err,
		}
		m.recordError(callerMethod, interceptErr, urlAttr)
		return cachestorage.Response{}, "", interceptErr
	}
	if found {
		m.metadataSink.RecordCacheLookup(partitionName, key.String(), metadata.LookupHit)
		return cached, SourceCache, nil
	}
	m.metadataSink.RecordCacheLookup(partitionName, key.String(), metadata.LookupMiss)

	result, fetchErr := m.fetcher.Fetch(ctx, fetcher.NewFetchParam(req.Method, target, req.Header))
	if fetchErr != nil {
		interceptErr := &InterceptError{
			Message:   fmt.Sprintf("%s: %v", key.URL, fetchErr),
			Retryable: fetchErr.Severity() == failure.SeverityRecoverable,
			Cause:     ErrCauseFetchFailure,
			Partition: partitionName,
			Err:       fetchErr,
		}
		m.recordError(callerMethod, interceptErr, urlAttr)
		return cachestorage.Response{}, "", interceptErr
	}

	live := m.toResponse(result)
	if storable(live) {
		// the live response is already fetched; a caller hanging up must not lose the fill
		if err := partition.Put(context.WithoutCancel(ctx), key, live.Clone()); err != nil {
			m.recordError(callerMethod, &InterceptError{
				Message:   err.Error(),
				Cause:     ErrCauseStoreFailure,
				Partition: partitionName,
				Err:       err,
			}, urlAttr)
		}
	}
	return live, SourceNetwork, nil
}
