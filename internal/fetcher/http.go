package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
	"github.com/rohmanhakim/asset-interceptor/pkg/hashutil"
)

/*
Responsibilities

- Perform HTTP requests against the origin
- Apply headers and timeouts
- Materialize the response body exactly once

Fetch Semantics

- Any HTTP status is a result, not an error; callers decide what a 404 means
- Transport failures and aborted bodies are errors
- No retries
- Every fetch is recorded with metadata

The fetcher never stores anything; it only returns bytes and metadata.
*/

type HTTPFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
}

// NewHTTPFetcher returns a fetcher using httpClient, or a default client when nil.
// Request timeouts are the client's concern.
func NewHTTPFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

func (h *HTTPFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HTTPFetcher.Fetch"
	startTime := time.Now()

	result, err := h.performFetch(ctx, fetchParam)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	var size uint64
	if err == nil {
		statusCode = result.Code()
		contentType = result.ContentType()
		size = result.SizeByte()
	}

	fetchUrl := fetchParam.URL()
	h.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		size,
	)

	if err != nil {
		h.recordFetchError(callerMethod, fetchParam, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HTTPFetcher) recordFetchError(callerMethod string, fetchParam FetchParam, err failure.ClassifiedError) {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		fetchUrl := fetchParam.URL()
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(fetchError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
				metadata.NewAttr(metadata.AttrMethod, fetchParam.Method()),
			},
		)
	}
}

func (h *HTTPFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchUrl := fetchParam.URL()
	if !fetchUrl.IsAbs() {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("fetch URL is not absolute: %q", fetchUrl.String()),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	req, err := http.NewRequestWithContext(ctx, fetchParam.Method(), fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}
	req.Header = outgoingHeaders(fetchParam.header, h.userAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(ctx, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if fetchErr := classifyTransportError(ctx, "failed to read response body", err); fetchErr.Cause != ErrCauseNetworkFailure {
			return FetchResult{}, fetchErr
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     endToEndHeaders(resp.Header),
			digest:              digestOf(body),
		},
	}, nil
}

func classifyTransportError(ctx context.Context, message string, err error) *FetchError {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return &FetchError{
			Message:   fmt.Sprintf("%s: %v", message, err),
			Retryable: false,
			Cause:     ErrCauseCanceled,
		}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   fmt.Sprintf("%s: %v", message, err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("%s: %v", message, err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func digestOf(body []byte) string {
	return hashutil.Digest(body)
}

