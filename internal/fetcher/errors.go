package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseCanceled              FetchErrorCause = "canceled"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseInvalidRequest        FetchErrorCause = "invalid request"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable reports whether a later attempt could succeed.
// Nothing in this module retries; the flag is informational.
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseInvalidRequest:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
