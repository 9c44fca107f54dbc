package interceptor

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

type InterceptErrorCause string

const (
	ErrCauseOpenFailure      InterceptErrorCause = "partition open failed"
	ErrCauseLookupFailure    InterceptErrorCause = "lookup failed"
	ErrCauseStoreFailure     InterceptErrorCause = "store failed"
	ErrCauseListFailure      InterceptErrorCause = "list partitions failed"
	ErrCauseFetchFailure     InterceptErrorCause = "fetch failed"
	ErrCauseOriginRejected   InterceptErrorCause = "origin rejected entry"
	ErrCauseInvalidReference InterceptErrorCause = "invalid reference"
)

// InterceptError wraps the failure of an install, activate or fetch step.
// Err keeps the underlying fetcher or storage error reachable with errors.As.
type InterceptError struct {
	Message   string
	Retryable bool
	Cause     InterceptErrorCause
	Partition string
	Err       error
}

func (e *InterceptError) Error() string {
	if e.Partition != "" {
		return fmt.Sprintf("interceptor error: %s (%s): %s", e.Cause, e.Partition, e.Message)
	}
	return fmt.Sprintf("interceptor error: %s: %s", e.Cause, e.Message)
}

func (e *InterceptError) Unwrap() error {
	return e.Err
}

func (e *InterceptError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapInterceptErrorToMetadataCause maps interceptor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapInterceptErrorToMetadataCause(err *InterceptError) metadata.ErrorCause {
	var storageErr *cachestorage.StorageError
	if errors.As(err.Err, &storageErr) {
		return cachestorage.MapToMetadataCause(storageErr)
	}
	switch err.Cause {
	case ErrCauseFetchFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseOriginRejected:
		return metadata.CauseOriginRejected
	case ErrCauseOpenFailure, ErrCauseLookupFailure, ErrCauseStoreFailure, ErrCauseListFailure:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidReference:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
