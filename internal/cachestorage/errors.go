package cachestorage

import (
	"fmt"

	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseOpenFailure    StorageErrorCause = "open failed"
	ErrCauseReadFailure    StorageErrorCause = "read failed"
	ErrCauseWriteFailure   StorageErrorCause = "write failed"
	ErrCauseDeleteFailure  StorageErrorCause = "delete failed"
	ErrCauseCorruptEntry   StorageErrorCause = "corrupt entry"
	ErrCauseInvalidRequest StorageErrorCause = "invalid request"
	ErrCauseClosed         StorageErrorCause = "storage closed"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Partition string
}

func (e *StorageError) Error() string {
	if e.Partition != "" {
		return fmt.Sprintf("storage error: %s (%s): %s", e.Cause, e.Partition, e.Message)
	}
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapToMetadataCause maps storage-local error semantics to the canonical
// metadata.ErrorCause table. Observational only.
func MapToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseInvalidRequest:
		return metadata.CauseInvariantViolation
	case "":
		return metadata.CauseUnknown
	default:
		return metadata.CauseStorageFailure
	}
}
