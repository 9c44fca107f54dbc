package fileutil

import (
	"fmt"

	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

type FileErrorCause string

const (
	ErrCausePathError    FileErrorCause = "path error"
	ErrCauseNotDirectory FileErrorCause = "not a directory"
)

// FileError reports a failure to prepare a location on disk.
type FileError struct {
	Message   string
	Retryable bool
	Cause     FileErrorCause
	Path      string
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("file error: %s: %s", e.Cause, e.Message)
	}
	return fmt.Sprintf("file error: %s (%s): %s", e.Cause, e.Path, e.Message)
}

// Severity is fatal unless the error was marked retryable: a path that cannot
// be created now will not be creatable on the next attempt either.
func (e *FileError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
