package fileutil

import (
	"os"
	"path/filepath"

	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
)

// EnsureDir creates dir joined with path, including missing parents.
// An existing regular file at that location is an error.
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	target := filepath.Join(append([]string{dir}, path...)...)

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return &FileError{
			Message: "a file already exists at this location",
			Cause:   ErrCauseNotDirectory,
			Path:    target,
		}
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return &FileError{
			Message: err.Error(),
			Cause:   ErrCausePathError,
			Path:    target,
		}
	}
	return nil
}

// EnsureParentDir creates the directory that will hold filePath.
func EnsureParentDir(filePath string) failure.ClassifiedError {
	return EnsureDir(filepath.Dir(filepath.Clean(filePath)))
}
