package validation

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/benms/download-s3-file/errors"
)

const probePrefix = ".s3download-probe-"

// ValidateRequest checks that bucket, key and destination are all set.
// Any non-empty values are accepted; the service decides whether they exist.
func ValidateRequest(bucket, key, dest string) error {
	if bucket == "" {
		return errors.NewError("validateRequest", errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	if key == "" {
		return errors.NewError("validateRequest", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("object key cannot be empty")
	}
	if dest == "" {
		return errors.NewError("validateRequest", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("destination path cannot be empty")
	}
	return nil
}

// CheckDestination verifies that path can be created on fs: its parent must
// exist, be a directory and accept new files, and path itself must not be a
// directory. Failures are reported as ErrLocalIO.
func CheckDestination(fs billy.Filesystem, path string) error {
	dir := filepath.Dir(path)

	info, err := fs.Stat(dir)
	if err != nil {
		return localIOError(fmt.Errorf("destination directory %s: %w", dir, err))
	}
	if !info.IsDir() {
		return localIOError(fmt.Errorf("destination parent %s is not a directory", dir))
	}

	if info, err := fs.Lstat(path); err == nil && info.IsDir() {
		return localIOError(fmt.Errorf("destination %s is a directory", path))
	}

	probe, err := fs.TempFile(dir, probePrefix)
	if err != nil {
		return localIOError(fmt.Errorf("destination directory %s is not writable: %w", dir, err))
	}
	name := probe.Name()
	_ = probe.Close()
	if err := fs.Remove(name); err != nil {
		return localIOError(fmt.Errorf("failed to remove probe file %s: %w", name, err))
	}

	return nil
}

func localIOError(err error) error {
	return errors.NewError("checkDestination", fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
}
