package s3download

import (
	"github.com/benms/download-s3-file/internal/validation"
)

// DownloadRequest identifies the object to fetch and where to write it.
// It is immutable once constructed.
type DownloadRequest struct {
	bucket      string
	key         string
	destination string
}

// NewDownloadRequest creates a request for bucket/key written to destination.
// All three values must be non-empty; nothing else is checked here.
//
// Errors:
//   - ErrInvalidInput: If any of the values is empty
func NewDownloadRequest(bucket, key, destination string) (*DownloadRequest, error) {
	if err := validation.ValidateRequest(bucket, key, destination); err != nil {
		return nil, err
	}
	return &DownloadRequest{
		bucket:      bucket,
		key:         key,
		destination: destination,
	}, nil
}

// Bucket returns the bucket name.
func (r *DownloadRequest) Bucket() string { return r.bucket }

// Key returns the object key.
func (r *DownloadRequest) Key() string { return r.key }

// Destination returns the local destination path.
func (r *DownloadRequest) Destination() string { return r.destination }
