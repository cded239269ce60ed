// Package storage adapts object-storage SDKs to the capability the downloader needs:
// a metadata lookup, a (ranged) byte stream, and optionally a managed transfer.
package storage

import (
	"context"
	"io"
	"sync"

	"github.com/benms/download-s3-file/s3types"
)

// GetOptions tunes a single GET.
type GetOptions struct {
	// Offset and Length select a byte range. Length <= 0 reads to the end.
	Offset int64
	Length int64

	// ChecksumMode asks the server to return checksums so the SDK can validate the body.
	ChecksumMode bool

	// ResponseHeaders overrides headers of the response.
	ResponseHeaders s3types.ResponseHeaders
}

// ranged reports whether a Range header is needed.
func (o *GetOptions) ranged() bool {
	return o != nil && (o.Offset > 0 || o.Length > 0)
}

// TransferOptions tunes a managed transfer.
type TransferOptions struct {
	Concurrency  int
	PartSize     int64
	ChecksumMode bool

	// OnBytes receives incremental byte counts, possibly from several goroutines.
	OnBytes func(n int64)
}

// Backend is the storage capability used by the downloader.
type Backend interface {
	// Stat looks up object metadata.
	Stat(ctx context.Context, bucket, key string) (*s3types.ObjectInfo, error)

	// Open returns the object body. The caller closes it.
	Open(ctx context.Context, bucket, key string, opts *GetOptions) (io.ReadCloser, *s3types.ObjectInfo, error)
}

// Transferer is implemented by backends whose SDK ships a managed, concurrent transfer.
type Transferer interface {
	Transfer(ctx context.Context, bucket, key string, w io.WriterAt, opts *TransferOptions) (int64, error)
}

// countingWriterAt reports newly written bytes to onBytes. Parts are aligned
// to partSize and a retried part is rewritten from its start, so only bytes
// past a part's high-water mark are counted.
type countingWriterAt struct {
	w        io.WriterAt
	onBytes  func(n int64)
	partSize int64

	mu   sync.Mutex
	high map[int64]int64
}

func newCountingWriterAt(w io.WriterAt, partSize int64, onBytes func(n int64)) *countingWriterAt {
	return &countingWriterAt{w: w, onBytes: onBytes, partSize: partSize, high: make(map[int64]int64)}
}

func (c *countingWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.w.WriteAt(p, off)
	if n > 0 && c.onBytes != nil {
		if fresh := c.advance(off, off+int64(n)); fresh > 0 {
			c.onBytes(fresh)
		}
	}
	//nolint:wrapcheck // io.WriterAt contract - error comes from the destination
	return n, err
}

// advance moves the high-water mark of the part holding off to end and
// returns how many bytes it grew by.
func (c *countingWriterAt) advance(off, end int64) int64 {
	part := int64(0)
	if c.partSize > 0 {
		part = off / c.partSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	mark, ok := c.high[part]
	if !ok || mark < off {
		mark = off
	}
	if end <= mark {
		return 0
	}
	c.high[part] = end
	return end - mark
}
