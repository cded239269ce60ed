// Package ranged downloads an object as a set of byte ranges fetched in
// parallel by a bounded worker pool and written in place through io.WriterAt.
package ranged

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	s3errors "github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/pool"
	"github.com/benms/download-s3-file/internal/storage"
)

const (
	// DefaultPartSize is used when TransferOptions.PartSize is not set (8MB)
	DefaultPartSize = 8 * 1024 * 1024
	// DefaultConcurrency is used when TransferOptions.Concurrency is not set
	DefaultConcurrency = 5
)

// Part is one byte range of an object.
type Part struct {
	Number int
	Offset int64
	Length int64
}

// Plan splits an object of size bytes into parts of at most partSize bytes.
// An empty object has no parts.
func Plan(size, partSize int64) []Part {
	if size <= 0 {
		return nil
	}
	if partSize <= 0 {
		partSize = DefaultPartSize
	}

	numParts := int((size + partSize - 1) / partSize) // Ceiling division
	parts := make([]Part, 0, numParts)
	for i := 0; i < numParts; i++ {
		offset := int64(i) * partSize
		length := partSize
		if offset+length > size {
			length = size - offset
		}
		parts = append(parts, Part{Number: i + 1, Offset: offset, Length: length})
	}
	return parts
}

// Fetch downloads size bytes of bucket/key into w. At most opts.Concurrency
// parts are in flight; the first failure cancels the rest. opts.OnBytes is
// called from the workers with every chunk written.
func Fetch(
	ctx context.Context,
	backend storage.Backend,
	bucket, key string,
	size int64,
	w io.WriterAt,
	opts *storage.TransferOptions,
) (int64, error) {
	if opts == nil {
		opts = &storage.TransferOptions{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	parts := Plan(size, opts.PartSize)
	if len(parts) == 0 {
		return 0, nil
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, part := range parts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := fetchPart(gctx, backend, bucket, key, part, w, opts)
			written.Add(n)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return written.Load(), err
	}
	// The loop stops early only when the parent context is done
	if err := ctx.Err(); err != nil {
		return written.Load(), s3errors.NewObjectError("fetch", bucket, key, err)
	}
	return written.Load(), nil
}

func fetchPart(
	ctx context.Context,
	backend storage.Backend,
	bucket, key string,
	part Part,
	w io.WriterAt,
	opts *storage.TransferOptions,
) (int64, error) {
	body, _, err := backend.Open(ctx, bucket, key, &storage.GetOptions{
		Offset:       part.Offset,
		Length:       part.Length,
		ChecksumMode: opts.ChecksumMode,
	})
	if err != nil {
		return 0, err
	}
	defer body.Close()

	buf := pool.GetBuffer(pool.CopyBufferSize)
	defer pool.PutBuffer(buf)

	dst := &partWriter{w: io.NewOffsetWriter(w, part.Offset), onBytes: opts.OnBytes}

	n, err := io.CopyBuffer(dst, io.LimitReader(body, part.Length), buf)
	if err != nil {
		if errors.Is(err, s3errors.ErrLocalIO) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return n, s3errors.NewObjectError("fetch", bucket, key, err)
		}
		return n, s3errors.NewObjectError("fetch", bucket, key,
			fmt.Errorf("%w: part %d: %w", s3errors.ErrTransfer, part.Number, err))
	}
	if n != part.Length {
		return n, s3errors.NewObjectError("fetch", bucket, key,
			fmt.Errorf("%w: part %d: got %d of %d bytes", s3errors.ErrTransfer, part.Number, n, part.Length))
	}
	return n, nil
}

// partWriter forwards writes to the destination, reports their size and
// tags destination failures as local I/O errors.
type partWriter struct {
	w       io.Writer
	onBytes func(n int64)
}

func (p *partWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 && p.onBytes != nil {
		p.onBytes(int64(n))
	}
	if err != nil {
		return n, fmt.Errorf("%w: %w", s3errors.ErrLocalIO, err)
	}
	return n, nil
}
