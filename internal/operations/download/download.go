package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/pool"
	"github.com/benms/download-s3-file/internal/progress"
	"github.com/benms/download-s3-file/internal/storage"
	"github.com/benms/download-s3-file/internal/transfer/ranged"
	"github.com/benms/download-s3-file/internal/validation"
	"github.com/benms/download-s3-file/s3types"
)

// Downloader handles object downloads to a filesystem with progress tracking support.
type Downloader struct {
	backend storage.Backend
	fs      billy.Filesystem
	logger  *slog.Logger
}

// New creates a new Downloader instance.
func New(backend storage.Backend, fs billy.Filesystem, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		backend: backend,
		fs:      fs,
		logger:  logger,
	}
}

// DownloadFile downloads bucket/key to path. The file is created, or truncated
// if it exists. The returned result is never nil; on failure its State is
// StateFailed and no file is left at path.
func (d *Downloader) DownloadFile(
	ctx context.Context,
	bucket, key, path string,
	config *s3types.DownloadOptionConfig,
	startTime time.Time,
) (result *s3types.DownloadResult, err error) {
	if config == nil {
		config = &s3types.DownloadOptionConfig{}
	}
	strategy := config.Strategy
	if strategy == "" {
		strategy = s3types.StrategyStream
	}

	result = &s3types.DownloadResult{
		Bucket:   bucket,
		Key:      key,
		Path:     path,
		Strategy: strategy,
		State:    s3types.StateNotStarted,
	}
	tracker := config.ProgressTracker

	defer func() {
		result.Duration = time.Since(startTime)
		if err != nil {
			result.State = s3types.StateFailed
			if tracker != nil {
				tracker.Error(err)
			}
		}
	}()

	if !strategy.Valid() {
		return result, errors.NewObjectError("download", bucket, key,
			fmt.Errorf("%w: unknown strategy %q", errors.ErrInvalidInput, strategy))
	}

	// Nothing is sent to the service until the destination is known to be writable
	if err := validation.CheckDestination(d.fs, path); err != nil {
		return result, err
	}

	result.State = s3types.StateInProgress

	info, err := d.backend.Stat(ctx, bucket, key)
	if err != nil {
		return result, err
	}
	result.ETag = info.ETag
	result.VersionID = info.VersionID
	result.ContentType = info.ContentType

	d.logger.Debug("object metadata",
		"bucket", bucket,
		"key", key,
		"size", info.Size,
		"strategy", strategy,
	)

	file, err := d.fs.Create(path)
	if err != nil {
		return result, localIOError("create", bucket, key, err)
	}

	written, err := d.transfer(ctx, file, bucket, key, info, strategy, config, result)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = localIOError("close", bucket, key, closeErr)
	}
	if err == nil && written != info.Size {
		err = errors.NewObjectError("download", bucket, key,
			fmt.Errorf("%w: wrote %d of %d bytes", errors.ErrTransfer, written, info.Size))
	}
	if err != nil {
		if rmErr := d.fs.Remove(path); rmErr != nil {
			d.logger.Warn("failed to remove partial file", "path", path, "error", rmErr)
		}
		return result, err
	}

	if config.DetectMIME && needsSniffing(result.ContentType) {
		if detected := d.sniff(path); detected != "" {
			result.ContentType = detected
		}
	}

	result.Size = written
	result.State = s3types.StateCompleted
	if tracker != nil {
		tracker.Complete()
	}
	return result, nil
}

// transfer runs the selected strategy and returns the number of bytes written.
func (d *Downloader) transfer(
	ctx context.Context,
	file billy.File,
	bucket, key string,
	info *s3types.ObjectInfo,
	strategy s3types.Strategy,
	config *s3types.DownloadOptionConfig,
	result *s3types.DownloadResult,
) (int64, error) {
	onBytes := progress.Callback(info.Size, config.ProgressTracker)

	// A ranged GET on an empty object is answered with InvalidRange
	if info.Size == 0 {
		onBytes(0)
		return 0, nil
	}

	if strategy == s3types.StrategyManaged {
		return d.managed(ctx, file, bucket, key, info, config, onBytes)
	}
	return d.stream(ctx, file, bucket, key, config, onBytes, result)
}

// stream fetches the object with a single GET and copies the body to file.
func (d *Downloader) stream(
	ctx context.Context,
	file billy.File,
	bucket, key string,
	config *s3types.DownloadOptionConfig,
	onBytes func(int64),
	result *s3types.DownloadResult,
) (int64, error) {
	body, info, err := d.backend.Open(ctx, bucket, key, &storage.GetOptions{
		ChecksumMode:    config.ChecksumMode,
		ResponseHeaders: config.ResponseHeaders,
	})
	if err != nil {
		return 0, err
	}
	defer body.Close()

	// Response overrides change what the server reports for this GET
	if info != nil && info.ContentType != "" {
		result.ContentType = info.ContentType
	}

	buf := pool.GetBuffer(pool.CopyBufferSize)
	defer pool.PutBuffer(buf)

	// Hide any WriterTo so the copy goes through buf in bounded chunks
	src := struct{ io.Reader }{body}
	written, err := io.CopyBuffer(&localWriter{w: file, onBytes: onBytes}, src, buf)
	if err != nil {
		if errors.IsLocalIO(err) || isContextError(err) {
			return written, errors.NewObjectError("stream", bucket, key, err)
		}
		return written, errors.NewObjectError("stream", bucket, key,
			fmt.Errorf("%w: %w", errors.ErrTransfer, err))
	}
	return written, nil
}

// managed fetches byte ranges concurrently. Backends that ship their own
// transfer engine use it; the others go through the generic ranged fetcher.
func (d *Downloader) managed(
	ctx context.Context,
	file billy.File,
	bucket, key string,
	info *s3types.ObjectInfo,
	config *s3types.DownloadOptionConfig,
	onBytes func(int64),
) (int64, error) {
	opts := &storage.TransferOptions{
		Concurrency:  config.Concurrency,
		PartSize:     config.PartSize,
		ChecksumMode: config.ChecksumMode,
		OnBytes:      onBytes,
	}
	// Parts land at their final offsets, so the file is sized up front
	if err := file.Truncate(info.Size); err != nil {
		return 0, localIOError("truncate", bucket, key, err)
	}
	w := writerAt(file)

	if t, ok := d.backend.(storage.Transferer); ok {
		d.logger.Debug("using backend managed transfer", "concurrency", opts.Concurrency, "part_size", opts.PartSize)
		return t.Transfer(ctx, bucket, key, &localWriterAt{w: w}, opts)
	}

	d.logger.Debug("using ranged transfer", "concurrency", opts.Concurrency, "part_size", opts.PartSize)
	return ranged.Fetch(ctx, d.backend, bucket, key, info.Size, w, opts)
}

// sniff detects the content type from the downloaded bytes.
func (d *Downloader) sniff(path string) string {
	f, err := d.fs.Open(path)
	if err != nil {
		d.logger.Debug("content type detection skipped", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		d.logger.Debug("content type detection failed", "path", path, "error", err)
		return ""
	}
	return mtype.String()
}

func needsSniffing(contentType string) bool {
	switch contentType {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func localIOError(op, bucket, key string, err error) error {
	return errors.NewObjectError(op, bucket, key, fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
}

// localWriter reports bytes that reached the destination and tags write
// failures as local I/O errors.
type localWriter struct {
	w       io.Writer
	onBytes func(int64)
}

func (l *localWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if n > 0 && l.onBytes != nil {
		l.onBytes(int64(n))
	}
	if err != nil {
		return n, fmt.Errorf("%w: %w", errors.ErrLocalIO, err)
	}
	return n, nil
}

// localWriterAt tags destination write failures as local I/O errors.
type localWriterAt struct {
	w io.WriterAt
}

func (l *localWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := l.w.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("%w: %w", errors.ErrLocalIO, err)
	}
	return n, nil
}

// writerAt returns the file's own WriteAt when it has one, and otherwise
// serializes Seek+Write pairs.
func writerAt(f billy.File) io.WriterAt {
	if w, ok := f.(io.WriterAt); ok {
		return w
	}
	return &seekWriterAt{f: f}
}

type seekWriterAt struct {
	mu sync.Mutex
	f  billy.File
}

func (s *seekWriterAt) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", off, err)
	}
	//nolint:wrapcheck // io.WriterAt contract - error comes from the file
	return s.f.Write(p)
}
