package s3download

import (
	"context"
	"time"

	"github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/operations/download"
	"github.com/benms/download-s3-file/internal/progress"
	"github.com/benms/download-s3-file/s3types"
)

// Download fetches the object named by req and writes it to req's destination.
// The destination is created, or truncated if it exists.
//
// The destination directory is checked before any request is sent. On failure
// no file is left at the destination and the progress tracker's Error is called.
// A start marker and a "Finish" marker are logged for every call.
//
// Returns:
//   - *DownloadResult: Metadata of the written file and how long it took
//   - error: Returns an error if the download fails
//
// Errors:
//   - ErrInvalidInput: If req is nil or an option is invalid
//   - ErrLocalIO: If the destination cannot be written
//   - ErrObjectNotFound, ErrBucketNotFound: If the object does not exist
//   - ErrAccessDenied, ErrInvalidCredentials: If the service rejects the caller
//   - ErrTransfer, ErrTimeout, ErrTooManyRequests: If the transfer fails
func (c *Client) Download(
	ctx context.Context,
	req *DownloadRequest,
	opts ...s3types.DownloadOption,
) (*s3types.DownloadResult, error) {
	if req == nil {
		return nil, errors.NewError("download", errors.ErrInvalidInput).
			WithMessage("download request cannot be nil")
	}

	// Apply download options
	config := &s3types.DownloadOptionConfig{
		Strategy:    s3types.StrategyStream,
		Concurrency: c.concurrency,
		PartSize:    c.partSize,
		DetectMIME:  true,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.ConsoleProgress != nil {
		config.ProgressTracker = progress.Multi(
			config.ProgressTracker,
			progress.NewPrinter(config.ConsoleProgress, req.Destination()),
		)
	}

	startTime := time.Now()
	logger := c.logger.With(
		"bucket", req.Bucket(),
		"key", req.Key(),
		"destination", req.Destination(),
	)
	logger.Info("Start downloading", "strategy", config.Strategy)

	state := s3types.StateNotStarted
	defer func() {
		logger.Info("Finish", "state", state, "duration", time.Since(startTime))
	}()

	path, err := c.resolvePath(req.Destination())
	if err != nil {
		state = s3types.StateFailed
		logger.Error("download failed", "error", err)
		return nil, err
	}

	downloader := download.New(c.backend, c.fs, c.logger)
	result, err := downloader.DownloadFile(ctx, req.Bucket(), req.Key(), path, config, startTime)
	state = result.State
	if err != nil {
		logger.Error("download failed", "error", err, "code", errors.CodeOf(err))
		return nil, err
	}

	logger.Debug("download completed",
		"size", result.Size,
		"content_type", result.ContentType,
		"etag", result.ETag,
	)
	return result, nil
}
