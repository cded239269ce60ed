package cli

import (
	"context"
	"io"
	"log/slog"

	s3download "github.com/benms/download-s3-file"
	"github.com/benms/download-s3-file/internal/config"
	"github.com/benms/download-s3-file/internal/logger"
	"github.com/benms/download-s3-file/s3types"
)

// ClientOptions translates cfg into client options.
func ClientOptions(cfg config.Config, log *slog.Logger) []s3types.Option {
	opts := []s3types.Option{
		s3download.WithBackend(s3types.BackendKind(cfg.Backend)),
		s3download.WithMaxRetries(cfg.MaxRetries),
		s3download.WithConcurrency(cfg.Concurrency),
		s3download.WithPartSize(cfg.PartSize),
		s3download.WithForcePathStyle(cfg.ForcePathStyle),
		s3download.WithLogger(log),
	}
	if cfg.Region != "" {
		opts = append(opts, s3download.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, s3download.WithEndpoint(cfg.Endpoint))
	}
	return opts
}

// Download performs the download described by cfg. The progress line goes to
// progressOut and log records to logOut. Failures are logged by the client and
// returned unchanged.
func Download(ctx context.Context, cfg config.Config, progressOut, logOut io.Writer) error {
	log := logger.New(cfg.LogLevel, logOut)

	client, err := s3download.New(ClientOptions(cfg, log)...)
	if err != nil {
		log.Error("failed to create client", "error", err)
		return err
	}

	req, err := s3download.NewDownloadRequest(cfg.Bucket, cfg.Key, cfg.Destination)
	if err != nil {
		log.Error("invalid download request", "error", err)
		return err
	}

	opts := []s3types.DownloadOption{
		s3download.WithStrategy(s3types.Strategy(cfg.Strategy)),
		s3download.WithDownloadConcurrency(cfg.Concurrency),
		s3download.WithDownloadPartSize(cfg.PartSize),
	}
	if !cfg.NoProgress {
		opts = append(opts, s3download.WithConsoleProgress(progressOut))
	}

	_, err = client.Download(ctx, req, opts...)
	return err
}
