package s3download

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/benms/download-s3-file/s3types"
)

// WithRegion sets the region of the storage service.
// If not specified, uses the region from the credential chain, then us-east-1.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of attempts for failed requests.
// Default is 3.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithRetryMode sets the retry mode for AWS SDK operations.
// Options are "standard", "adaptive". Default is "standard".
func WithRetryMode(mode string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.RetryMode = mode
	}
}

// WithTimeout sets the timeout for individual HTTP requests.
// Default is no timeout (0). Use a context deadline to bound a whole download.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default number of parts fetched at once by the
// managed strategy. Default is 10.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithPartSize sets the default part size of the managed strategy.
// Default is 8MB.
func WithPartSize(partSize int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
// Default is false (uses virtual-hosted style).
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithEndpoint sets a custom endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithBackend selects the SDK used to reach the storage service.
// Default is s3types.BackendAWS.
func WithBackend(kind s3types.BackendKind) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Backend = kind
	}
}

// WithLogger sets the logger used for download markers and diagnostics.
// If not specified, nothing is logged.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem destination files are written to.
// This allows using in-memory filesystems for testing.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithProgress sets a progress tracker for a download.
func WithProgress(tracker s3types.ProgressTracker) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithConsoleProgress renders a progress line to w, overwritten in place as
// bytes arrive. It can be combined with WithProgress.
func WithConsoleProgress(w io.Writer) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ConsoleProgress = w
	}
}

// WithStrategy selects how the object is transferred.
// Default is s3types.StrategyStream.
func WithStrategy(strategy s3types.Strategy) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.Strategy = strategy
	}
}

// WithDownloadConcurrency sets the number of parts fetched at once for this download.
// This overrides the client-level default.
func WithDownloadConcurrency(concurrency int) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithDownloadPartSize sets the part size for this download.
// This overrides the client-level default.
func WithDownloadPartSize(partSize int64) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithChecksumMode asks the service for object checksums so the SDK validates the body.
func WithChecksumMode(enabled bool) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ChecksumMode = enabled
	}
}

// WithResponseOverrides overrides headers of the GET response.
// Only the stream strategy sends them.
func WithResponseOverrides(headers s3types.ResponseHeaders) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ResponseHeaders = headers
	}
}

// WithContentTypeDetection controls whether the content type is sniffed from the
// downloaded bytes when the service reports none or a generic one. Default is true.
func WithContentTypeDetection(enabled bool) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.DetectMIME = enabled
	}
}
