package s3download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/s3api"
	"github.com/benms/download-s3-file/internal/storage"
	"github.com/benms/download-s3-file/s3types"
)

const (
	// DefaultRegion is used when neither the options nor the environment name one.
	DefaultRegion = "us-east-1"
	// DefaultConcurrency is the number of parts fetched at once by the managed strategy.
	DefaultConcurrency = 10
	// DefaultPartSize is the size of each part fetched by the managed strategy (8MB).
	DefaultPartSize = 8 * 1024 * 1024
)

// Client downloads objects to local files.
// It is safe for concurrent use; each Download owns its destination file.
type Client struct {
	// backend is the storage service the objects are read from
	backend storage.Backend

	// fs is the filesystem the destination files are written to
	fs billy.Filesystem

	// absPaths resolves relative destinations against the working directory,
	// needed when fs is the OS filesystem rooted at "/"
	absPaths bool

	logger      *slog.Logger
	concurrency int
	partSize    int64
}

func defaultClientConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:  3,
		RetryMode:   string(aws.RetryModeStandard),
		Concurrency: DefaultConcurrency,
		PartSize:    DefaultPartSize,
		Backend:     s3types.BackendAWS,
	}
}

// New creates a new Client with the provided options.
// With the default AWS backend, credentials come from the default credential chain.
//
// Example:
//
//	client, err := s3download.New(
//	    s3download.WithRegion("us-west-2"),
//	    s3download.WithMaxRetries(3),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}

	var backend storage.Backend
	switch clientCfg.Backend {
	case s3types.BackendAWS:
		s3Client, err := newS3Client(clientCfg)
		if err != nil {
			return nil, err
		}
		backend = storage.NewS3(s3Client)
	case s3types.BackendMinio:
		region := clientCfg.Region
		if region == "" {
			region = DefaultRegion
		}
		minioBackend, err := storage.DialMinio(storage.MinioConfig{
			Endpoint:  clientCfg.Endpoint,
			Region:    region,
			PathStyle: clientCfg.ForcePathStyle,
		})
		if err != nil {
			return nil, errors.NewError("client initialization", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
		}
		backend = minioBackend
	default:
		return nil, errors.NewError("client initialization", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown backend %q", clientCfg.Backend))
	}

	return newClient(backend, clientCfg), nil
}

// NewWithClient creates a Client over a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	return NewWithBackend(storage.NewS3(s3Client), opts...)
}

// NewWithBackend creates a Client over an existing storage backend.
func NewWithBackend(backend storage.Backend, opts ...s3types.Option) *Client {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	return newClient(backend, clientCfg)
}

func newClient(backend storage.Backend, clientCfg *s3types.ClientConfig) *Client {
	client := &Client{
		backend:     backend,
		fs:          clientCfg.Filesystem,
		logger:      clientCfg.Logger,
		concurrency: clientCfg.Concurrency,
		partSize:    clientCfg.PartSize,
	}

	// Default to OS filesystem rooted at /
	if client.fs == nil {
		client.fs = osfs.New("/")
		client.absPaths = true
	}
	if client.logger == nil {
		client.logger = slog.New(slog.DiscardHandler)
	}
	return client
}

// newS3Client builds the AWS SDK client from the client configuration.
func newS3Client(clientCfg *s3types.ClientConfig) (*s3.Client, error) {
	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if clientCfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(clientCfg.Region))
		}
		cfg, err = config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}
	if clientCfg.RetryMode != "" {
		mode, err := aws.ParseRetryMode(clientCfg.RetryMode)
		if err != nil {
			return nil, errors.NewError("client initialization", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
		}
		cfg.RetryMode = mode
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}

	// A custom HTTP client wins over the timeout shortcut
	switch {
	case clientCfg.CustomHTTPClient != nil:
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = clientCfg.CustomHTTPClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return s3.NewFromConfig(cfg, s3Opts...), nil
}

// resolvePath makes path usable with the client's filesystem.
func (c *Client) resolvePath(path string) (string, error) {
	if !c.absPaths || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewError("resolvePath", fmt.Errorf("%w: %w", errors.ErrLocalIO, err))
	}
	return abs, nil
}
