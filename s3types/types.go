// Package s3types provides shared type definitions for the download module.
package s3types

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
)

// Strategy selects how an object is transferred to the destination.
type Strategy string

const (
	// StrategyStream fetches the object with a single GET and streams the body to the file.
	StrategyStream Strategy = "stream"

	// StrategyManaged splits the object into ranged GETs fetched by a bounded worker pool.
	StrategyManaged Strategy = "managed"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyStream || s == StrategyManaged
}

// BackendKind selects the SDK used to talk to the storage service.
type BackendKind string

const (
	// BackendAWS uses the AWS SDK for Go v2.
	BackendAWS BackendKind = "aws"

	// BackendMinio uses minio-go against any S3-compatible endpoint.
	BackendMinio BackendKind = "minio"
)

// Valid reports whether k names a known backend.
func (k BackendKind) Valid() bool {
	return k == BackendAWS || k == BackendMinio
}

// State is the lifecycle state of a download.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ObjectInfo contains the metadata of an object as reported by a metadata lookup.
type ObjectInfo struct {
	// Key is the object key
	Key string

	// Size is the object size in bytes
	Size int64

	// ContentType is the MIME type reported by the server
	ContentType string

	// ETag is the entity tag for the object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// LastModified is when the object was last modified
	LastModified time.Time
}

// ProgressTracker defines the interface for tracking transfer progress.
// Update may be called concurrently from several transfer workers.
type ProgressTracker interface {
	// Update is called with the cumulative bytes transferred and the object size
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// ResponseHeaders overrides headers of the GET response.
// Empty fields are not sent.
type ResponseHeaders struct {
	ContentType        string
	ContentDisposition string
	ContentLanguage    string
	CacheControl       string
	Expires            time.Time
}

// IsZero reports whether no override is set.
func (h ResponseHeaders) IsZero() bool {
	return h == ResponseHeaders{}
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Bucket is the bucket the object was downloaded from
	Bucket string

	// Key is the object key that was downloaded
	Key string

	// Path is the local destination path
	Path string

	// Size is the number of bytes written to Path
	Size int64

	// ContentType is the server-reported or sniffed MIME type
	ContentType string

	// ETag is the entity tag for the downloaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Strategy is the transfer strategy that was used
	Strategy Strategy

	// State is the final state of the download
	State State

	// Duration is how long the download took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration for the download client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	MaxRetries       int
	RetryMode        string
	Timeout          time.Duration
	Concurrency      int
	PartSize         int64
	ForcePathStyle   bool
	Backend          BackendKind
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Logger           *slog.Logger
	Filesystem       billy.Filesystem // Filesystem abstraction for the destination file
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	Strategy        Strategy
	ProgressTracker ProgressTracker
	ConsoleProgress io.Writer
	Concurrency     int
	PartSize        int64
	ChecksumMode    bool
	ResponseHeaders ResponseHeaders
	DetectMIME      bool
}

// Option is a functional option for configuring the download client.
type (
	Option func(*ClientConfig)
	// DownloadOption is a functional option for configuring a single download.
	DownloadOption func(*DownloadOptionConfig)
)
