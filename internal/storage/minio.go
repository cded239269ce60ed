package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/benms/download-s3-file/s3types"
)

// MinioAPI is the subset of *minio.Client used by the Minio backend.
type MinioAPI interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

var _ MinioAPI = (*minio.Client)(nil)

// MinioConfig describes an S3-compatible endpoint.
type MinioConfig struct {
	// Endpoint is a URL ("https://play.min.io") or a bare host[:port].
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// Minio is a Backend for S3-compatible services through minio-go.
// It has no native managed transfer; the downloader falls back to ranged fetches.
type Minio struct {
	client MinioAPI
}

var _ Backend = (*Minio)(nil)

// NewMinio wraps an existing client.
func NewMinio(client MinioAPI) *Minio {
	return &Minio{client: client}
}

// DialMinio creates a minio-go client for cfg. Without static keys the
// credentials are taken from the AWS/MinIO environment variables.
func DialMinio(cfg MinioConfig) (*Minio, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
		})
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        creds,
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinio(client), nil
}

// Stat implements Backend using StatObject.
func (b *Minio) Stat(ctx context.Context, bucket, key string) (*s3types.ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateMinioError("stat", bucket, key, err)
	}
	return minioInfo(info), nil
}

// Open implements Backend using GetObject. minio-go defers request errors to the
// first read, so the object is stat'ed before it is returned.
func (b *Minio) Open(
	ctx context.Context,
	bucket, key string,
	opts *GetOptions,
) (io.ReadCloser, *s3types.ObjectInfo, error) {
	getOpts := minio.GetObjectOptions{}
	if opts != nil {
		if opts.ranged() {
			end := int64(0)
			if opts.Length > 0 {
				end = opts.Offset + opts.Length - 1
			}
			if err := getOpts.SetRange(opts.Offset, end); err != nil {
				return nil, nil, translateMinioError("get", bucket, key, err)
			}
		}
		h := opts.ResponseHeaders
		setReqParam(&getOpts, "response-content-type", h.ContentType)
		setReqParam(&getOpts, "response-content-disposition", h.ContentDisposition)
		setReqParam(&getOpts, "response-content-language", h.ContentLanguage)
		setReqParam(&getOpts, "response-cache-control", h.CacheControl)
		if !h.Expires.IsZero() {
			getOpts.SetReqParam("response-expires", h.Expires.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
		}
	}

	obj, err := b.client.GetObject(ctx, bucket, key, getOpts)
	if err != nil {
		return nil, nil, translateMinioError("get", bucket, key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, nil, translateMinioError("get", bucket, key, err)
	}
	return obj, minioInfo(info), nil
}

func setReqParam(opts *minio.GetObjectOptions, name, value string) {
	if value != "" {
		opts.SetReqParam(name, value)
	}
}

func minioInfo(info minio.ObjectInfo) *s3types.ObjectInfo {
	return &s3types.ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		VersionID:    info.VersionID,
		LastModified: info.LastModified,
	}
}

// splitEndpoint turns an endpoint URL into the host and TLS flag minio-go expects.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "s3.amazonaws.com", true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		// Bare host[:port]
		return endpoint, true, nil
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}
