package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/benms/download-s3-file/internal/s3api"
	"github.com/benms/download-s3-file/s3types"
)

// S3 is a Backend over the AWS SDK v2 S3 client.
type S3 struct {
	client s3api.S3API
}

var (
	_ Backend    = (*S3)(nil)
	_ Transferer = (*S3)(nil)
)

// NewS3 creates a Backend for client.
func NewS3(client s3api.S3API) *S3 {
	return &S3{client: client}
}

// Stat implements Backend using HeadObject.
func (b *S3) Stat(ctx context.Context, bucket, key string) (*s3types.ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateS3Error("stat", bucket, key, err)
	}

	return &s3types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		VersionID:    aws.ToString(out.VersionId),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Open implements Backend using GetObject.
func (b *S3) Open(
	ctx context.Context,
	bucket, key string,
	opts *GetOptions,
) (io.ReadCloser, *s3types.ObjectInfo, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if opts != nil {
		if opts.ranged() {
			input.Range = aws.String(rangeHeader(opts.Offset, opts.Length))
		}
		if opts.ChecksumMode {
			input.ChecksumMode = types.ChecksumModeEnabled
		}
		applyResponseHeaders(input, opts.ResponseHeaders)
	}

	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, nil, translateS3Error("get", bucket, key, err)
	}

	info := &s3types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		VersionID:    aws.ToString(out.VersionId),
		LastModified: aws.ToTime(out.LastModified),
	}
	return out.Body, info, nil
}

// Transfer implements Transferer with the SDK's managed downloader, which splits
// the object into PartSize ranges fetched by Concurrency goroutines.
func (b *S3) Transfer(
	ctx context.Context,
	bucket, key string,
	w io.WriterAt,
	opts *TransferOptions,
) (int64, error) {
	if opts == nil {
		opts = &TransferOptions{}
	}

	downloader := manager.NewDownloader(b.client, func(d *manager.Downloader) {
		if opts.Concurrency > 0 {
			d.Concurrency = opts.Concurrency
		}
		if opts.PartSize > 0 {
			d.PartSize = opts.PartSize
		}
	})

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if opts.ChecksumMode {
		input.ChecksumMode = types.ChecksumModeEnabled
	}

	counter := newCountingWriterAt(w, downloader.PartSize, opts.OnBytes)
	n, err := downloader.Download(ctx, counter, input)
	if err != nil {
		return n, translateS3Error("transfer", bucket, key, err)
	}
	return n, nil
}

func applyResponseHeaders(input *s3.GetObjectInput, h s3types.ResponseHeaders) {
	if h.ContentType != "" {
		input.ResponseContentType = aws.String(h.ContentType)
	}
	if h.ContentDisposition != "" {
		input.ResponseContentDisposition = aws.String(h.ContentDisposition)
	}
	if h.ContentLanguage != "" {
		input.ResponseContentLanguage = aws.String(h.ContentLanguage)
	}
	if h.CacheControl != "" {
		input.ResponseCacheControl = aws.String(h.CacheControl)
	}
	if !h.Expires.IsZero() {
		input.ResponseExpires = aws.Time(h.Expires)
	}
}

// rangeHeader renders an HTTP Range value. length <= 0 means "to the end".
func rangeHeader(offset, length int64) string {
	if length <= 0 {
		return fmt.Sprintf("bytes=%d-", offset)
	}
	return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
}
