// Package testutil provides test helper functions.
package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// GenerateRandomData generates random bytes of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateTestKey generates a test object key with optional prefix.
// This helps ensure test isolation by using unique keys.
func GenerateTestKey(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := rand.Int63n(100000)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, timestamp, random)
}

// GenerateTestBucketName generates a valid test bucket name.
// Bucket names must be DNS-compliant and globally unique.
func GenerateTestBucketName(prefix string) string {
	timestamp := time.Now().Unix()
	random := rand.Int31n(10000)
	name := fmt.Sprintf("%s-%d-%d", prefix, timestamp, random)
	// Ensure DNS compliance
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag calculates the ETag for the given data.
// For simple uploads, this is the MD5 hash.
func CalculateETag(data []byte) string {
	h := md5.Sum(data)
	return fmt.Sprintf(`"%x"`, h)
}

// StoredObject is an object held by an ObjectStore.
type StoredObject struct {
	Data         []byte
	ContentType  string
	LastModified time.Time
}

// ObjectStore is an in-memory bucket that answers HeadObject and ranged
// GetObject calls the way S3 does. It is safe for concurrent use, so the
// managed downloader can fetch parts in parallel against it.
type ObjectStore struct {
	bucket string

	mu      sync.RWMutex
	objects map[string]StoredObject
	ranges  []string
}

// NewObjectStore creates an empty in-memory bucket.
func NewObjectStore(bucket string) *ObjectStore {
	return &ObjectStore{
		bucket:  bucket,
		objects: make(map[string]StoredObject),
	}
}

// Put stores data under key.
func (s *ObjectStore) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{Data: data, ContentType: contentType, LastModified: time.Now()}
}

// Ranges returns the Range headers received by GetObject, in arrival order.
func (s *ObjectStore) Ranges() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// Client returns a MockS3Client backed by the store.
func (s *ObjectStore) Client() *MockS3Client {
	return &MockS3Client{
		HeadObjectFunc: s.headObject,
		GetObjectFunc:  s.getObject,
	}
}

func (s *ObjectStore) lookup(bucket, key string) (StoredObject, bool, error) {
	if bucket != s.bucket {
		return StoredObject{}, false, &smithy.GenericAPIError{
			Code:    "NoSuchBucket",
			Message: "The specified bucket does not exist",
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok, nil
}

func (s *ObjectStore) headObject(
	_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	obj, ok, err := s.lookup(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(obj.ContentType),
		ETag:          aws.String(CalculateETag(obj.Data)),
		LastModified:  aws.Time(obj.LastModified),
	}, nil
}

func (s *ObjectStore) getObject(
	_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	obj, ok, err := s.lookup(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	contentType := obj.ContentType
	if params.ResponseContentType != nil {
		contentType = aws.ToString(params.ResponseContentType)
	}
	out := &s3.GetObjectOutput{
		ContentType:        aws.String(contentType),
		ContentDisposition: params.ResponseContentDisposition,
		ETag:               aws.String(CalculateETag(obj.Data)),
		LastModified:       aws.Time(obj.LastModified),
	}

	size := int64(len(obj.Data))
	if params.Range == nil {
		out.Body = io.NopCloser(bytes.NewReader(obj.Data))
		out.ContentLength = aws.Int64(size)
		return out, nil
	}

	rng := aws.ToString(params.Range)
	s.mu.Lock()
	s.ranges = append(s.ranges, rng)
	s.mu.Unlock()

	start, end, err := parseRange(rng, size)
	if err != nil {
		return nil, err
	}
	out.Body = io.NopCloser(bytes.NewReader(obj.Data[start : end+1]))
	out.ContentLength = aws.Int64(end - start + 1)
	out.ContentRange = aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	return out, nil
}

// parseRange parses "bytes=start-end" or "bytes=start-" against an object of size bytes.
func parseRange(rng string, size int64) (int64, int64, error) {
	invalid := &smithy.GenericAPIError{Code: "InvalidRange", Message: "The requested range is not satisfiable"}
	spec, ok := strings.CutPrefix(rng, "bytes=")
	if !ok {
		return 0, 0, invalid
	}
	from, to, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, invalid
	}
	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, invalid
	}
	end := size - 1
	if to != "" {
		if end, err = strconv.ParseInt(to, 10, 64); err != nil || end < start {
			return 0, 0, invalid
		}
	}
	if end > size-1 {
		end = size - 1
	}
	return start, end, nil
}
