// Package testutil provides test utilities and mocks for download operations.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/benms/download-s3-file/internal/s3api"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	GetObjectFunc  func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObjectFunc func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)

	getCalls  atomic.Int64
	headCalls atomic.Int64
}

var _ s3api.S3API = (*MockS3Client)(nil)

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	m.getCalls.Add(1)
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{}, nil
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	m.headCalls.Add(1)
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// GetObjectCalls returns how many times GetObject was invoked.
func (m *MockS3Client) GetObjectCalls() int64 {
	return m.getCalls.Load()
}

// HeadObjectCalls returns how many times HeadObject was invoked.
func (m *MockS3Client) HeadObjectCalls() int64 {
	return m.headCalls.Load()
}

// Calls returns the total number of S3 calls made through the mock.
func (m *MockS3Client) Calls() int64 {
	return m.getCalls.Load() + m.headCalls.Load()
}
