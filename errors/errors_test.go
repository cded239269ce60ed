package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket and key",
			err:  NewObjectError("download", "my-bucket", "path/file.bin", ErrObjectNotFound),
			want: "s3.download my-bucket/path/file.bin: s3: object not found",
		},
		{
			name: "bucket only",
			err:  NewError("stat", ErrBucketNotFound).WithBucket("my-bucket"),
			want: "s3.stat bucket my-bucket: s3: bucket not found",
		},
		{
			name: "key only",
			err:  NewError("stat", ErrAccessDenied).WithKey("file.bin"),
			want: "s3.stat object file.bin: s3: access denied",
		},
		{
			name: "no context",
			err:  NewError("open", ErrLocalIO),
			want: "s3.open: s3: local io error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_WithMessageKeepsSentinel(t *testing.T) {
	err := NewError("newRequest", ErrInvalidInput).WithMessage("bucket name cannot be empty")

	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "bucket name cannot be empty")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"invalid input", NewError("x", ErrInvalidInput), CodeInvalidInput},
		{"object not found", NewError("x", ErrObjectNotFound), CodeNotFound},
		{"bucket not found", ErrBucketNotFound, CodeNotFound},
		{"credentials", fmt.Errorf("wrapped: %w", ErrInvalidCredentials), CodeUnauthorized},
		{"access denied", ErrAccessDenied, CodeForbidden},
		{"local io", NewError("create", ErrLocalIO), CodeFilesystem},
		{"canceled", context.Canceled, CodeCanceled},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"throttled", ErrTooManyRequests, CodeRateLimit},
		{"transfer", ErrTransfer, CodeNetwork},
		{"unknown", errors.New("boom"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsNotFound(ErrBucketNotFound))
	assert.True(t, IsAuth(NewError("stat", ErrInvalidCredentials)))
	assert.True(t, IsLocalIO(NewError("create", ErrLocalIO)))
	assert.True(t, IsTransfer(ErrTimeout))
	assert.False(t, IsTransfer(ErrObjectNotFound))
}
