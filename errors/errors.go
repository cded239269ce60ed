// Package errors provides error types and handling for object download operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a download error with context about the operation that failed.
// It wraps the underlying SDK or filesystem error with the bucket and key involved.
type Error struct {
	// Op is the operation that failed (e.g., "stat", "download", "open")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for download failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the request or configuration is invalid
	ErrInvalidInput = errors.New("s3: invalid input")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3: bucket not found")

	// ErrAccessDenied indicates that access to the object is denied
	ErrAccessDenied = errors.New("s3: access denied")

	// ErrInvalidCredentials indicates that the credentials were rejected
	ErrInvalidCredentials = errors.New("s3: invalid credentials")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("s3: too many requests")

	// ErrTimeout indicates that the operation timed out
	ErrTimeout = errors.New("s3: operation timeout")

	// ErrTransfer indicates a generic transport or client failure
	ErrTransfer = errors.New("s3: transfer failed")

	// ErrLocalIO indicates a local filesystem failure (permissions, missing directory, disk)
	ErrLocalIO = errors.New("s3: local io error")
)

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound checks if an error indicates that the object or its bucket was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrBucketNotFound)
}

// IsAuth checks if an error indicates that credentials were rejected or access was denied.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrInvalidCredentials)
}

// IsLocalIO checks if an error originated from the local filesystem.
func IsLocalIO(err error) bool {
	return errors.Is(err, ErrLocalIO)
}

// IsTransfer checks if an error is a transport failure that is not more specifically classified.
func IsTransfer(err error) bool {
	return errors.Is(err, ErrTransfer) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrTooManyRequests)
}
