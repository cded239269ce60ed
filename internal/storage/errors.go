package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/minio/minio-go/v7"

	s3errors "github.com/benms/download-s3-file/errors"
)

// sentinelForCode maps S3 error codes, which both SDKs surface verbatim, to sentinels.
func sentinelForCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return s3errors.ErrObjectNotFound
	case "NoSuchBucket":
		return s3errors.ErrBucketNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled", "AccountProblem":
		return s3errors.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken",
		"TokenRefreshRequired", "RequestTimeTooSkewed":
		return s3errors.ErrInvalidCredentials
	case "SlowDown", "Throttling", "ThrottlingException", "TooManyRequests", "RequestLimitExceeded":
		return s3errors.ErrTooManyRequests
	case "RequestTimeout":
		return s3errors.ErrTimeout
	case "InvalidRange", "InvalidArgument", "InvalidBucketName":
		return s3errors.ErrInvalidInput
	}
	return nil
}

func sentinelForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return s3errors.ErrObjectNotFound
	case http.StatusUnauthorized:
		return s3errors.ErrInvalidCredentials
	case http.StatusForbidden:
		return s3errors.ErrAccessDenied
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return s3errors.ErrTooManyRequests
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return s3errors.ErrTimeout
	}
	return nil
}

// classify joins the sentinel describing err with err itself.
// Context errors and destination failures pass through unchanged.
func classify(err error, sentinel error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, s3errors.ErrLocalIO) {
		return err
	}
	if sentinel == nil {
		sentinel = s3errors.ErrTransfer
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// translateS3Error converts an AWS SDK v2 error into the module's taxonomy.
func translateS3Error(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		sentinel = sentinelForCode(apiErr.ErrorCode())
	}
	if sentinel == nil {
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			sentinel = sentinelForStatus(respErr.HTTPStatusCode())
		}
	}
	if sentinel == nil && strings.Contains(err.Error(), "failed to retrieve credentials") {
		sentinel = s3errors.ErrInvalidCredentials
	}

	return s3errors.NewObjectError(op, bucket, key, classify(err, sentinel))
}

// translateMinioError converts a minio-go error into the module's taxonomy.
func translateMinioError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	sentinel := sentinelForCode(resp.Code)
	if sentinel == nil {
		sentinel = sentinelForStatus(resp.StatusCode)
	}

	return s3errors.NewObjectError(op, bucket, key, classify(err, sentinel))
}
