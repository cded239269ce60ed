package cli

import (
	"github.com/benms/download-s3-file/errors"
)

// Exit statuses of the command.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
	ExitAuth        = 3
	ExitNotFound    = 4
	ExitLocalIO     = 5
	ExitInterrupted = 130
)

// ExitCode maps an error returned by the command to the process exit status.
func ExitCode(err error) int {
	switch errors.CodeOf(err) {
	case "":
		return ExitOK
	case errors.CodeInvalidInput:
		return ExitInvalidArgs
	case errors.CodeUnauthorized, errors.CodeForbidden:
		return ExitAuth
	case errors.CodeNotFound:
		return ExitNotFound
	case errors.CodeFilesystem:
		return ExitLocalIO
	case errors.CodeCanceled:
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
