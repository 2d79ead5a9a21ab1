package errors

import (
	"context"

	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// Classify maps a run error onto the CLI error envelope.
func Classify(err error) types.CLIError {
	if err == nil {
		return types.CLIError{}
	}

	var appErr *utils.AppError
	if As(err, &appErr) {
		return appErr.CLIError
	}

	var (
		connErr   *ConnectionError
		authErr   *AuthError
		uploadErr *UploadError
		deleteErr *DeleteError
		configErr *ConfigError
	)

	var builder *utils.CLIErrorBuilder
	switch {
	case As(err, &connErr):
		builder = utils.NewCLIError(utils.ErrCodeConnection, err.Error()).
			WithRetryable(true).
			WithContext("host", connErr.Host).
			WithContext("suggestedAction", "check the hostname and that the FTP service is reachable")
	case As(err, &authErr):
		builder = utils.NewCLIError(utils.ErrCodeAuthInvalid, err.Error()).
			WithContext("host", authErr.Host).
			WithContext("user", authErr.User).
			WithContext("suggestedAction", "run 'zsync auth login' or pass --password")
	case As(err, &uploadErr):
		builder = utils.NewCLIError(utils.ErrCodeUploadFailed, err.Error()).
			WithContext("path", uploadErr.Path).
			WithContext("dataset", uploadErr.Dataset)
	case As(err, &deleteErr):
		builder = utils.NewCLIError(utils.ErrCodeDeleteFailed, err.Error()).
			WithContext("path", deleteErr.Path).
			WithContext("dataset", deleteErr.Dataset)
	case As(err, &configErr):
		builder = utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).
			WithContext("file", configErr.File)
		if configErr.Line > 0 {
			builder.WithContext("line", configErr.Line)
		}
	case Is(err, context.Canceled):
		builder = utils.NewCLIError(utils.ErrCodeCancelled, err.Error())
	case Is(err, context.DeadlineExceeded):
		builder = utils.NewCLIError(utils.ErrCodeTimeout, err.Error()).WithRetryable(true)
	default:
		builder = utils.NewCLIError(utils.ErrCodeUnknown, err.Error())
	}

	var reply replyCoder
	if As(err, &reply) {
		builder.WithReplyCode(reply.ReplyCode())
	}
	return builder.Build()
}

// replyCoder is implemented by FTP reply errors.
type replyCoder interface {
	ReplyCode() int
}
