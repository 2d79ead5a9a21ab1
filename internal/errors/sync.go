package errors

import (
	stderrors "errors"
	"fmt"
)

// ConnectionError reports that the remote host could not be reached.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to '%s': %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials.
type AuthError struct {
	Host   string
	User   string
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("login to '%s' as '%s' failed: %v", e.Host, e.User, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError reports a failed store. Detail is the remote reply text, verbatim.
type UploadError struct {
	Path    string
	Dataset string
	Detail  string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("uploading '%s' to '%s' failed: %v", e.Path, e.Dataset, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError reports a failed remote delete. Detail is the remote reply text, verbatim.
type DeleteError struct {
	Path    string
	Dataset string
	Detail  string
	Err     error
}

func (e *DeleteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("deleting '%s' from '%s' failed: %v", e.Path, e.Dataset, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// ConfigError reports a malformed configuration file, e.g. an allocation
// parameter line with no separator.
type ConfigError struct {
	File   string
	Line   int
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// As is errors.As, re-exported so callers need one import.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is, re-exported so callers need one import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// ErrContainerMissing is returned by a transport when a store targets a
// partitioned data set that has not been allocated.
var ErrContainerMissing = stderrors.New("container does not exist")
