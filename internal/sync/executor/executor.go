package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/logging"
	"github.com/dl-alexandre/zsync/internal/sync/alloc"
	"github.com/dl-alexandre/zsync/internal/sync/diff"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/sync/naming"
	"github.com/dl-alexandre/zsync/internal/sync/scanner"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// Executor replays a ChangeSet against the remote repository. It owns the
// session for the duration of Apply and runs strictly sequentially.
type Executor struct {
	session Session
	fs      afero.Fs
	logger  logging.Logger
}

type Options struct {
	Host     string
	User     string
	Password string
	// LocalRoot resolves files scanned without an absolute path.
	LocalRoot string
	// RemoteRoot is the high-level qualifier every container hangs off.
	RemoteRoot string
	// Upload stores changed files; when false changes are only reported.
	Upload     bool
	Allocation alloc.Table
}

// State is the run's position in its lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateScanning      State = "scanning"
	StateNoChanges     State = "no_changes"
	StateSessionOpen   State = "session_open"
	StateUploading     State = "uploading"
	StateDeleting      State = "deleting"
	StateSessionClosed State = "session_closed"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

type Summary struct {
	State    State    `json:"state"`
	Uploaded []string `json:"uploaded,omitempty"`
	Reported []string `json:"reported,omitempty"`
	Created  []string `json:"created,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
}

func New(session Session, fs afero.Fs, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Executor{
		session: session,
		fs:      fs,
		logger:  logger,
	}
}

// Apply runs one synchronization. Index entries are updated as each file
// succeeds, so on error idx reflects exactly the operations that completed.
// The first unrecoverable upload or delete failure stops the run.
func (e *Executor) Apply(ctx context.Context, changes diff.ChangeSet, idx *index.Index, opts Options) (summary Summary, err error) {
	summary.State = StateIdle
	e.transition(&summary, StateScanning)

	if changes.Empty() {
		e.logger.Info("no files have been added, changed or removed")
		e.transition(&summary, StateNoChanges)
		return summary, nil
	}

	e.logger.Debug(fmt.Sprintf("connecting to '%s' host", opts.Host))
	if err := e.session.Connect(ctx, opts.Host); err != nil {
		e.transition(&summary, StateFailed)
		return summary, &zerrors.ConnectionError{Host: opts.Host, Err: err}
	}
	e.transition(&summary, StateSessionOpen)

	defer func() {
		e.closeSession(ctx, opts.Host)
		e.transition(&summary, StateSessionClosed)
		if err != nil {
			e.transition(&summary, StateFailed)
		} else {
			e.transition(&summary, StateDone)
		}
	}()

	e.logger.Debug(fmt.Sprintf("logging in '%s' host as '%s' user", opts.Host, opts.User))
	if err := e.session.Login(ctx, opts.User, opts.Password); err != nil {
		return summary, &zerrors.AuthError{
			Host:   opts.Host,
			User:   opts.User,
			Detail: e.session.LastError(),
			Err:    err,
		}
	}

	e.transition(&summary, StateUploading)
	for _, file := range changes.Changed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if !opts.Upload {
			changedOn := time.UnixMilli(file.ModTime).Format(utils.ChangeTimeLayout)
			e.logger.Info(fmt.Sprintf("'%s' file changed on %s", file.RelativePath, changedOn))
			idx.Put(file.RelativePath, file.ModTime)
			summary.Reported = append(summary.Reported, file.RelativePath)
			continue
		}

		created, err := e.upload(ctx, file, opts)
		if created != "" {
			summary.Created = append(summary.Created, created)
		}
		if err != nil {
			return summary, err
		}
		idx.Put(file.RelativePath, file.ModTime)
		summary.Uploaded = append(summary.Uploaded, file.RelativePath)
	}

	e.transition(&summary, StateDeleting)
	for _, path := range changes.Removed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		remoteName := naming.MapPath(path, opts.RemoteRoot)
		container := naming.ContainerOf(remoteName)
		e.logger.Info(fmt.Sprintf("deleting '%s' file from '%s' data set", path, container))
		if err := e.session.Delete(ctx, remoteName); err != nil {
			return summary, &zerrors.DeleteError{
				Path:    path,
				Dataset: remoteName,
				Detail:  e.detail(err),
				Err:     err,
			}
		}
		idx.Remove(path)
		summary.Deleted = append(summary.Deleted, path)
	}

	return summary, nil
}

// upload stores one file, creating its container and retrying once when the
// container does not exist. It returns the container name if it created one.
func (e *Executor) upload(ctx context.Context, file scanner.LocalFile, opts Options) (string, error) {
	remoteName := naming.MapPath(file.RelativePath, opts.RemoteRoot)
	container := naming.ContainerOf(remoteName)

	e.logger.Info(fmt.Sprintf("uploading '%s' file to '%s' data set", file.RelativePath, container))
	err := e.store(ctx, file, remoteName, opts.LocalRoot)
	if err == nil {
		return "", nil
	}
	if !e.containerMissing(err) {
		return "", e.uploadError(file, remoteName, err)
	}

	e.logger.Info("upload has failed because data set does not exist")

	relative := naming.RelativeContainer(container, opts.RemoteRoot)
	if params, ok := opts.Allocation.Lookup(relative); ok {
		e.logger.Info(fmt.Sprintf("creating '%s' data set with parameters '%s'", container, params))
		if err := e.session.SetAllocationParameters(ctx, params); err != nil {
			e.logger.Warn("allocation parameters rejected", logging.F("dataset", container), logging.F("reply", e.detail(err)))
		}
	} else {
		e.logger.Info(fmt.Sprintf("creating '%s' data set", container))
	}

	created := container
	if err := e.session.CreateContainer(ctx, container); err != nil {
		// The retry below decides the file's outcome either way.
		e.logger.Warn("data set creation failed", logging.F("dataset", container), logging.F("reply", e.detail(err)))
		created = ""
	}

	e.logger.Info(fmt.Sprintf("uploading '%s' file to '%s' data set", file.RelativePath, container))
	if err := e.store(ctx, file, remoteName, opts.LocalRoot); err != nil {
		return created, e.uploadError(file, remoteName, err)
	}
	return created, nil
}

// store opens the file afresh on every call so a retry sends the full content.
func (e *Executor) store(ctx context.Context, file scanner.LocalFile, remoteName, localRoot string) error {
	localPath := file.AbsPath
	if localPath == "" {
		localPath = filepath.Join(localRoot, filepath.FromSlash(file.RelativePath))
	}
	f, err := e.fs.Open(localPath)
	if err != nil {
		return &localFileError{err: err}
	}
	defer f.Close()
	return e.session.Store(ctx, remoteName, f)
}

type localFileError struct {
	err error
}

func (e *localFileError) Error() string { return e.err.Error() }
func (e *localFileError) Unwrap() error { return e.err }

// containerMissing prefers the transport's typed result and falls back to the
// z/OS reply text for transports that only expose the raw reply.
func (e *Executor) containerMissing(err error) bool {
	var local *localFileError
	if zerrors.As(err, &local) {
		return false
	}
	if zerrors.Is(err, zerrors.ErrContainerMissing) {
		return true
	}
	return strings.Contains(e.session.LastError(), utils.MissingContainerReply)
}

func (e *Executor) uploadError(file scanner.LocalFile, remoteName string, err error) error {
	var local *localFileError
	detail := ""
	if !zerrors.As(err, &local) {
		detail = e.detail(err)
	}
	return &zerrors.UploadError{
		Path:    file.RelativePath,
		Dataset: remoteName,
		Detail:  detail,
		Err:     err,
	}
}

// detail is the remote reply text for the failed command, verbatim.
func (e *Executor) detail(err error) string {
	if reply := strings.TrimSpace(e.session.LastError()); reply != "" {
		return reply
	}
	return err.Error()
}

func (e *Executor) closeSession(ctx context.Context, host string) {
	if !e.session.IsConnected() {
		return
	}
	e.logger.Debug(fmt.Sprintf("logging out '%s' host", host))
	if err := e.session.Logout(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn("logout failed", logging.F("host", host), logging.F("error", err.Error()))
	}
}

func (e *Executor) transition(summary *Summary, next State) {
	e.logger.Debug("sync state", logging.F("from", string(summary.State)), logging.F("to", string(next)))
	summary.State = next
}
