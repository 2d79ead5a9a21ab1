package sync

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dl-alexandre/zsync/internal/logging"
	"github.com/dl-alexandre/zsync/internal/sync/alloc"
	"github.com/dl-alexandre/zsync/internal/sync/diff"
	"github.com/dl-alexandre/zsync/internal/sync/exclude"
	"github.com/dl-alexandre/zsync/internal/sync/executor"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/sync/scanner"
	"github.com/dl-alexandre/zsync/internal/utils"
)

type Engine struct {
	store   index.Store
	session executor.Session
	fs      afero.Fs
	logger  logging.Logger
}

// Config describes one synchronization run.
type Config struct {
	Host       string
	User       string
	Password   string
	LocalRoot  string
	RemoteRoot string
	Excludes   []string
	// Allocation maps relative container names to SITE parameters.
	Allocation alloc.Table
	IndexFile  string
	Upload     bool
	// KeepIndex leaves the stored index untouched after the run.
	KeepIndex bool
	Removal   diff.RemovalPolicy
}

type Plan struct {
	Index   *index.Index
	Files   []scanner.LocalFile
	Changes diff.ChangeSet
}

type Result struct {
	Plan       Plan
	Summary    executor.Summary
	IndexSaved bool
}

func NewEngine(store index.Store, session executor.Session, fs afero.Fs, logger logging.Logger) *Engine {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		store:   store,
		session: session,
		fs:      fs,
		logger:  logger,
	}
}

func (e *Engine) Close() error {
	if e == nil || e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Plan loads the index, scans the local tree and computes what changed.
// It has no remote side effects.
func (e *Engine) Plan(ctx context.Context, cfg Config) (Plan, error) {
	e.logger.Debug(fmt.Sprintf("loading index from '%s' file", e.store.Location()))
	idx, err := e.store.Load(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to load index %s: %w", e.store.Location(), err)
	}

	localRoot := cfg.LocalRoot
	if !filepath.IsAbs(localRoot) {
		localRoot, err = filepath.Abs(localRoot)
		if err != nil {
			return Plan{}, err
		}
	}

	e.logger.Debug(fmt.Sprintf("processing '%s' directory files", localRoot))
	files, err := scanner.ScanLocal(ctx, e.fs, localRoot)
	if err != nil {
		return Plan{}, err
	}
	e.logger.Debug("scanned local tree", logging.F("root", localRoot), logging.F("files", len(files)), logging.F("indexed", idx.Len()))

	matcher := exclude.New(cfg.Excludes)
	exists := func(relPath string) bool {
		return scanner.Exists(e.fs, localRoot, relPath)
	}
	changes := diff.Compute(files, idx, matcher, exists, diff.Options{Removal: cfg.Removal})

	return Plan{
		Index:   idx,
		Files:   files,
		Changes: changes,
	}, nil
}

// Apply replays the plan against the remote session and persists the index.
// The index is written after a failed run too, so completed operations are
// not repeated next time.
func (e *Engine) Apply(ctx context.Context, cfg Config, plan Plan) (Result, error) {
	result := Result{Plan: plan}

	if !plan.Changes.Empty() && cfg.Password == "" {
		return result, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
			fmt.Sprintf("no password for '%s' on '%s'", cfg.User, cfg.Host)).
			WithContext("suggestedAction", "run 'zsync auth login' or pass --password").
			Build())
	}

	exec := executor.New(e.session, e.fs, e.logger)
	summary, runErr := exec.Apply(ctx, plan.Changes, plan.Index, executor.Options{
		Host:       cfg.Host,
		User:       cfg.User,
		Password:   cfg.Password,
		LocalRoot:  cfg.LocalRoot,
		RemoteRoot: cfg.RemoteRoot,
		Upload:     cfg.Upload,
		Allocation: cfg.Allocation,
	})
	result.Summary = summary

	if plan.Changes.Empty() || cfg.KeepIndex {
		return result, runErr
	}

	e.logger.Debug(fmt.Sprintf("saving index to '%s' file", e.store.Location()))
	if err := e.store.Save(context.WithoutCancel(ctx), plan.Index); err != nil {
		e.logger.Error("failed to save index", logging.F("index", e.store.Location()), logging.F("error", err.Error()))
		saveErr := utils.NewAppError(utils.NewCLIError(utils.ErrCodeIndexFailed, err.Error()).
			WithContext("index", e.store.Location()).
			Build())
		if runErr != nil {
			return result, errors.Join(runErr, saveErr)
		}
		return result, saveErr
	}
	result.IndexSaved = true

	return result, runErr
}

// Run plans and applies in one step.
func (e *Engine) Run(ctx context.Context, cfg Config) (Result, error) {
	plan, err := e.Plan(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	return e.Apply(ctx, cfg, plan)
}

// EnsureConfig validates required fields and fills defaults.
func EnsureConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.LocalRoot == "" || cfg.RemoteRoot == "" {
		return errors.New("config missing required fields: local root and remote root")
	}
	if cfg.Host == "" {
		cfg.Host = utils.DefaultHostname
	}
	if cfg.User == "" {
		if u, err := user.Current(); err == nil {
			cfg.User = u.Username
		}
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = utils.DefaultIndexFile
	}
	if cfg.Removal == "" {
		cfg.Removal = diff.RemovalSkipExcluded
	}
	if cfg.Upload && cfg.Password == "" {
		return errors.New("config missing required fields: password is needed to upload")
	}
	return nil
}
