package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/zsync/internal/auth"
	"github.com/dl-alexandre/zsync/internal/config"
	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/ftp"
	"github.com/dl-alexandre/zsync/internal/logging"
	syncengine "github.com/dl-alexandre/zsync/internal/sync"
	"github.com/dl-alexandre/zsync/internal/sync/alloc"
	"github.com/dl-alexandre/zsync/internal/sync/diff"
	"github.com/dl-alexandre/zsync/internal/sync/executor"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/sync/naming"
	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload changed files and delete removed ones",
	Long: `Compare the local tree with the index from the previous run and replay the
differences on the z/OS host. Without --upload changed files are only reported;
deletions of removed files are always carried out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, "sync", false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes without contacting the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, "status", true)
	},
}

type syncOptions struct {
	hostname        string
	username        string
	password        string
	localRoot       string
	remoteRoot      string
	excludes        []string
	datasetsOptions string
	indexFile       string
	keepIndex       bool
	upload          bool
	includeExcluded bool
	binary          bool
}

var syncOpts syncOptions

func addTreeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&syncOpts.localRoot, "local-root", "l", "", "Local directory to synchronize (required)")
	cmd.Flags().StringVarP(&syncOpts.remoteRoot, "remote-root", "r", "", "High-level qualifier of the target data sets")
	cmd.Flags().StringArrayVarP(&syncOpts.excludes, "exclude-path", "e", nil, "Relative path prefix to skip (repeatable)")
	cmd.Flags().StringVarP(&syncOpts.indexFile, "index-file", "x", "", "Index file (.xml, or .db for SQLite)")
	cmd.Flags().BoolVar(&syncOpts.includeExcluded, "include-excluded-removals", false, "Delete members of excluded files that were removed locally")
}

func init() {
	addTreeFlags(syncCmd)
	syncCmd.Flags().StringVarP(&syncOpts.hostname, "hostname", "s", "", "z/OS FTP host, optionally host:port (default localhost)")
	syncCmd.Flags().StringVarP(&syncOpts.username, "username", "u", "", "TSO user (default current OS user)")
	syncCmd.Flags().StringVarP(&syncOpts.password, "password", "p", "", "Password (default stored credentials)")
	syncCmd.Flags().StringVarP(&syncOpts.datasetsOptions, "datasets-options", "d", "", "File of allocation parameters per data set")
	syncCmd.Flags().BoolVarP(&syncOpts.keepIndex, "keep-index", "i", false, "Leave the index file untouched")
	syncCmd.Flags().BoolVarP(&syncOpts.upload, "upload", "o", false, "Upload changed files instead of only reporting them")
	syncCmd.Flags().BoolVar(&syncOpts.binary, "binary", false, "Transfer files without EBCDIC conversion")

	addTreeFlags(statusCmd)

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

func runSync(cmd *cobra.Command, command string, planOnly bool) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := buildSyncConfig()
	if err != nil {
		return out.WriteError(command, zerrors.Classify(err))
	}

	if !planOnly && cfg.Upload && cfg.Password == "" {
		cfg.Password = resolvePassword(out, cfg.User, cfg.Host)
	}

	if err := syncengine.EnsureConfig(&cfg); err != nil {
		code := utils.ErrCodeInvalidArgument
		if cfg.LocalRoot != "" && cfg.RemoteRoot != "" {
			code = utils.ErrCodeAuthRequired
		}
		return out.WriteError(command, utils.NewCLIError(code, err.Error()).Build())
	}

	if info, err := os.Stat(cfg.LocalRoot); err != nil || !info.IsDir() {
		return out.WriteError(command, utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("local root '%s' is not a directory", cfg.LocalRoot)).Build())
	}

	store, err := index.OpenStore(cfg.IndexFile)
	if err != nil {
		return out.WriteError(command, utils.NewCLIError(utils.ErrCodeIndexFailed, err.Error()).
			WithContext("index", cfg.IndexFile).Build())
	}

	transferMode := appConfig.TransferMode
	if syncOpts.binary {
		transferMode = utils.TransferModeBinary
	}
	client := ftp.NewClient(ftp.Options{
		TransferMode:   transferMode,
		CommandTimeout: appConfig.GetTimeout(),
		Logger:         logger,
		Trace:          flags.Debug,
	})

	engine := syncengine.NewEngine(store, client, afero.NewOsFs(), logger)
	defer engine.Close()

	plan, err := engine.Plan(ctx, cfg)
	if err != nil {
		return out.WriteError(command, utils.NewCLIError(utils.ErrCodeIndexFailed, err.Error()).Build())
	}

	if planOnly {
		return out.WriteSuccess(command, newStatusResult(cfg, plan))
	}

	if !plan.Changes.Empty() && cfg.Password == "" {
		cfg.Password = resolvePassword(out, cfg.User, cfg.Host)
	}

	result, err := engine.Apply(ctx, cfg, plan)
	if err != nil {
		logger.Error(err.Error())
		return out.WriteError(command, zerrors.Classify(err))
	}

	return out.WriteSuccess(command, newSyncResult(cfg, result))
}

// buildSyncConfig layers command-line flags over the configuration file.
func buildSyncConfig() (syncengine.Config, error) {
	cfg := syncengine.Config{
		Host:       appConfig.Hostname,
		User:       appConfig.Username,
		LocalRoot:  syncOpts.localRoot,
		RemoteRoot: appConfig.RemoteRoot,
		Excludes:   append([]string(nil), appConfig.Excludes...),
		IndexFile:  appConfig.IndexFile,
		Upload:     syncOpts.upload,
		KeepIndex:  syncOpts.keepIndex,
		Removal:    diff.RemovalSkipExcluded,
	}

	if syncOpts.hostname != "" {
		cfg.Host = syncOpts.hostname
	}
	if syncOpts.username != "" {
		cfg.User = syncOpts.username
	}
	if cfg.User == "" {
		if u, err := user.Current(); err == nil {
			cfg.User = u.Username
		}
	}
	if syncOpts.remoteRoot != "" {
		cfg.RemoteRoot = syncOpts.remoteRoot
	}
	cfg.RemoteRoot = strings.ToUpper(strings.Trim(cfg.RemoteRoot, "'"))
	if syncOpts.indexFile != "" {
		cfg.IndexFile = syncOpts.indexFile
	}
	cfg.Excludes = append(cfg.Excludes, syncOpts.excludes...)
	if syncOpts.includeExcluded || appConfig.IncludeExcludedRemovals {
		cfg.Removal = diff.RemovalIncludeExcluded
	}
	cfg.Password = syncOpts.password
	if cfg.Password == "" {
		cfg.Password = os.Getenv(config.EnvPrefix + "PASSWORD")
	}

	optionsFile := appConfig.DatasetsOptions
	if syncOpts.datasetsOptions != "" {
		optionsFile = syncOpts.datasetsOptions
	}
	if optionsFile != "" {
		table, err := alloc.Load(optionsFile)
		if err != nil {
			return cfg, err
		}
		cfg.Allocation = table
	}

	return cfg, nil
}

// resolvePassword looks in the credential store, then asks on a terminal.
// An empty result lets the engine report the missing password.
func resolvePassword(out *OutputWriter, user, host string) string {
	mgr := auth.NewManager(getConfigDir())
	password, err := mgr.LoadPassword(user, host)
	if err == nil {
		return password
	}
	if !errors.Is(err, auth.ErrNoPassword) {
		logger.Warn("cannot read stored password", logging.F("profile", auth.Profile(user, host)), logging.F("error", err.Error()))
	}
	if !auth.IsInteractive() {
		return ""
	}
	password, err = auth.PromptPassword(user, host)
	if err != nil {
		out.Log("Password prompt failed: %v", err)
		return ""
	}
	return password
}

type pendingChange struct {
	Action  string `json:"action"`
	Path    string `json:"path"`
	Dataset string `json:"dataset"`
	Changed string `json:"changed,omitempty"`
}

type statusResult struct {
	LocalRoot  string          `json:"localRoot"`
	RemoteRoot string          `json:"remoteRoot"`
	IndexFile  string          `json:"indexFile"`
	Indexed    int             `json:"indexed"`
	Changes    []pendingChange `json:"changes"`
}

func newStatusResult(cfg syncengine.Config, plan syncengine.Plan) statusResult {
	result := statusResult{
		LocalRoot:  cfg.LocalRoot,
		RemoteRoot: cfg.RemoteRoot,
		IndexFile:  cfg.IndexFile,
		Indexed:    plan.Index.Len(),
		Changes:    []pendingChange{},
	}
	for _, f := range plan.Changes.Changed {
		action := "upload"
		if _, ok := plan.Index.Get(f.RelativePath); !ok {
			action = "add"
		}
		result.Changes = append(result.Changes, pendingChange{
			Action:  action,
			Path:    f.RelativePath,
			Dataset: naming.MapPath(f.RelativePath, cfg.RemoteRoot),
			Changed: time.UnixMilli(f.ModTime).Format(utils.ChangeTimeLayout),
		})
	}
	for _, p := range plan.Changes.Removed {
		result.Changes = append(result.Changes, pendingChange{
			Action:  "delete",
			Path:    p,
			Dataset: naming.MapPath(p, cfg.RemoteRoot),
		})
	}
	return result
}

func (r statusResult) AsTableRenderer() types.TableRenderer {
	return &pendingTable{changes: r.Changes}
}

type pendingTable struct {
	changes []pendingChange
}

func (t *pendingTable) Headers() []string {
	return []string{"Action", "Path", "Data set", "Changed"}
}

func (t *pendingTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.changes))
	for _, c := range t.changes {
		changed := c.Changed
		if changed == "" {
			changed = "-"
		}
		rows = append(rows, []string{c.Action, c.Path, c.Dataset, changed})
	}
	return rows
}

func (t *pendingTable) EmptyMessage() string {
	return "No files have been added, changed or removed"
}

type syncResult struct {
	Host       string           `json:"host"`
	RemoteRoot string           `json:"remoteRoot"`
	Summary    executor.Summary `json:"summary"`
	IndexFile  string           `json:"indexFile"`
	IndexSaved bool             `json:"indexSaved"`
}

func newSyncResult(cfg syncengine.Config, result syncengine.Result) syncResult {
	return syncResult{
		Host:       cfg.Host,
		RemoteRoot: cfg.RemoteRoot,
		Summary:    result.Summary,
		IndexFile:  cfg.IndexFile,
		IndexSaved: result.IndexSaved,
	}
}

func (r syncResult) AsTableRenderer() types.TableRenderer {
	return &summaryTable{summary: r.Summary, remoteRoot: r.RemoteRoot}
}

type summaryTable struct {
	summary    executor.Summary
	remoteRoot string
}

func (t *summaryTable) Headers() []string {
	return []string{"Result", "Path", "Data set"}
}

func (t *summaryTable) Rows() [][]string {
	var rows [][]string
	for _, c := range t.summary.Created {
		rows = append(rows, []string{"created", "-", c})
	}
	for _, p := range t.summary.Uploaded {
		rows = append(rows, []string{"uploaded", p, naming.MapPath(p, t.remoteRoot)})
	}
	for _, p := range t.summary.Reported {
		rows = append(rows, []string{"changed", p, naming.MapPath(p, t.remoteRoot)})
	}
	for _, p := range t.summary.Deleted {
		rows = append(rows, []string{"deleted", p, naming.MapPath(p, t.remoteRoot)})
	}
	return rows
}

func (t *summaryTable) EmptyMessage() string {
	return "No files have been added, changed or removed"
}
