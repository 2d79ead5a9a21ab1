package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dl-alexandre/zsync/internal/config"
	syncengine "github.com/dl-alexandre/zsync/internal/sync"
	"github.com/dl-alexandre/zsync/internal/sync/diff"
	"github.com/dl-alexandre/zsync/internal/sync/executor"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/sync/scanner"
	"github.com/dl-alexandre/zsync/internal/types"
)

func resetSyncState(t *testing.T) {
	t.Helper()
	prevConfig := appConfig
	t.Cleanup(func() {
		syncOpts = syncOptions{}
		appConfig = prevConfig
	})
	syncOpts = syncOptions{}
	appConfig = config.DefaultConfig()
}

func TestBuildSyncConfig_FlagsOverrideConfig(t *testing.T) {
	resetSyncState(t)
	appConfig.Hostname = "mvs1"
	appConfig.Username = "ibmuser"
	appConfig.RemoteRoot = "user.cfg"
	appConfig.Excludes = []string{"build"}

	syncOpts.localRoot = "/src"
	syncOpts.remoteRoot = "'user.root'"
	syncOpts.excludes = []string{"tmp"}
	syncOpts.upload = true

	cfg, err := buildSyncConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Host != "mvs1" || cfg.User != "ibmuser" {
		t.Errorf("host/user = %s/%s", cfg.Host, cfg.User)
	}
	if cfg.RemoteRoot != "USER.ROOT" {
		t.Errorf("RemoteRoot = %s, want USER.ROOT", cfg.RemoteRoot)
	}
	if strings.Join(cfg.Excludes, ",") != "build,tmp" {
		t.Errorf("Excludes = %v", cfg.Excludes)
	}
	if cfg.Removal != diff.RemovalSkipExcluded {
		t.Errorf("Removal = %s", cfg.Removal)
	}
	if !cfg.Upload {
		t.Error("Upload should follow the flag")
	}
	if len(appConfig.Excludes) != 1 {
		t.Error("config excludes must not be modified")
	}
}

func TestBuildSyncConfig_LoadsAllocationFile(t *testing.T) {
	resetSyncState(t)
	path := filepath.Join(t.TempDir(), "alloc.txt")
	if err := os.WriteFile(path, []byte("SRC LRECL=80 RECFM=FB\n"), 0600); err != nil {
		t.Fatalf("failed to write allocation file: %v", err)
	}
	syncOpts.datasetsOptions = path
	syncOpts.includeExcluded = true

	cfg, err := buildSyncConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params, ok := cfg.Allocation.Lookup("src"); !ok || params != "LRECL=80 RECFM=FB" {
		t.Errorf("Lookup(src) = %q, %v", params, ok)
	}
	if cfg.Removal != diff.RemovalIncludeExcluded {
		t.Errorf("Removal = %s", cfg.Removal)
	}
}

func TestBuildSyncConfig_BadAllocationFile(t *testing.T) {
	resetSyncState(t)
	path := filepath.Join(t.TempDir(), "alloc.txt")
	if err := os.WriteFile(path, []byte("NOPARAMS\n"), 0600); err != nil {
		t.Fatalf("failed to write allocation file: %v", err)
	}
	syncOpts.datasetsOptions = path

	if _, err := buildSyncConfig(); err == nil {
		t.Fatal("expected error for a line without parameters")
	}
}

func TestStatusResult_ClassifiesChanges(t *testing.T) {
	idx := index.New()
	idx.Put("src/old.cbl", 1)
	idx.Put("gone.txt", 1)

	plan := syncengine.Plan{
		Index: idx,
		Changes: diff.ChangeSet{
			Changed: []scanner.LocalFile{
				{RelativePath: "src/old.cbl", ModTime: 2},
				{RelativePath: "src/new.cbl", ModTime: 2},
			},
			Removed: []string{"gone.txt"},
		},
	}
	cfg := syncengine.Config{RemoteRoot: "USER.ROOT", LocalRoot: "/src", IndexFile: "zsync.xml"}

	result := newStatusResult(cfg, plan)
	if result.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", result.Indexed)
	}

	rows := result.AsTableRenderer().Rows()
	want := [][]string{
		{"upload", "src/old.cbl", "USER.ROOT.SRC(OLD)"},
		{"add", "src/new.cbl", "USER.ROOT.SRC(NEW)"},
		{"delete", "gone.txt", "USER.ROOT(GONE)"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i][0] != w[0] || rows[i][1] != w[1] || rows[i][2] != w[2] {
			t.Errorf("row %d = %v, want prefix %v", i, rows[i], w)
		}
	}
	if rows[2][3] != "-" {
		t.Errorf("deletions have no change time, got %q", rows[2][3])
	}
}

func TestOutputWriter_SyncSummaryTable(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputWriter(types.OutputFormatTable, false, false)
	out.stdout = &stdout

	result := syncResult{
		RemoteRoot: "USER.ROOT",
		Summary: executor.Summary{
			State:    executor.StateDone,
			Created:  []string{"USER.ROOT.SRC"},
			Uploaded: []string{"src/prog1.cbl"},
			Deleted:  []string{"old.txt"},
		},
	}
	if err := out.WriteSuccess("sync", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := stdout.String()
	for _, want := range []string{"USER.ROOT.SRC(PROG1)", "USER.ROOT(OLD)", "created"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}
}

func TestOutputWriter_EmptySummary(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputWriter(types.OutputFormatTable, false, false)
	out.stdout = &stdout

	if err := out.WriteSuccess("sync", syncResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "No files have been added, changed or removed") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestOutputWriter_ErrorEnvelope(t *testing.T) {
	t.Cleanup(func() { errorReported = false })

	var stdout bytes.Buffer
	out := NewOutputWriter(types.OutputFormatJSON, false, false)
	out.stdout = &stdout

	cliErr := types.CLIError{Code: "UPLOAD_FAILED", Message: "451 Transfer aborted", ReplyCode: 451}
	err := out.WriteError("sync", cliErr)
	if err == nil {
		t.Fatal("WriteError must return an error so the exit code reflects the failure")
	}
	if !errorReported {
		t.Error("errorReported should be set")
	}

	var envelope types.CLIOutput
	if err := json.Unmarshal(stdout.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(envelope.Errors) != 1 || envelope.Errors[0].ReplyCode != 451 {
		t.Errorf("errors = %+v", envelope.Errors)
	}
	if envelope.Command != "sync" {
		t.Errorf("command = %s", envelope.Command)
	}
}
