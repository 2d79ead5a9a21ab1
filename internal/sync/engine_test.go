package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-alexandre/zsync/internal/sync/diff"
	"github.com/dl-alexandre/zsync/internal/sync/executor"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	testutil "github.com/dl-alexandre/zsync/internal/testing"
	"github.com/dl-alexandre/zsync/internal/testing/mocks"
	"github.com/dl-alexandre/zsync/internal/utils"
)

// newSession accepts stores into any data set.
func newSession() *mocks.MockSession {
	session := mocks.NewMockSession()
	session.AutoCreate = true
	return session
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Host:       "mvs1",
		User:       "ibmuser",
		Password:   "secret",
		LocalRoot:  "/src",
		RemoteRoot: "USER.ROOT",
		Upload:     true,
	}
}

func TestEngineUploadsThenIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/a/x.txt", "x", baseTime)
	testutil.WriteFile(t, fs, "/src/onlyfile.dat", "only", baseTime)
	store := mocks.NewMockStore(nil)
	session := newSession()
	engine := NewEngine(store, session, fs, nil)

	result, err := engine.Run(context.Background(), testConfig())
	require.NoError(t, err)
	assert.True(t, result.IndexSaved)
	assert.Equal(t, executor.StateDone, result.Summary.State)
	assert.ElementsMatch(t, []string{"USER.ROOT.A(X)", "USER.ROOT(ONLYFILE)"}, session.Stores())
	assert.Equal(t, 2, store.Saved.Len())

	entry, ok := store.Saved.Get("a/x.txt")
	require.True(t, ok)
	assert.Equal(t, baseTime.UnixMilli(), entry.LastModified)

	session.Reset()
	result, err = engine.Run(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, executor.StateNoChanges, result.Summary.State)
	assert.False(t, result.IndexSaved)
	assert.Empty(t, session.Calls)
	assert.Equal(t, 1, store.Saves)
}

func TestEngineUploadsOnlyNewerFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/same.txt", "s", baseTime)
	testutil.WriteFile(t, fs, "/src/newer.txt", "n", baseTime.Add(time.Second))
	testutil.WriteFile(t, fs, "/src/older.txt", "o", baseTime.Add(-time.Second))

	idx := index.New()
	idx.Put("same.txt", baseTime.UnixMilli())
	idx.Put("newer.txt", baseTime.UnixMilli())
	idx.Put("older.txt", baseTime.UnixMilli())
	store := mocks.NewMockStore(idx)
	session := newSession()

	result, err := NewEngine(store, session, fs, nil).Run(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"USER.ROOT(NEWER)"}, session.Stores())
	assert.Equal(t, []string{"newer.txt"}, result.Summary.Uploaded)
}

func TestEngineDeletesRemovedFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/keep.txt", "k", baseTime)
	idx := index.New()
	idx.Put("keep.txt", baseTime.UnixMilli())
	idx.Put("dir/gone.txt", baseTime.UnixMilli())
	store := mocks.NewMockStore(idx)
	session := newSession()

	result, err := NewEngine(store, session, fs, nil).Run(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/gone.txt"}, result.Summary.Deleted)
	assert.Contains(t, session.Calls, "dele USER.ROOT.DIR(GONE)")
	_, ok := store.Saved.Get("dir/gone.txt")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Saved.Len())
}

func TestEngineRemovalPolicyForExcludedPaths(t *testing.T) {
	tests := []struct {
		name        string
		policy      diff.RemovalPolicy
		wantDeleted []string
	}{
		{name: "excluded paths are invisible", policy: diff.RemovalSkipExcluded},
		{name: "excluded paths are still removed", policy: diff.RemovalIncludeExcluded, wantDeleted: []string{"tmp/old.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll("/src", 0755))
			idx := index.New()
			idx.Put("tmp/old.txt", baseTime.UnixMilli())
			session := newSession()

			cfg := testConfig()
			cfg.Excludes = []string{"tmp"}
			cfg.Removal = tt.policy

			result, err := NewEngine(mocks.NewMockStore(idx), session, fs, nil).Run(context.Background(), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, result.Summary.Deleted)
		})
	}
}

func TestEngineKeepIndexLeavesStoreUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/a.txt", "a", baseTime)
	store := mocks.NewMockStore(nil)

	cfg := testConfig()
	cfg.KeepIndex = true
	result, err := NewEngine(store, newSession(), fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, result.IndexSaved)
	assert.Equal(t, 0, store.Saves)
	// The in-memory index still reflects the run.
	assert.Equal(t, 1, result.Plan.Index.Len())
}

func TestEngineReportOnlyStillRecordsIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/a.txt", "a", baseTime)
	store := mocks.NewMockStore(nil)
	session := newSession()

	cfg := testConfig()
	cfg.Upload = false
	result, err := NewEngine(store, session, fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, session.Stores())
	assert.Equal(t, []string{"a.txt"}, result.Summary.Reported)
	assert.Equal(t, 1, store.Saves)
	assert.Equal(t, []string{"connect mvs1", "login ibmuser", "quit"}, session.Calls)
}

func TestEnginePersistsPartialProgressOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/a.txt", "a", baseTime)
	testutil.WriteFile(t, fs, "/src/b.txt", "b", baseTime)
	store := mocks.NewMockStore(nil)
	session := newSession()
	session.StoreErr["USER.ROOT(B)"] = errors.New("550 store rejected")

	result, err := NewEngine(store, session, fs, nil).Run(context.Background(), testConfig())
	require.Error(t, err)
	assert.Equal(t, executor.StateFailed, result.Summary.State)
	assert.True(t, result.IndexSaved)
	assert.Equal(t, []string{"a.txt"}, store.Saved.Paths())
}

func TestEngineRequiresPasswordWhenWorkIsPending(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/src/a.txt", "a", baseTime)
	session := newSession()

	cfg := testConfig()
	cfg.Password = ""
	_, err := NewEngine(mocks.NewMockStore(nil), session, fs, nil).Run(context.Background(), cfg)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrCodeAuthRequired, appErr.CLIError.Code)
	assert.Empty(t, session.Calls)
}

func TestEnsureConfig(t *testing.T) {
	cfg := &Config{LocalRoot: "/src", RemoteRoot: "USER.ROOT"}
	require.NoError(t, EnsureConfig(cfg))
	assert.Equal(t, utils.DefaultHostname, cfg.Host)
	assert.Equal(t, utils.DefaultIndexFile, cfg.IndexFile)
	assert.Equal(t, diff.RemovalSkipExcluded, cfg.Removal)

	assert.Error(t, EnsureConfig(nil))
	assert.Error(t, EnsureConfig(&Config{LocalRoot: "/src"}))
	assert.Error(t, EnsureConfig(&Config{LocalRoot: "/src", RemoteRoot: "USER.ROOT", Upload: true}))
}
