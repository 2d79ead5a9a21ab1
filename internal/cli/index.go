package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the sync index",
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files recorded by the last run",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexListFile string

func init() {
	indexListCmd.Flags().StringVarP(&indexListFile, "index-file", "x", "", "Index file (.xml, or .db for SQLite)")

	indexCmd.AddCommand(indexListCmd)
	rootCmd.AddCommand(indexCmd)
}

type indexEntry struct {
	Path         string `json:"path"`
	LastModified int64  `json:"lastModified"`
}

type indexListResult struct {
	Location string       `json:"location"`
	Entries  []indexEntry `json:"entries"`
}

func (r indexListResult) AsTableRenderer() types.TableRenderer {
	return &indexTable{entries: r.Entries}
}

type indexTable struct {
	entries []indexEntry
}

func (t *indexTable) Headers() []string {
	return []string{"Path", "Last modified"}
}

func (t *indexTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.entries))
	for _, e := range t.entries {
		rows = append(rows, []string{e.Path, time.UnixMilli(e.LastModified).Format(utils.ChangeTimeLayout)})
	}
	return rows
}

func (t *indexTable) EmptyMessage() string {
	return "Index is empty"
}

func runIndexList(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	path := indexListFile
	if path == "" {
		path = appConfig.IndexFile
	}
	if path == "" {
		path = utils.DefaultIndexFile
	}

	store, err := index.OpenStore(path)
	if err != nil {
		return out.WriteError("index.list", utils.NewCLIError(utils.ErrCodeIndexFailed, err.Error()).
			WithContext("index", path).Build())
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := store.Load(ctx)
	if err != nil {
		return out.WriteError("index.list", utils.NewCLIError(utils.ErrCodeIndexFailed, err.Error()).
			WithContext("index", path).Build())
	}

	result := indexListResult{Location: store.Location(), Entries: []indexEntry{}}
	for _, e := range idx.Entries() {
		result.Entries = append(result.Entries, indexEntry{Path: e.Path, LastModified: e.LastModified})
	}
	return out.WriteSuccess("index.list", result)
}
