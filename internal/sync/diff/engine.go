package diff

import (
	"github.com/dl-alexandre/zsync/internal/sync/exclude"
	"github.com/dl-alexandre/zsync/internal/sync/index"
	"github.com/dl-alexandre/zsync/internal/sync/scanner"
)

// Compute classifies the local snapshot against the index.
//
// A file is changed when it is not excluded and either has no index entry or
// a modification time strictly greater than the indexed one; equal times are
// unchanged. An indexed path is removed when exists reports it gone.
func Compute(files []scanner.LocalFile, idx *index.Index, matcher *exclude.Matcher, exists func(relPath string) bool, opts Options) ChangeSet {
	var result ChangeSet

	for _, file := range files {
		if matcher.IsExcluded(file.RelativePath) {
			continue
		}
		entry, ok := idx.Get(file.RelativePath)
		if !ok || file.ModTime > entry.LastModified {
			result.Changed = append(result.Changed, file)
		}
	}

	for _, path := range idx.Paths() {
		if opts.Removal != RemovalIncludeExcluded && matcher.IsExcluded(path) {
			continue
		}
		if !exists(path) {
			result.Removed = append(result.Removed, path)
		}
	}

	return result
}

// SnapshotExists builds an exists func backed by the scanned files, for
// callers that do not want to stat the filesystem again.
func SnapshotExists(files []scanner.LocalFile) func(string) bool {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.RelativePath] = struct{}{}
	}
	return func(p string) bool {
		_, ok := seen[p]
		return ok
	}
}
