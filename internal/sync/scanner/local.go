package scanner

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// ScanLocal returns every regular file under root in traversal (lexical)
// order. Directories, symlinks and other special files are skipped.
func ScanLocal(ctx context.Context, fs afero.Fs, root string) ([]LocalFile, error) {
	var files []LocalFile

	err := afero.Walk(fs, root, func(current string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, current)
		if err != nil {
			return err
		}
		rel = path.Clean(filepath.ToSlash(rel))

		files = append(files, LocalFile{
			RelativePath: rel,
			AbsPath:      current,
			Size:         info.Size(),
			ModTime:      info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Exists reports whether relPath (slash form) still exists under root.
func Exists(fs afero.Fs, root, relPath string) bool {
	_, err := fs.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	return err == nil
}
