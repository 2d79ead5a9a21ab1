// Package alloc loads the data set allocation parameters applied when a
// partitioned data set has to be created on demand.
//
// The file holds one entry per line: the container path relative to the
// remote root, a blank, then the parameter string passed verbatim to SITE.
//
//	SRC LRECL=80 RECFM=FB BLKSIZE=27920 DIRECTORY=50
//	SRC.COPY LRECL=80 RECFM=FB
package alloc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	zerrors "github.com/dl-alexandre/zsync/internal/errors"
)

// Table maps an upper-cased relative container path to its parameters.
type Table map[string]string

// Lookup returns the parameters for a relative container path.
func (t Table) Lookup(relativeContainer string) (string, bool) {
	if t == nil || relativeContainer == "" {
		return "", false
	}
	params, ok := t[strings.ToUpper(relativeContainer)]
	return params, ok
}

// Load reads a table from a file.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &zerrors.ConfigError{File: path, Reason: "cannot open allocation file", Err: err}
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a table. Blank lines and lines starting with '#' are skipped;
// any other line without a blank separator is a ConfigError.
func Parse(r io.Reader, name string) (Table, error) {
	table := Table{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		blank := strings.Index(trimmed, " ")
		if blank == -1 {
			return nil, &zerrors.ConfigError{
				File:   name,
				Line:   lineNo,
				Reason: fmt.Sprintf("missing blank between data set name and parameters in %q", trimmed),
			}
		}

		key := strings.ToUpper(trimmed[:blank])
		params := strings.TrimSpace(trimmed[blank+1:])
		table[key] = params
	}
	if err := scanner.Err(); err != nil {
		return nil, &zerrors.ConfigError{File: name, Reason: "read failed", Err: err}
	}
	return table, nil
}
