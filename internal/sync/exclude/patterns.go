package exclude

import (
	"path"
	"strings"
)

// Matcher applies exclusion rules. A rule is a plain path prefix: a file is
// excluded when its relative path starts with any configured prefix. No glob
// expansion and no segment boundary, so "build" also excludes "buildtools/x".
type Matcher struct {
	prefixes []string
}

// New normalizes the prefixes to slash form and drops blanks.
func New(prefixes []string) *Matcher {
	m := &Matcher{}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, "\\", "/")
		p = strings.TrimPrefix(p, "./")
		m.prefixes = append(m.prefixes, p)
	}
	return m
}

// IsExcluded reports whether relPath falls under any exclusion prefix.
func (m *Matcher) IsExcluded(relPath string) bool {
	if m == nil {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "./")
	if relPath != "" {
		relPath = path.Clean(relPath)
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(relPath, p) {
			return true
		}
	}
	return false
}

// Prefixes returns the normalized prefixes.
func (m *Matcher) Prefixes() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.prefixes...)
}
