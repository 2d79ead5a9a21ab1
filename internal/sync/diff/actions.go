package diff

import "github.com/dl-alexandre/zsync/internal/sync/scanner"

// RemovalPolicy decides whether exclusion rules also hide indexed paths from
// removal detection.
type RemovalPolicy string

const (
	// RemovalSkipExcluded treats excluded paths as invisible: an indexed path
	// that is now excluded is neither uploaded nor deleted.
	RemovalSkipExcluded RemovalPolicy = "skip-excluded"
	// RemovalIncludeExcluded applies exclusion to uploads only; an excluded
	// indexed path whose file is gone is still deleted remotely.
	RemovalIncludeExcluded RemovalPolicy = "include-excluded"
)

// Options tunes Compute.
type Options struct {
	Removal RemovalPolicy
}

// ChangeSet is the result of one run's diff.
type ChangeSet struct {
	// Changed is in traversal order.
	Changed []scanner.LocalFile `json:"changed"`
	// Removed is sorted by path.
	Removed []string `json:"removed"`
}

// Empty reports whether there is nothing to upload and nothing to delete.
func (c ChangeSet) Empty() bool {
	return len(c.Changed) == 0 && len(c.Removed) == 0
}
