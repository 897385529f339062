package syncer

import (
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
)

// ErrBadFilter is returned for filter combinations the planner rejects.
var ErrBadFilter = errors.New("invalid sync filter")

// Filters narrows the remote work set. Zero values mean "no restriction";
// Proportion zero means the whole artist list.
type Filters struct {
	// Components lists component names to pull; empty means all remote
	// components.
	Components []string

	// Artists and Albums hold glob expressions over artist and album names.
	Artists []string
	Albums  []string

	// MissingComponent restricts to tracks whose local view lacks the named
	// component.
	MissingComponent string

	// Proportion in (0,1] with Offset in [0,1) takes a deterministic slice of
	// the sorted artist list.
	Proportion float64
	Offset     float64
}

// Validate rejects out-of-range slicing parameters.
func (f Filters) Validate() error {
	if f.Proportion != 0 && (f.Proportion <= 0 || f.Proportion > 1) {
		return fmt.Errorf("%w: proportion %v outside (0,1]", ErrBadFilter, f.Proportion)
	}
	if f.Offset < 0 || f.Offset >= 1 {
		return fmt.Errorf("%w: offset %v outside [0,1)", ErrBadFilter, f.Offset)
	}
	if f.Proportion == 0 && f.Offset != 0 {
		return fmt.Errorf("%w: offset without proportion", ErrBadFilter)
	}
	return nil
}

// sliceArtists applies the proportion/offset slice over the lexicographically
// sorted artist list.
func (f Filters) sliceArtists(artists []string) []string {
	sorted := append([]string{}, artists...)
	sort.Strings(sorted)
	if f.Proportion == 0 || len(sorted) == 0 {
		return sorted
	}
	n := len(sorted)
	start := int(math.Floor(f.Offset * float64(n)))
	count := int(math.Round(f.Proportion * float64(n)))
	if count < 1 {
		count = 1
	}
	if start >= n {
		return nil
	}
	if start+count > n {
		count = n - start
	}
	return sorted[start : start+count]
}

// matchAnyGlob reports whether name matches any expression; an empty list
// matches everything.
func matchAnyGlob(globs []string, name string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, err := path.Match(g, name); err == nil && ok {
			return true
		}
	}
	return false
}
