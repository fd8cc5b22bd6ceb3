// Package fs defines the data model shared by the walker, aggregator, cache
// and wire layers: the Item record and the ScanResult it is assembled into.
package fs

import "time"

// Item is the unit the walker produces and the aggregator finalizes.
//
// Path is root-relative, forward-slash separated, with no leading slash;
// the root itself is never emitted as an Item (it is represented by the
// empty string inside dir-size maps, not as a list entry).
type Item struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	SizeFormatted string `json:"size_formatted"`
	IsDir         bool   `json:"is_dir"`
}

// Timing splits one scan's wall-clock time into the phases the orchestrator
// instruments: walking (I/O), aggregating including the size sort
// (compute), and assembling the ScanResult (format).
type Timing struct {
	ScanSeconds    float64 `json:"scan"`
	ComputeSeconds float64 `json:"compute"`
	FormatSeconds  float64 `json:"format"`
	TotalSeconds   float64 `json:"total"`
}

// ScanResult is the response returned to a scan caller.
type ScanResult struct {
	Items               []Item  `json:"items"`
	TotalSize           int64   `json:"total_size"`
	TotalSizeFormatted  string  `json:"total_size_formatted"`
	Path                string  `json:"path"`
	ScanTimeSeconds     float64 `json:"scan_time_seconds"`
	Timing              *Timing `json:"timing,omitempty"`

	// CacheHit and CacheSource are left out of the JSON encoding (they
	// describe how this particular response was produced, not the tree
	// itself); they're set by the orchestrator after a cache lookup. The
	// gob-based cache codec (pkg/cache/codec.go) does encode them; the
	// orchestrator only stores results whose CacheHit is false.
	CacheHit    bool   `json:"-"`
	CacheSource string `json:"-"`
}

// Clone returns a value that can be mutated (e.g. ScanTimeSeconds reset to
// zero on a cache hit, per the testable properties in spec §8 scenario 5)
// without touching a shared cached copy. Items is copied by value since
// Item holds no pointers; this is cheap relative to a full re-walk but not
// free, which is why the memory tier additionally offers a zero-copy path
// via ArcResult for the common case of repeated reads of the same entry.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Items != nil {
		out.Items = make([]Item, len(r.Items))
		copy(out.Items, r.Items)
	}
	if r.Timing != nil {
		t := *r.Timing
		out.Timing = &t
	}
	return &out
}

// DirMtime is the validity witness for a cache entry: the root directory's
// own modification time, truncated to whole seconds to match what gets
// persisted across tiers and processes.
func DirMtime(t time.Time) int64 {
	return t.Unix()
}
