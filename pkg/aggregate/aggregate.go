// Package aggregate implements the fold-and-sort stage (component C3) that
// runs after the walker completes: it turns a flat map of file sizes into
// per-directory totals, stamps every Item with its final size and formatted
// string, and produces the descending-size order the orchestrator returns.
//
// The ancestor-folding loop is the hot compute path the spec calls out for
// parallelization; it is sharded the way gdu's pkg/analyze shards its own
// post-walk aggregation (incremental.go's concurrent size summation), here
// partitioning the file list (collected with golang.org/x/exp/maps.Keys)
// across workers and merging per-shard maps instead of folding into a single
// shared, lock-guarded map.
package aggregate

import (
	"runtime"
	"sort"
	"sync"

	"github.com/maruel/natural"
	"golang.org/x/exp/maps"

	"github.com/blksword/flashdir/pkg/fs"
	"github.com/blksword/flashdir/pkg/format"
)

// shardCount picks how many goroutines fold the file list: one below 2048
// files, otherwise the CPU count capped at 8. No point oversharding a small
// tree.
func shardCount(n int) int {
	if n < 2048 {
		return 1
	}
	c := runtime.NumCPU()
	if c < 1 {
		c = 1
	}
	if c > 8 {
		c = 8
	}
	return c
}

// dirSizes folds fileEntries (root-relative file path -> size) into a map of
// every ancestor directory path -> cumulative size, including the empty
// string for the root itself. Parallelized by partitioning fileEntries into
// shards, each folded independently, then merged.
func dirSizes(fileEntries map[string]int64) map[string]int64 {
	paths := maps.Keys(fileEntries)
	shards := shardCount(len(paths))

	if shards == 1 {
		out := make(map[string]int64, len(paths))
		for _, p := range paths {
			foldAncestors(out, p, fileEntries[p])
		}
		return out
	}

	partials := make([]map[string]int64, shards)
	chunk := (len(paths) + shards - 1) / shards

	var wg sync.WaitGroup
	for i := 0; i < shards; i++ {
		start := i * chunk
		end := start + chunk
		if start >= len(paths) {
			partials[i] = map[string]int64{}
			continue
		}
		if end > len(paths) {
			end = len(paths)
		}

		wg.Add(1)
		go func(i, start, end int) {
			defer wg.Done()
			local := make(map[string]int64, (end-start)*2)
			for _, p := range paths[start:end] {
				foldAncestors(local, p, fileEntries[p])
			}
			partials[i] = local
		}(i, start, end)
	}
	wg.Wait()

	merged := partials[0]
	for _, p := range partials[1:] {
		for k, v := range p {
			merged[k] += v
		}
	}
	return merged
}

// foldAncestors adds size to every "/"-separated ancestor of path,
// including the root (the empty string); path's own entry is not touched.
func foldAncestors(out map[string]int64, path string, size int64) {
	out[""] += size
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out[path[:i]] += size
		}
	}
}

// Result holds the aggregator's finalized output: every Item with size and
// size_formatted filled in and sorted descending by size, plus the scan
// total (sum of file sizes only, per spec §4.3 step 2).
type Result struct {
	Items     []fs.Item
	TotalSize int64
}

// Aggregate runs steps 2-5 of spec §4.3 over one walk's raw output.
func Aggregate(items []fs.Item, fileEntries map[string]int64) Result {
	var total int64
	for _, size := range fileEntries {
		total += size
	}

	sizes := dirSizes(fileEntries)

	out := make([]fs.Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].IsDir {
			out[i].Size = sizes[out[i].Path]
		}
		out[i].SizeFormatted = format.Bytes(out[i].Size)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return natural.Less(out[i].Path, out[j].Path)
	})

	return Result{Items: out, TotalSize: total}
}
