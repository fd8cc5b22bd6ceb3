// Package engine implements the scan orchestrator and performance monitor
// (component C5): the public Scan operation that validates input,
// consults the two-tier cache, dispatches the walker and aggregator on a
// miss, and records phase timings.
//
// gdu has no equivalent of a reusable, injectable engine value — its
// incremental analyzer is a package-level singleton wired directly into
// the TUI. Spec §9 calls that out explicitly ("reframe as a ScanEngine
// value that owns all three [caches/monitor] and is injected by the outer
// loop"), so this package generalizes gdu's shape into one.
package engine

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	log "github.com/sirupsen/logrus"

	"github.com/blksword/flashdir/pkg/aggregate"
	"github.com/blksword/flashdir/pkg/cache"
	"github.com/blksword/flashdir/pkg/fs"
	"github.com/blksword/flashdir/pkg/walk"
)

// Options configures a ScanEngine. Zero cache bounds, TTL and worker count
// fall back to spec defaults; zero MaxIOPS and IODelay mean no throttling;
// an empty StateDir places the disk tier under the working directory.
type Options struct {
	StateDir         string
	MemoryMaxEntries int
	MemoryMaxBytes   int64
	DiskMaxBytes     int64
	DiskTTL          time.Duration
	Workers          int
	MaxIOPS          int
	IODelay          time.Duration
}

// ScanEngine owns the memory and disk cache tiers and the performance
// monitor, and exposes the public scan operations (spec §6).
type ScanEngine struct {
	memory *cache.Memory
	disk   *cache.Disk
	perf   *PerfMonitor

	closeDisk func()

	workers  int
	throttle *walk.Throttle
}

// New constructs a ScanEngine with the given options but does not open the
// disk tier yet; call Open for that.
func New(opts Options) *ScanEngine {
	return &ScanEngine{
		memory:   cache.NewMemory(opts.MemoryMaxEntries, opts.MemoryMaxBytes),
		disk:     cache.NewDisk(filepath.Join(opts.StateDir, "cache_v2.db"), opts.DiskMaxBytes, opts.DiskTTL),
		perf:     NewPerfMonitor(),
		workers:  opts.Workers,
		throttle: walk.NewThrottle(opts.MaxIOPS, opts.IODelay),
	}
}

// Open opens the disk tier. Must be called before Scan. The returned error
// is from disk-tier initialization only (spec §7 still treats the disk
// tier as advisory once open — only the open itself can fail loudly, since
// a failed open means there is no cache directory to write into at all).
func (e *ScanEngine) Open() error {
	closer, err := e.disk.Open()
	if err != nil {
		return err
	}
	e.closeDisk = closer
	return nil
}

// Close releases the disk tier.
func (e *ScanEngine) Close() {
	if e.closeDisk != nil {
		e.closeDisk()
	}
}

// Scan implements the state machine in spec §4.5.
func (e *ScanEngine) Scan(ctx context.Context, path string, forceRefresh bool) (*fs.ScanResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newError(InvalidInput, "path must not be empty", nil)
	}

	e.perf.StartScan(path)

	info, err := osStat(path)
	if err != nil {
		e.perf.RecordError(err.Error())
		return nil, newError(NotAccessible, "cannot stat "+path, err)
	}
	if !info.IsDir() {
		return nil, newError(NotADirectory, path+" is not a directory", nil)
	}

	canonical, err := canonicalize(path)
	if err != nil {
		e.perf.RecordError(err.Error())
		return nil, newError(NotAccessible, "cannot canonicalize "+path, err)
	}

	dirMtime := fs.DirMtime(info.ModTime())

	if !forceRefresh {
		if result, ok := e.tryMemory(canonical, dirMtime, path); ok {
			return result, nil
		}
		if result, ok := e.tryDisk(canonical, dirMtime, path); ok {
			return result, nil
		}
	}

	if err := e.disk.Invalidate(canonical); err != nil {
		log.WithError(err).WithField("key", canonical).Debug("disk cache: invalidate on refresh failed")
	}
	e.memory.Invalidate(canonical)

	result, err := e.runScan(ctx, canonical, path)
	if err != nil {
		return nil, err
	}

	e.populateCaches(canonical, dirMtime, result)

	snapshot := e.perf.EndScan()
	result.Timing = &fs.Timing{
		ScanSeconds:    snapshot.IOPhaseMS / 1000.0,
		ComputeSeconds: snapshot.ComputePhaseMS / 1000.0,
		FormatSeconds:  snapshot.SerializePhaseMS / 1000.0,
		TotalSeconds:   snapshot.DurationMS / 1000.0,
	}
	result.ScanTimeSeconds = snapshot.DurationMS / 1000.0

	return result, nil
}

func (e *ScanEngine) tryMemory(key string, probedMtime int64, origPath string) (*fs.ScanResult, bool) {
	start := time.Now()
	entry, ok := e.memory.Get(key)
	if !ok || entry.DirMtime < probedMtime {
		return nil, false
	}

	e.perf.RecordCacheHit("memory", time.Since(start))
	result := entry.Result.Overlay(origPath, "memory")
	e.perf.EndScan()
	return result, true
}

func (e *ScanEngine) tryDisk(key string, probedMtime int64, origPath string) (*fs.ScanResult, bool) {
	start := time.Now()
	result, ok := e.disk.Get(key, probedMtime)
	if !ok {
		return nil, false
	}

	e.perf.RecordCacheHit("disk", time.Since(start))
	e.memory.Insert(key, &cache.MemoryEntry{
		Result:   fs.NewArcResult(result),
		DirMtime: probedMtime,
		SizeByte: estimateSize(result),
	})

	view := result.Clone()
	view.Path = origPath
	view.ScanTimeSeconds = 0
	view.CacheHit = true
	view.CacheSource = "disk"
	e.perf.EndScan()
	return view, true
}

func (e *ScanEngine) runScan(ctx context.Context, canonical, origPath string) (*fs.ScanResult, error) {
	e.perf.StartIOPhase()
	walkResult := walk.Walk(ctx, canonical, walk.Options{Workers: e.workers, Throttle: e.throttle})
	e.perf.EndIOPhase()
	e.perf.UpdateIOStats(walkResult.Stats.FilesScanned, walkResult.Stats.DirsScanned, walkResult.Stats.BytesRead)
	e.perf.SetThreadsUsed(workerCount(e.workers))
	e.perf.UpdateMemoryStats(peakMemoryMB())
	log.WithFields(log.Fields{
		"device_id":  walkResult.Device.DeviceID,
		"block_size": walkResult.Device.BlockSize,
	}).Debug("scan root device info")

	e.perf.StartComputePhase()
	agg := aggregate.Aggregate(walkResult.Items, walkResult.FileEntries)
	e.perf.EndComputePhase()

	serializeStart := time.Now()
	result := &fs.ScanResult{
		Items:              agg.Items,
		TotalSize:          agg.TotalSize,
		TotalSizeFormatted: formatBytes(agg.TotalSize),
		Path:               origPath,
		CacheHit:           false,
	}
	e.perf.RecordSerializePhase(time.Since(serializeStart))

	return result, nil
}

func (e *ScanEngine) populateCaches(key string, dirMtime int64, result *fs.ScanResult) {
	e.memory.Insert(key, &cache.MemoryEntry{
		Result:   fs.NewArcResult(result.Clone()),
		DirMtime: dirMtime,
		SizeByte: estimateSize(result),
	})
	e.disk.Insert(key, result, dirMtime)
}

// ScanBatch implements scan_directories_batch (spec §6): sequential
// fan-out, logging and dropping per-path failures.
func (e *ScanEngine) ScanBatch(ctx context.Context, paths []string, forceRefresh bool) []*fs.ScanResult {
	results := make([]*fs.ScanResult, 0, len(paths))
	for _, p := range paths {
		r, err := e.Scan(ctx, p, forceRefresh)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("batch scan: skipping path")
			continue
		}
		results = append(results, r)
	}
	return results
}

// Perf exposes the performance-monitor operations (spec §6).
func (e *ScanEngine) Perf() *PerfMonitor { return e.perf }

// DiskCacheStats implements get_disk_cache_stats (spec §6).
func (e *ScanEngine) DiskCacheStats() (cache.Stats, error) {
	return e.disk.Stats()
}

// ClearDiskCache implements clear_disk_cache (spec §6).
func (e *ScanEngine) ClearDiskCache() error {
	return e.disk.Clear()
}

func estimateSize(r *fs.ScanResult) int64 {
	const perItemOverhead = 96
	return int64(len(r.Items))*perItemOverhead + int64(len(r.Path))
}

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return walk.WorkerCount()
}

// peakMemoryMB reports the process's current system-reserved memory (a
// practical stand-in for "peak" absent a dedicated high-water-mark
// sampler) in MB. pbnjay/memory contributes the total-system figure used
// to flag when a scan's footprint is becoming a meaningful fraction of
// available RAM, logged rather than returned since spec §3's
// memory_peak_mb is a process, not system, figure.
func peakMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	sysMB := float64(m.Sys) / (1 << 20)

	if total := memory.TotalMemory(); total > 0 {
		if frac := float64(m.Sys) / float64(total); frac > 0.5 {
			log.WithField("fraction_of_system_ram", frac).Warn("scan memory footprint is large relative to system RAM")
		}
	}

	return sysMB
}
