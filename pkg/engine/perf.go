package engine

import (
	"sync"
	"time"
)

// historyCap is the bounded queue size for past sessions (spec §3: "cap
// 50, oldest-evicted").
const historyCap = 50

// Session is one scan's performance snapshot (spec §3 "Perf session"). A
// single session is in flight per engine at a time; nested StartScan calls
// overwrite it, which is acceptable because the external request dispatcher
// serializes scans (spec §4.5).
type Session struct {
	ScanID      int64
	Path        string
	StartTime   time.Time
	EndTime     time.Time
	DurationMS  float64

	IOPhaseMS        float64
	ComputePhaseMS   float64
	SerializePhaseMS float64
	CacheReadTimeMS  float64

	FilesScanned    int64
	DirsScanned     int64
	BytesRead       int64
	IOThroughputMBs float64

	ThreadsUsed   int
	MemoryPeakMB  float64

	CacheHit    bool
	CacheSource string // "memory" | "disk" | ""

	Errors []string

	ioStart, computeStart time.Time
}

// Summary answers get_performance_summary (spec §6).
type Summary struct {
	TotalScans      int
	CacheHits       int
	CacheHitRate    float64
	AvgScanMS       float64
	MinScanMS       float64
	MaxScanMS       float64
	AvgIOMS         float64
	AvgThroughputMB float64
}

// PerfMonitor tracks the current in-flight session plus a bounded ring of
// historical sessions. gdu itself has no equivalent of this layer; the
// shape here — atomic-free, mutex-guarded snapshot structs updated from a
// single scan goroutine — follows the instrumentation style of
// ivoronin-dupedog's scanner (fan-out workers feeding counters into one
// struct that the orchestrator reads back after Wait()), adapted from
// atomic counters to a plain mutex since a scan's perf bookkeeping happens
// in the orchestrator goroutine, not from every walker worker.
type PerfMonitor struct {
	mu      sync.Mutex
	current *Session
	history []Session
	nextID  int64
}

// NewPerfMonitor constructs an empty monitor.
func NewPerfMonitor() *PerfMonitor {
	return &PerfMonitor{}
}

// StartScan opens a new session for path, discarding any still-open one.
func (p *PerfMonitor) StartScan(path string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.current = &Session{ScanID: p.nextID, Path: path, StartTime: time.Now()}
	return p.current
}

// StartIOPhase marks the beginning of the walker phase.
func (p *PerfMonitor) StartIOPhase() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.ioStart = time.Now()
	}
}

// EndIOPhase records the walker phase's elapsed time.
func (p *PerfMonitor) EndIOPhase() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && !p.current.ioStart.IsZero() {
		p.current.IOPhaseMS = msSince(p.current.ioStart)
	}
}

// StartComputePhase marks the beginning of the aggregator phase.
func (p *PerfMonitor) StartComputePhase() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.computeStart = time.Now()
	}
}

// EndComputePhase records the aggregator phase's elapsed time.
func (p *PerfMonitor) EndComputePhase() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && !p.current.computeStart.IsZero() {
		p.current.ComputePhaseMS = msSince(p.current.computeStart)
	}
}

// RecordSerializePhase records the format-phase duration directly: the time
// the orchestrator spends assembling the ScanResult after the aggregator
// (whose sort counts toward the compute phase) has returned. It's short
// enough that start/end bracketing adds more noise than signal; the
// orchestrator just times the step and reports it.
func (p *PerfMonitor) RecordSerializePhase(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.SerializePhaseMS = float64(d.Microseconds()) / 1000.0
	}
}

// RecordCacheHit marks the current session as served from cache source src
// ("memory" or "disk"), with elapsed as the lookup time.
func (p *PerfMonitor) RecordCacheHit(src string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.CacheHit = true
		p.current.CacheSource = src
		p.current.CacheReadTimeMS = float64(elapsed.Microseconds()) / 1000.0
	}
}

// UpdateIOStats folds walker stats into the current session and derives
// throughput in MB/s from BytesRead and IOPhaseMS.
func (p *PerfMonitor) UpdateIOStats(files, dirs, bytesRead int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.current.FilesScanned = files
	p.current.DirsScanned = dirs
	p.current.BytesRead = bytesRead
	if p.current.IOPhaseMS > 0 {
		seconds := p.current.IOPhaseMS / 1000.0
		p.current.IOThroughputMBs = float64(bytesRead) / (1 << 20) / seconds
	}
}

// UpdateMemoryStats records the process memory figure the caller passes in
// (runtime.MemStats.Sys in MB, see peakMemoryMB), as given; it is not
// normalized against total system memory.
func (p *PerfMonitor) UpdateMemoryStats(peakMB float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.MemoryPeakMB = peakMB
	}
}

// SetThreadsUsed records the walker's worker-pool size for this scan.
func (p *PerfMonitor) SetThreadsUsed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.ThreadsUsed = n
	}
}

// RecordError appends msg to the current session's error list without
// failing the scan (spec §7: "the perf monitor records errors but does not
// fail the scan").
func (p *PerfMonitor) RecordError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Errors = append(p.current.Errors, msg)
	}
}

// EndScan finalizes the current session's duration, appends it to the
// bounded history, and returns a snapshot copy.
func (p *PerfMonitor) EndScan() Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return Session{}
	}

	p.current.EndTime = time.Now()
	p.current.DurationMS = msSince(p.current.StartTime)

	snapshot := *p.current
	p.history = append(p.history, snapshot)
	if len(p.history) > historyCap {
		p.history = p.history[len(p.history)-historyCap:]
	}
	return snapshot
}

// Current returns a copy of the in-flight (or most recently completed)
// session, if any.
func (p *PerfMonitor) Current() (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Session{}, false
	}
	return *p.current, true
}

// History returns a copy of the bounded history queue, oldest first.
func (p *PerfMonitor) History() []Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Session, len(p.history))
	copy(out, p.history)
	return out
}

// ClearHistory empties the history queue.
func (p *PerfMonitor) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
}

// Summary computes get_performance_summary (spec §6) over the history
// queue.
func (p *PerfMonitor) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Summary
	s.TotalScans = len(p.history)
	if s.TotalScans == 0 {
		return s
	}

	s.MinScanMS = p.history[0].DurationMS
	var sumDuration, sumIO, sumThroughput float64
	for _, sess := range p.history {
		if sess.CacheHit {
			s.CacheHits++
		}
		sumDuration += sess.DurationMS
		sumIO += sess.IOPhaseMS
		sumThroughput += sess.IOThroughputMBs
		if sess.DurationMS < s.MinScanMS {
			s.MinScanMS = sess.DurationMS
		}
		if sess.DurationMS > s.MaxScanMS {
			s.MaxScanMS = sess.DurationMS
		}
	}
	s.CacheHitRate = float64(s.CacheHits) / float64(s.TotalScans)
	s.AvgScanMS = sumDuration / float64(s.TotalScans)
	s.AvgIOMS = sumIO / float64(s.TotalScans)
	s.AvgThroughputMB = sumThroughput / float64(s.TotalScans)
	return s
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
