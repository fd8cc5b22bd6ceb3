package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerfMonitorScanLifecycle(t *testing.T) {
	p := NewPerfMonitor()
	p.StartScan("/tmp/x")
	p.StartIOPhase()
	time.Sleep(time.Millisecond)
	p.EndIOPhase()
	p.UpdateIOStats(10, 2, 1<<20)
	p.SetThreadsUsed(8)

	session := p.EndScan()
	assert.Equal(t, "/tmp/x", session.Path)
	assert.Greater(t, session.IOPhaseMS, float64(0))
	assert.Equal(t, int64(10), session.FilesScanned)
	assert.Equal(t, 8, session.ThreadsUsed)
}

func TestPerfMonitorHistoryBounded(t *testing.T) {
	p := NewPerfMonitor()
	for i := 0; i < historyCap+10; i++ {
		p.StartScan("/tmp/x")
		p.EndScan()
	}
	assert.Len(t, p.History(), historyCap)
}

func TestPerfMonitorClearHistory(t *testing.T) {
	p := NewPerfMonitor()
	p.StartScan("/tmp/x")
	p.EndScan()
	assert.NotEmpty(t, p.History())

	p.ClearHistory()
	assert.Empty(t, p.History())
}

func TestPerfMonitorSummary(t *testing.T) {
	p := NewPerfMonitor()

	p.StartScan("/tmp/a")
	p.EndScan()

	p.StartScan("/tmp/b")
	p.RecordCacheHit("memory", time.Millisecond)
	p.EndScan()

	summary := p.Summary()
	assert.Equal(t, 2, summary.TotalScans)
	assert.Equal(t, 1, summary.CacheHits)
	assert.Equal(t, 0.5, summary.CacheHitRate)
}

func TestPerfMonitorSummaryEmpty(t *testing.T) {
	p := NewPerfMonitor()
	summary := p.Summary()
	assert.Equal(t, 0, summary.TotalScans)
	assert.Equal(t, float64(0), summary.CacheHitRate)
}

func TestPerfMonitorNestedStartScanOverwrites(t *testing.T) {
	p := NewPerfMonitor()
	p.StartScan("/tmp/first")
	p.StartScan("/tmp/second")

	current, ok := p.Current()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/second", current.Path)
}
