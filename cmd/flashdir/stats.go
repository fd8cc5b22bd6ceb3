package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type statsOptions struct {
	clear   bool
	history bool
}

// newStatsCmd exposes get_performance_metrics / get_performance_history /
// clear_performance_history / get_performance_summary (spec §6). These
// read the in-process perf monitor, so this only reports anything useful
// when run right after a "scan" in the same process is not possible from
// separate CLI invocations — it's wired here primarily so library callers
// embedding pkg/engine have a CLI-shaped reference for the same calls.
func newStatsCmd() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show performance-monitor summary and history",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStats(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.clear, "clear", false, "clear performance history")
	cmd.Flags().BoolVar(&opts.history, "history", false, "print per-scan history instead of the summary")

	return cmd
}

func runStats(opts *statsOptions) error {
	cfg := loadConfig()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if opts.clear {
		eng.Perf().ClearHistory()
		fmt.Println("performance history cleared")
		return nil
	}

	if opts.history {
		for _, sess := range eng.Perf().History() {
			fmt.Printf("scan #%d %-40s duration=%.1fms cache=%v/%s files=%d dirs=%d throughput=%s\n",
				sess.ScanID, sess.Path, sess.DurationMS, sess.CacheHit, sess.CacheSource,
				sess.FilesScanned, sess.DirsScanned, printThroughput(sess.BytesRead, sess.IOPhaseMS/1000.0))
		}
		return nil
	}

	summary := eng.Perf().Summary()
	bold := color.New(color.Bold)
	bold.Println("Performance summary")
	fmt.Printf("  total scans:        %d\n", summary.TotalScans)
	fmt.Printf("  cache hits:         %d (%.1f%%)\n", summary.CacheHits, summary.CacheHitRate*100)
	fmt.Printf("  avg scan duration:  %.1fms\n", summary.AvgScanMS)
	fmt.Printf("  min/max duration:   %.1fms / %.1fms\n", summary.MinScanMS, summary.MaxScanMS)
	fmt.Printf("  avg io time:        %.1fms\n", summary.AvgIOMS)
	fmt.Printf("  avg throughput:     %.2f MB/s\n", summary.AvgThroughputMB)
	return nil
}
