package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/blksword/flashdir/pkg/fs"
)

// colorEnabled mirrors fatih/color's own auto-detection but adds the
// NO_COLOR convention on top, per SPEC_FULL.md's domain-stack note: the
// colorized summary table is "auto-disabled on non-tty or NO_COLOR".
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printSummaryTable renders a scan result as a colorized, fixed-width
// table. Item counts use golang.org/x/text/message for thousands
// separators — purely a CLI nicety, never applied to the persisted
// size_formatted field (spec §4.1 requires that stay byte-stable).
func printSummaryTable(result *fs.ScanResult) {
	color.NoColor = !colorEnabled()

	header := color.New(color.FgCyan, color.Bold)
	sizeColor := color.New(color.FgYellow)
	dirColor := color.New(color.FgBlue)

	p := message.NewPrinter(language.English)

	header.Printf("%-50s %12s %6s\n", "PATH", "SIZE", "TYPE")
	for _, item := range result.Items {
		name := item.Path
		kind := "file"
		if item.IsDir {
			name = dirColor.Sprint(item.Path)
			kind = "dir"
		}
		fmt.Printf("%-50s %12s %6s\n", name, sizeColor.Sprint(item.SizeFormatted), kind)
	}

	fmt.Println()
	p.Printf("Total: %s across %d items, scanned in %.3fs\n",
		result.TotalSizeFormatted, len(result.Items), result.ScanTimeSeconds)
	if result.CacheHit {
		fmt.Printf("(served from %s cache)\n", result.CacheSource)
	}
}

// printThroughput renders a perf session's I/O throughput the way a log
// line would, human-scaled via go-humanize rather than the byte-stable
// format.Bytes used for persisted sizes.
func printThroughput(bytesRead int64, seconds float64) string {
	if seconds <= 0 {
		return humanize.Bytes(uint64(bytesRead)) + "/s"
	}
	rate := float64(bytesRead) / seconds
	if rate < 0 {
		rate = 0
	}
	return humanize.Bytes(uint64(rate)) + "/s"
}
