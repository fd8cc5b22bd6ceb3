// Package format renders byte counts as short human-readable strings.
//
// The output is persisted inside cached ScanResults (pkg/cache, pkg/wire),
// so it must stay byte-identical across platforms and across releases of
// this package — unlike the humanize-style helper used for ephemeral CLI
// output (cmd/flashdir), which tolerates looser,
// locale-aware formatting. See DESIGN.md for why dustin/go-humanize is not
// used here.
package format

import "fmt"

var units = [...]string{"B", "KB", "MB", "GB", "TB"}

const unitBase = 1024.0

// Bytes renders n using binary (1024) units, selecting the largest unit for
// which the scaled value is >= 1, capped at TB. Precision depends on the
// scaled value v:
//
//	n < 1024:        "<n> B", no decimal
//	v < 10:          two decimals
//	10 <= v < 100:   one decimal
//	v >= 100:        zero decimals
func Bytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	unitIdx := 0
	for v >= unitBase && unitIdx < len(units)-1 {
		v /= unitBase
		unitIdx++
	}

	switch {
	case v < 10:
		return fmt.Sprintf("%.2f %s", v, units[unitIdx])
	case v < 100:
		return fmt.Sprintf("%.1f %s", v, units[unitIdx])
	default:
		return fmt.Sprintf("%.0f %s", v, units[unitIdx])
	}
}
