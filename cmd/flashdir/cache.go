package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCacheCmd exposes get_disk_cache_stats / clear_disk_cache (spec §6).
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the on-disk cache tier",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show disk cache size, entry count, and oldest entry",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheStats()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from the disk cache",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheClear()
		},
	})

	return cmd
}

func runCacheStats() error {
	cfg := loadConfig()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.DiskCacheStats()
	if err != nil {
		return err
	}

	fmt.Printf("entries:        %d\n", stats.EntryCount)
	fmt.Printf("total size:     %.2f MB (max %.0f MB)\n",
		float64(stats.TotalBytes)/(1<<20), float64(cfg.DiskMaxBytes))
	if stats.HasOldest {
		fmt.Printf("oldest entry:   %s\n", time.Unix(stats.OldestUnix, 0).Format(time.RFC3339))
	}
	return nil
}

func runCacheClear() error {
	cfg := loadConfig()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.ClearDiskCache(); err != nil {
		return err
	}
	fmt.Println("disk cache cleared")
	return nil
}
