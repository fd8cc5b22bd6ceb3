package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blksword/flashdir/pkg/fs"
	"github.com/blksword/flashdir/pkg/wire"
)

type scanOptions struct {
	forceRefresh bool
	jsonOutput   bool
	binaryOutput bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Compute recursive directory sizes, ranked by size",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.forceRefresh, "force", "f", false, "bypass both cache tiers and recompute")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "emit scan_directory's JSON encoding")
	cmd.Flags().BoolVar(&opts.binaryOutput, "binary", false, "emit scan_directory_binary's payload, base64-wrapped in JSON")

	return cmd
}

func runScan(paths []string, opts *scanOptions) error {
	cfg := loadConfig()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()

	var results []*fs.ScanResult
	if len(paths) > 1 {
		results = eng.ScanBatch(ctx, paths, opts.forceRefresh)
	} else {
		result, err := eng.Scan(ctx, paths[0], opts.forceRefresh)
		if err != nil {
			log.WithError(err).Error("scan failed")
			return err
		}
		results = []*fs.ScanResult{result}
	}

	return emitResults(results, opts)
}

func emitResults(results []*fs.ScanResult, opts *scanOptions) error {
	switch {
	case opts.binaryOutput:
		return emitBinary(results)
	case opts.jsonOutput || len(results) > 1:
		return emitJSON(results)
	default:
		for _, r := range results {
			printSummaryTable(r)
		}
		return nil
	}
}

func emitJSON(results []*fs.ScanResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// binaryEnvelope mirrors the outer schema of scan_directory_binary (spec
// §6), JSON-wrapped for terminal display since the CLI has no raw-byte
// output channel other than stdout redirection.
type binaryEnvelope struct {
	Data         string `json:"data"`
	Compressed   bool   `json:"compressed"`
	OriginalSize int    `json:"original_size"`
}

func emitBinary(results []*fs.ScanResult) error {
	envelopes := make([]binaryEnvelope, 0, len(results))
	for _, r := range results {
		payload, err := wire.Encode(r)
		if err != nil {
			return fmt.Errorf("encoding binary payload for %s: %w", r.Path, err)
		}
		envelopes = append(envelopes, binaryEnvelope{
			Data:         base64.StdEncoding.EncodeToString(payload.Data),
			Compressed:   payload.Compressed,
			OriginalSize: payload.OriginalSize,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(envelopes) == 1 {
		return enc.Encode(envelopes[0])
	}
	return enc.Encode(envelopes)
}
