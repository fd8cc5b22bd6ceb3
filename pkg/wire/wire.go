// Package wire implements the binary result schema for scan_directory_binary
// (spec §6), carried forward from the Tauri prototype's binary_protocol.rs:
// an outer envelope {data, compressed, original_size} wrapping a secondary,
// more compact encoding of the ScanResult and its items.
package wire

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/blksword/flashdir/pkg/fs"
)

// CompressionThreshold mirrors pkg/cache/codec.go's default (spec §4.4/§6:
// "a configurable threshold, default 1 MiB").
const CompressionThreshold = 1 << 20

const compressionRatioGate = 0.8

// Payload is the outer schema returned by scan_directory_binary.
type Payload struct {
	Data         []byte `json:"data"`
	Compressed   bool   `json:"compressed"`
	OriginalSize int    `json:"original_size"`
}

// optimizedScanResult mirrors OptimizedScanResult: the inner payload
// decoded from Payload.Data, with items flattened to a secondary
// items_data blob (spec §6).
type optimizedScanResult struct {
	Path               string
	TotalSize          int64
	TotalSizeFormatted string
	ScanTime           float64
	ItemCount          int
	HasTiming          bool
	TimingScan         float64
	TimingCompute      float64
	TimingFormat       float64
	TimingTotal        float64
	ItemsData          []byte
}

// optimizedItemFull mirrors binary_protocol.rs's OptimizedItem — a flat,
// field-for-field twin of fs.Item with no json tags, used only inside the
// secondary items_data encoding.
type optimizedItemFull struct {
	Path          string
	Name          string
	Size          int64
	SizeFormatted string
	IsDir         bool
}

func init() {
	gob.Register(optimizedScanResult{})
	gob.Register([]optimizedItemFull{})
}

// Encode produces the scan_directory_binary payload for result (spec §6).
func Encode(result *fs.ScanResult) (Payload, error) {
	items := make([]optimizedItemFull, len(result.Items))
	for i, it := range result.Items {
		items[i] = optimizedItemFull{
			Path:          it.Path,
			Name:          it.Name,
			Size:          it.Size,
			SizeFormatted: it.SizeFormatted,
			IsDir:         it.IsDir,
		}
	}

	var itemsBuf bytes.Buffer
	if err := gob.NewEncoder(&itemsBuf).Encode(items); err != nil {
		return Payload{}, errors.Wrap(err, "encoding wire items")
	}

	inner := optimizedScanResult{
		Path:               result.Path,
		TotalSize:          result.TotalSize,
		TotalSizeFormatted: result.TotalSizeFormatted,
		ScanTime:           result.ScanTimeSeconds,
		ItemCount:          len(result.Items),
		HasTiming:          result.Timing != nil,
		ItemsData:          itemsBuf.Bytes(),
	}
	if result.Timing != nil {
		inner.TimingScan = result.Timing.ScanSeconds
		inner.TimingCompute = result.Timing.ComputeSeconds
		inner.TimingFormat = result.Timing.FormatSeconds
		inner.TimingTotal = result.Timing.TotalSeconds
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(inner); err != nil {
		return Payload{}, errors.Wrap(err, "encoding wire envelope body")
	}
	rawBytes := raw.Bytes()

	originalSize := len(rawBytes)
	if originalSize > CompressionThreshold {
		if compressed, ok := tryCompress(rawBytes); ok {
			return Payload{Data: compressed, Compressed: true, OriginalSize: originalSize}, nil
		}
	}

	return Payload{Data: rawBytes, Compressed: false, OriginalSize: originalSize}, nil
}

// Decode reverses Encode, returning the reconstructed ScanResult.
func Decode(p Payload) (*fs.ScanResult, error) {
	rawBytes := p.Data
	if p.Compressed {
		decompressed, err := decompress(p.Data, p.OriginalSize)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing wire payload")
		}
		rawBytes = decompressed
	}

	var inner optimizedScanResult
	if err := gob.NewDecoder(bytes.NewReader(rawBytes)).Decode(&inner); err != nil {
		return nil, errors.Wrap(err, "decoding wire envelope body")
	}

	var items []optimizedItemFull
	if len(inner.ItemsData) > 0 {
		if err := gob.NewDecoder(bytes.NewReader(inner.ItemsData)).Decode(&items); err != nil {
			return nil, errors.Wrap(err, "decoding wire items")
		}
	}

	result := &fs.ScanResult{
		Path:               inner.Path,
		TotalSize:          inner.TotalSize,
		TotalSizeFormatted: inner.TotalSizeFormatted,
		ScanTimeSeconds:    inner.ScanTime,
		Items:              make([]fs.Item, len(items)),
	}
	for i, it := range items {
		result.Items[i] = fs.Item{
			Path:          it.Path,
			Name:          it.Name,
			Size:          it.Size,
			SizeFormatted: it.SizeFormatted,
			IsDir:         it.IsDir,
		}
	}
	if inner.HasTiming {
		result.Timing = &fs.Timing{
			ScanSeconds:    inner.TimingScan,
			ComputeSeconds: inner.TimingCompute,
			FormatSeconds:  inner.TimingFormat,
			TotalSeconds:   inner.TimingTotal,
		}
	}
	return result, nil
}

func tryCompress(data []byte) (compressed []byte, ok bool) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	if float64(buf.Len()) >= compressionRatioGate*float64(len(data)) {
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(data []byte, originalSize int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, originalSize))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
