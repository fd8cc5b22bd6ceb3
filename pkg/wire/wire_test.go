package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blksword/flashdir/pkg/fs"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := &fs.ScanResult{
		Path:               "root",
		TotalSize:          3072,
		TotalSizeFormatted: "3.00 KB",
		ScanTimeSeconds:    0.042,
		Items: []fs.Item{
			{Path: "x", Name: "x", Size: 2048, SizeFormatted: "2.00 KB"},
			{Path: "sub", Name: "sub", Size: 1024, SizeFormatted: "1.00 KB", IsDir: true},
		},
		Timing: &fs.Timing{ScanSeconds: 0.01, ComputeSeconds: 0.02, FormatSeconds: 0.005, TotalSeconds: 0.035},
	}

	payload, err := Encode(original)
	require.NoError(t, err)
	assert.False(t, payload.Compressed, "small payloads stay under the compression threshold")
	assert.Equal(t, len(payload.Data), payload.OriginalSize)

	decoded, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, original.Path, decoded.Path)
	assert.Equal(t, original.TotalSize, decoded.TotalSize)
	assert.Equal(t, original.Items, decoded.Items)
	require.NotNil(t, decoded.Timing)
	assert.Equal(t, *original.Timing, *decoded.Timing)
}

func TestEncodeWithoutTimingRoundTrips(t *testing.T) {
	original := &fs.ScanResult{Path: "root", Items: []fs.Item{{Path: "a"}}}

	payload, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Nil(t, decoded.Timing)
}

func TestEncodeCompressesLargePayloads(t *testing.T) {
	items := make([]fs.Item, 0, 60000)
	for i := 0; i < 60000; i++ {
		items = append(items, fs.Item{Path: strings.Repeat("x", 40), Name: "x", Size: int64(i)})
	}
	original := &fs.ScanResult{Path: "root", Items: items}

	payload, err := Encode(original)
	require.NoError(t, err)
	require.Greater(t, payload.OriginalSize, CompressionThreshold)
	assert.True(t, payload.Compressed)
	assert.Less(t, len(payload.Data), payload.OriginalSize)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Len(t, decoded.Items, 60000)
}
