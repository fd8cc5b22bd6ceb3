package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blksword/flashdir/pkg/fs"
)

func TestAggregateNestedDirectories(t *testing.T) {
	items := []fs.Item{
		{Path: "x", Size: 2048, IsDir: false},
		{Path: "sub", IsDir: true},
		{Path: "sub/y", Size: 1024, IsDir: false},
	}
	fileEntries := map[string]int64{"x": 2048, "sub/y": 1024}

	result := Aggregate(items, fileEntries)

	assert.Equal(t, int64(3072), result.TotalSize)

	byPath := map[string]fs.Item{}
	for _, it := range result.Items {
		byPath[it.Path] = it
	}
	assert.Equal(t, int64(1024), byPath["sub"].Size)
	assert.Equal(t, int64(2048), byPath["x"].Size)
	assert.Equal(t, int64(1024), byPath["sub/y"].Size)

	// Descending-size order, ties broken deterministically.
	require := assert.New(t)
	require.Equal("x", result.Items[0].Path)
	require.Len(result.Items, 3)
}

func TestAggregateEmptyTree(t *testing.T) {
	result := Aggregate(nil, map[string]int64{})
	assert.Equal(t, int64(0), result.TotalSize)
	assert.Empty(t, result.Items)
}

func TestAggregateSortIsDescendingAndDeterministic(t *testing.T) {
	items := []fs.Item{
		{Path: "b", Size: 100},
		{Path: "a", Size: 100},
		{Path: "c", Size: 200},
	}
	fileEntries := map[string]int64{"a": 100, "b": 100, "c": 200}

	r1 := Aggregate(items, fileEntries)
	r2 := Aggregate(items, fileEntries)

	assert.Equal(t, r1.Items, r2.Items, "tie-breaking must be deterministic across runs")
	assert.Equal(t, "c", r1.Items[0].Path)
	// a/b tie on size 100, broken by natural order of path: "a" before "b".
	assert.Equal(t, "a", r1.Items[1].Path)
	assert.Equal(t, "b", r1.Items[2].Path)
}

func TestAggregateLargeFileSetParallelPath(t *testing.T) {
	items := make([]fs.Item, 0, 5000)
	fileEntries := make(map[string]int64, 5000)
	for i := 0; i < 5000; i++ {
		p := "dir/file" + itoa(i)
		items = append(items, fs.Item{Path: p, Size: int64(i)})
		fileEntries[p] = int64(i)
	}
	items = append(items, fs.Item{Path: "dir", IsDir: true})

	result := Aggregate(items, fileEntries)

	var want int64
	for i := 0; i < 5000; i++ {
		want += int64(i)
	}
	assert.Equal(t, want, result.TotalSize)

	for _, it := range result.Items {
		if it.Path == "dir" {
			assert.Equal(t, want, it.Size)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
