package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeResolvesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}

	root := t.TempDir()
	target := filepath.Join(root, "real")
	require.NoError(t, os.Mkdir(target, 0o755))

	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	canonical, err := canonicalize(link)
	require.NoError(t, err)

	realCanonical, err := canonicalize(target)
	require.NoError(t, err)
	assert.Equal(t, realCanonical, canonical)
}

func TestCanonicalizeIsForwardSlash(t *testing.T) {
	root := t.TempDir()
	canonical, err := canonicalize(root)
	require.NoError(t, err)
	assert.NotContains(t, canonical, `\`)
}
