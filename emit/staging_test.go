package emit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/errors"
)

func TestPublishWritesAtomically(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	err := Publish(TargetHeader, outDir, func(dir string) error {
		return WriteFile(TargetHeader, filepath.Join(dir, "a.h"), []byte("content"))
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "a.h"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestPublishFailureLeavesNoArtifacts(t *testing.T) {
	parent := t.TempDir()
	outDir := filepath.Join(parent, "out")
	boom := errors.New("render failed")

	err := Publish(TargetHeader, outDir, func(dir string) error {
		if werr := WriteFile(TargetHeader, filepath.Join(dir, "partial.h"), []byte("x")); werr != nil {
			return werr
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))

	// Staging directory is cleaned up too.
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublishReplacesPreviousOutput(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, Publish(TargetCrate, outDir, func(dir string) error {
		return WriteFile(TargetCrate, filepath.Join(dir, "stale.rs"), []byte("old"))
	}))
	require.NoError(t, Publish(TargetCrate, outDir, func(dir string) error {
		return WriteFile(TargetCrate, filepath.Join(dir, "fresh.rs"), []byte("new"))
	}))

	_, err := os.Stat(filepath.Join(outDir, "stale.rs"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(outDir, "fresh.rs"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
