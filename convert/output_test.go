package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rickbassham/ser2fits/fits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameEncodeFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FrameName(0))

	// three pixels for a 2x2 image fails inside Encode, after the temp file
	// exists
	err := writeFrame(path, fits.Image{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3}})
	assert.ErrorIs(t, err, ErrOutputWrite)
	assert.ErrorIs(t, err, fits.ErrImageSize)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFrameEncodeFailureKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FrameName(0))

	require.NoError(t, writeFrame(path, fits.Image{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3, 4}}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = writeFrame(path, fits.Image{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3}})
	assert.ErrorIs(t, err, ErrOutputWrite)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FrameName(0), entries[0].Name())
}

func TestWriteFrameMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FrameName(0))
	img := fits.Image{Width: 1, Height: 1, Pixels: []uint8{5}}

	require.NoError(t, writeFrame(path, img))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, newFileMode, st.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0600))
	require.NoError(t, writeFrame(path, img))

	st, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
}
