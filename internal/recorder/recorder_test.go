package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func TestFileRecorderWritesJPEGFrames(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, 80)

	require.NoError(t, r.Open(filepath.Join(dir, "session"), 30, 16, 16, true))
	require.NoError(t, r.WriteWithBreath(evmtype.NewFrameU8(16, 16, 3), 7))
	require.NoError(t, r.Close())

	entries, err := os.ReadDir(filepath.Join(dir, "session"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileRecorderCombinedDoublesWidth(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, 80)
	r.CombinedWithOriginal = true

	img := frameImage(evmtype.NewFrameU8(8, 8, 3), true)
	require.Equal(t, 16, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())
}

func TestFileRecorderWriteBeforeOpenFails(t *testing.T) {
	r := NewFileRecorder(t.TempDir(), 80)
	err := r.Write(evmtype.NewFrameU8(4, 4, 1))
	require.Error(t, err)
}

func TestFileRecorderDoubleOpenFails(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, 80)
	require.NoError(t, r.Open(filepath.Join(dir, "s1"), 30, 4, 4, true))
	defer r.Close()
	err := r.Open(filepath.Join(dir, "s2"), 30, 4, 4, true)
	require.Error(t, err)
}

func TestFileRecorderCloseDrainsBuffer(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, 80)
	require.NoError(t, r.Open(filepath.Join(dir, "session"), 30, 4, 4, true))
	for i := 0; i < 5; i++ {
		require.NoError(t, r.WriteWithBreath(evmtype.NewFrameU8(4, 4, 3), i))
	}
	require.NoError(t, r.Close())
	time.Sleep(10 * time.Millisecond)

	entries, err := os.ReadDir(filepath.Join(dir, "session"))
	require.NoError(t, err)
	require.LessOrEqual(t, len(entries), 5)
	require.Greater(t, len(entries), 0)
}
