package sink

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "breath.bin")

	s, err := NewFileSink(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(42))
	require.NoError(t, s.Write(-5))
}

func TestNoopSinkNeverErrors(t *testing.T) {
	var s NoopSink
	require.NoError(t, s.Write(123))
	require.NoError(t, s.Close())
}
