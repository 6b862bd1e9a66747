// Package sink implements the external scalar sink collaborator: a
// 4-byte memory region updated with the latest smoothed breath value,
// best-effort, write failures ignored by the caller. Selection between
// implementations is a constructor choice at startup.
package sink

import (
	"os"
	"sync"

	"github.com/kujaw077/Reimagining-Breath/internal/logger"
)

// ScalarSink is the collaborator interface the processing loop writes
// the smoothed breath value to every time one is emitted.
type ScalarSink interface {
	Write(value int32) error
	Close() error
}

// NoopSink discards every write; used when no external sink is
// configured.
type NoopSink struct{}

func (NoopSink) Write(int32) error { return nil }
func (NoopSink) Close() error      { return nil }

// FileSink best-effort overwrites a 4-byte little-endian value in a
// regular file on every Write, for hosts without POSIX shared memory
// (or for tests). Failures are logged, never propagated as fatal.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (creating if necessary) a 4-byte scratch file at
// path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(4); err != nil {
		f.Close()
		return nil, err
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(value int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf [4]byte
	putLE32(buf[:], value)
	if _, err := s.file.WriteAt(buf[:], 0); err != nil {
		logger.Warn("ScalarSink", "file write failed: %v", err)
		return err
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func putLE32(buf []byte, v int32) {
	u := uint32(v)
	buf[0] = byte(u)
	buf[1] = byte(u >> 8)
	buf[2] = byte(u >> 16)
	buf[3] = byte(u >> 24)
}
