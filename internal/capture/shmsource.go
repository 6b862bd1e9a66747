// Package capture implements the evmtype.FrameSource collaborator:
// pulling raw pixel frames out of a POSIX shared-memory ring buffer
// written by an upstream camera process. Adapted from
// internal/shm/reader.go's cgo shm_open/mmap/sem_wait plumbing, with
// the H.264 NAL-specific frame struct and format dispatch replaced by
// a raw BGR/gray pixel buffer every EVM algorithm can consume directly.
package capture

/*
#cgo LDFLAGS: -lrt -lpthread

#include <stdlib.h>
#include <stdint.h>
#include <time.h>
#include <sys/mman.h>
#include <fcntl.h>
#include <unistd.h>
#include <string.h>
#include <semaphore.h>
#include <errno.h>

#ifndef EINVAL
#define EINVAL 22
#endif

#define RING_BUFFER_SIZE 8
#define MAX_FRAME_SIZE (1920 * 1080 * 3)

typedef struct {
    uint64_t frame_number;
    struct timespec timestamp;
    int width;
    int height;
    int channels;
    size_t data_size;
    uint8_t data[MAX_FRAME_SIZE];
} EvmShmFrame;

typedef struct {
    volatile uint32_t write_index;
    uint8_t new_frame_sem[32];
    EvmShmFrame frames[RING_BUFFER_SIZE];
} EvmShmRing;

static EvmShmRing* evm_open_shm(const char* name) {
    int fd = shm_open(name, O_RDWR, 0666);
    if (fd == -1) {
        return NULL;
    }
    EvmShmRing* shm = (EvmShmRing*)mmap(
        NULL, sizeof(EvmShmRing), PROT_READ | PROT_WRITE, MAP_SHARED, fd, 0);
    close(fd);
    if (shm == MAP_FAILED) {
        return NULL;
    }
    return shm;
}

static int evm_wait_new_frame(EvmShmRing* shm, int timeout_ms) {
    if (shm == NULL) {
        return -EINVAL;
    }
    if (timeout_ms <= 0) {
        if (sem_wait((sem_t*)&shm->new_frame_sem) != 0) {
            return -errno;
        }
        return 0;
    }
    struct timespec ts;
    if (clock_gettime(CLOCK_REALTIME, &ts) != 0) {
        return -errno;
    }
    ts.tv_sec += timeout_ms / 1000;
    ts.tv_nsec += (timeout_ms % 1000) * 1000000;
    if (ts.tv_nsec >= 1000000000) {
        ts.tv_sec += 1;
        ts.tv_nsec -= 1000000000;
    }
    if (sem_timedwait((sem_t*)&shm->new_frame_sem, &ts) == -1) {
        return -errno;
    }
    return 0;
}

static void evm_close_shm(EvmShmRing* shm) {
    if (shm != NULL) {
        munmap((void*)shm, sizeof(EvmShmRing));
    }
}

static uint32_t evm_write_index(EvmShmRing* shm) {
    return shm->write_index;
}

static int evm_read_frame(EvmShmRing* shm, uint32_t index, EvmShmFrame* out) {
    if (index >= RING_BUFFER_SIZE) {
        return -1;
    }
    memcpy(out, &shm->frames[index], sizeof(EvmShmFrame));
    return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

const (
	ringBufferSize = 8
	maxFrameSize   = 1920 * 1080 * 3
	openRetries    = 30
)

// ShmSource reads the latest raw pixel frame out of a shared-memory
// ring buffer, implementing evmtype.FrameSource. Put is a no-op: the
// upstream writer owns its own buffers and never waits on Go to return
// anything.
type ShmSource struct {
	shm  *C.EvmShmRing
	name string
}

// NewShmSource opens shmName, retrying for up to openRetries seconds
// while the upstream camera process starts up.
func NewShmSource(shmName string) (*ShmSource, error) {
	if shmName == "" {
		shmName = "/evm_source"
	}

	cName := C.CString(shmName)
	defer C.free(unsafe.Pointer(cName))

	var shm *C.EvmShmRing
	for i := 0; i < openRetries; i++ {
		shm = C.evm_open_shm(cName)
		if shm != nil {
			break
		}
		if i%5 == 0 {
			logger.Info("ShmSource", "waiting for shared memory %s to appear... (%d/%d)", shmName, i+1, openRetries)
		}
		time.Sleep(time.Second)
	}
	if shm == nil {
		return nil, fmt.Errorf("capture: failed to open shared memory %s (timeout)", shmName)
	}

	logger.Info("ShmSource", "opened shared memory %s", shmName)
	return &ShmSource{shm: shm, name: shmName}, nil
}

// Get blocks until the upstream writer signals a new frame (or ctx is
// canceled), then reads it out of the ring buffer.
func (s *ShmSource) Get(ctx context.Context) (evmtype.Frame, bool) {
	for {
		select {
		case <-ctx.Done():
			return evmtype.Frame{}, false
		default:
		}

		result := int(C.evm_wait_new_frame(s.shm, 200))
		if result != 0 {
			continue // timeout or interrupted: re-check ctx and retry
		}

		frame, ok := s.readLatest()
		if ok {
			return frame, true
		}
	}
}

// Put is a no-op; the shared-memory writer manages its own buffers.
func (s *ShmSource) Put(evmtype.Frame) bool { return true }

func (s *ShmSource) readLatest() (evmtype.Frame, bool) {
	writeIndex := uint32(C.evm_write_index(s.shm))
	if writeIndex == 0 {
		return evmtype.Frame{}, false
	}

	index := (writeIndex - 1) % ringBufferSize

	var cFrame C.EvmShmFrame
	if C.evm_read_frame(s.shm, C.uint32_t(index), &cFrame) != 0 {
		return evmtype.Frame{}, false
	}

	width := int(cFrame.width)
	height := int(cFrame.height)
	channels := int(cFrame.channels)
	dataSize := int(cFrame.data_size)
	if width <= 0 || height <= 0 || channels <= 0 || dataSize != width*height*channels {
		return evmtype.Frame{}, false
	}

	data := make([]byte, dataSize)
	cData := (*[maxFrameSize]byte)(unsafe.Pointer(&cFrame.data[0]))[:dataSize:dataSize]
	copy(data, cData)

	cs := evmtype.ColorSpaceBGR
	if channels == 1 {
		cs = evmtype.ColorSpaceGray
	}

	return evmtype.Frame{
		Width: width, Height: height, Channels: channels,
		ColorSpace: cs, Pix8: data,
	}, true
}

// Close unmaps the shared-memory segment.
func (s *ShmSource) Close() error {
	if s.shm != nil {
		C.evm_close_shm(s.shm)
		s.shm = nil
	}
	return nil
}
