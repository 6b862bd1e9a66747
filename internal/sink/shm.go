package sink

/*
#cgo LDFLAGS: -lrt

#include <stdlib.h>
#include <stdint.h>
#include <sys/mman.h>
#include <fcntl.h>
#include <unistd.h>
#include <string.h>
#include <errno.h>

// open_scalar_shm creates (or opens) a 4-byte POSIX shared memory
// segment for the smoothed breath value, mirroring the
// shm_open/mmap pattern internal/shm's frame reader uses, sized down
// from a multi-megabyte ring buffer to a single int32 slot.
void* open_scalar_shm(const char* name, int* fd_out) {
    int fd = shm_open(name, O_CREAT | O_RDWR, 0666);
    if (fd == -1) {
        return NULL;
    }
    if (ftruncate(fd, 4) == -1) {
        close(fd);
        return NULL;
    }
    void* addr = mmap(NULL, 4, PROT_READ | PROT_WRITE, MAP_SHARED, fd, 0);
    if (addr == MAP_FAILED) {
        close(fd);
        return NULL;
    }
    *fd_out = fd;
    return addr;
}

void write_scalar_shm(void* addr, int32_t value) {
    memcpy(addr, &value, sizeof(int32_t));
}

void close_scalar_shm(void* addr, int fd, const char* name) {
    if (addr != NULL) {
        munmap(addr, 4);
    }
    if (fd >= 0) {
        close(fd);
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// ShmSink writes the breath scalar into a 4-byte POSIX shared memory
// segment for cross-process consumers, adapted from
// internal/shm/reader.go's cgo shm_open/mmap pattern: that file reads
// a 30-slot H.264 frame ring buffer; this one writes a single int32
// slot for an external scalar consumer instead.
type ShmSink struct {
	mu   sync.Mutex
	addr unsafe.Pointer
	fd   C.int
	name string
}

// NewShmSink opens (creating if necessary) the named shared memory
// segment.
func NewShmSink(name string) (*ShmSink, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var fd C.int
	addr := C.open_scalar_shm(cname, &fd)
	if addr == nil {
		return nil, fmt.Errorf("sink: failed to open shared memory %q", name)
	}
	return &ShmSink{addr: addr, fd: fd, name: name}, nil
}

func (s *ShmSink) Write(value int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return fmt.Errorf("sink: shared memory %q is closed", s.name)
	}
	C.write_scalar_shm(s.addr, C.int32_t(value))
	return nil
}

func (s *ShmSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return nil
	}
	cname := C.CString(s.name)
	defer C.free(unsafe.Pointer(cname))
	C.close_scalar_shm(s.addr, s.fd, cname)
	s.addr = nil
	return nil
}
