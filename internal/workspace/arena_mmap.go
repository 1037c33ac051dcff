//go:build linux || darwin

package workspace

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cbegin/synthcore-go/internal/logger"
)

func mapRegion(floats int) ([]float32, bool, func() error, error) {
	page := unix.Getpagesize()
	size := roundUp(floats*4, page)
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, nil, fmt.Errorf("workspace: mmap %d bytes: %w", size, err)
	}
	pinned := true
	if err := unix.Mlock(b); err != nil {
		// RLIMIT_MEMLOCK is often tiny; an unpinned arena still works.
		logger.L.Debug("workspace: mlock refused", "bytes", size, "err", err)
		pinned = false
	}
	f := unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
	unmap := func() error {
		if pinned {
			_ = unix.Munlock(b)
		}
		return unix.Munmap(b)
	}
	return f, pinned, unmap, nil
}
