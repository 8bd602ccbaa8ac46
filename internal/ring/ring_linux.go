//go:build linux

package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// create allocates a length-byte memfd and maps it Mirrors times back to
// back into a single reserved virtual address range, using memfd_create
// and MAP_FIXED the way the reference implementation uses shm_open and
// multiple fixed mmaps over POSIX shared memory.
func create(length int) (*Buffer, error) {
	fd, err := unix.MemfdCreate("staticd-ring", 0)
	if err != nil {
		return nil, fmt.Errorf("ring: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: ftruncate: %w", err)
	}

	// Reserve Mirrors*length contiguous bytes of address space with no
	// access rights, then overlay each window with a fixed, shared
	// mapping of the same memfd so all windows alias the same pages.
	reserve, err := unix.Mmap(-1, 0, Mirrors*length, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: reserve address space: %w", err)
	}
	base := uintptr(unsafe.Pointer(&reserve[0]))

	for i := 0; i < Mirrors; i++ {
		addr := base + uintptr(i*length)
		_, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, uintptr(fd), 0)
		if errno != 0 {
			unix.Munmap(reserve)
			unix.Close(fd)
			return nil, fmt.Errorf("ring: mirror mapping %d: %w", i, errno)
		}
	}

	return &Buffer{length: length, fd: fd, mem: reserve}, nil
}

func (b *Buffer) close() error {
	var err error
	if b.mem != nil {
		if uerr := unix.Munmap(b.mem); uerr != nil {
			err = fmt.Errorf("ring: munmap: %w", uerr)
		}
		b.mem = nil
	}
	if b.fd != 0 {
		unix.Close(b.fd)
		b.fd = 0
	}
	return err
}
