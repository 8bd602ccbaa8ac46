//go:build !linux

package ring

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// create emulates the Linux memfd_create path with an unlinked temporary
// file, per the reference design notes: on platforms without anonymous
// shared memory, a single temp file mapped MAP_SHARED several times
// gives the same aliasing guarantee.
func create(length int) (*Buffer, error) {
	f, err := os.CreateTemp("", "staticd-ring-*")
	if err != nil {
		return nil, fmt.Errorf("ring: create backing file: %w", err)
	}
	os.Remove(f.Name())
	fd := int(f.Fd())

	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: ftruncate: %w", err)
	}

	reserve, err := unix.Mmap(-1, 0, Mirrors*length, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: reserve address space: %w", err)
	}
	base := uintptr(unsafe.Pointer(&reserve[0]))

	for i := 0; i < Mirrors; i++ {
		addr := base + uintptr(i*length)
		_, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED, uintptr(fd), 0)
		if errno != 0 {
			unix.Munmap(reserve)
			f.Close()
			return nil, fmt.Errorf("ring: mirror mapping %d: %w", i, errno)
		}
	}

	return &Buffer{length: length, fd: fd, mem: reserve, file: f}, nil
}

func (b *Buffer) close() error {
	var err error
	if b.mem != nil {
		if uerr := unix.Munmap(b.mem); uerr != nil {
			err = fmt.Errorf("ring: munmap: %w", uerr)
		}
		b.mem = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	return err
}
