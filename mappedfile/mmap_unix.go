//go:build linux || darwin || freebsd || netbsd || openbsd

package mappedfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int64, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
}

func syncFile(_ *os.File, d []byte) error {
	return unix.Msync(d, unix.MS_SYNC)
}

func unmapFile(_ *os.File, d []byte, _ bool) error {
	return unix.Munmap(d)
}
