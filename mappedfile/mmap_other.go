//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package mappedfile

import (
	"io"
	"os"
)

// no mmap: keep a copy of the file in memory and write it back on sync

func mapFile(f *os.File, size int64, _ bool) ([]byte, error) {
	d := make([]byte, size)
	_, err := f.ReadAt(d, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return d, nil
}

func syncFile(f *os.File, d []byte) error {
	if _, err := f.WriteAt(d, 0); err != nil {
		return err
	}
	return f.Sync()
}

func unmapFile(f *os.File, d []byte, writable bool) error {
	if !writable {
		return nil
	}
	return syncFile(f, d)
}
