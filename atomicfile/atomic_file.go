package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	// ensure we implement desired interface
	_ io.WriteCloser = &File{}
)

// File allows writing to a file atomically
// i.e. if the while file is not written successfully, we make sure
// to clean things up
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	err     error

	tmpPath string // for debugging
}

// New creates new File
func New(path string) (*File, error) {
	dir, fName := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	tmpFile, err := os.CreateTemp(dir, fName)
	if err != nil {
		return nil, err
	}

	return &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

// WriteFile is like os.WriteFile but atomic: either path has the
// full content of d or it's not touched
func WriteFile(path string, d []byte) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first errro
	if f.err == nil {
		f.err = err
	}
	// cleanup i.e. delete temporary file
	_ = f.Close()
	return err
}

// Write writes data to a file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

func (f *File) Sync() error {
	if f.err != nil {
		return f.err
	}
	err := f.tmpFile.Sync()
	return f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created.
// Use it with defer to ensure cleanup in case of a panic on the
// same goroutine that happens before Close.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil {
		return
	}
	if f.alreadyClosed() {
		return
	}

	f.err = ErrCancelled
	_ = f.Close()
}

// Close closes the file. Can be called multiple times to make it
// easier to use via defer
func (f *File) Close() error {
	if f.alreadyClosed() {
		// return the first error we encountered
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	// if there was an error during write, return that error
	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}

	if err == nil {
		// this will over-write dstPath (if it exists)
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
		// for extra protection against crashes elsewhere,
		// sync directory after rename
		fdir, _ := os.Open(f.dir)
		if fdir != nil {
			// ignore errors as those are a nice have, not must have
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}

	if f.err == nil {
		f.err = err
	}
	return f.err
}
