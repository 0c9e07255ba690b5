package objstore

import (
	"bufio"
	"context"
	"io"
	"iter"
)

const scanBufSize = 4096

// countingReader tracks how many bytes were consumed
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// backingReaderAt marks backing store failures as *IOError
// so that they're not reported as corrupted records
type backingReaderAt struct {
	b BackingStore
}

func (r backingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.b.ReadAt(p, off)
	if err != nil && err != io.EOF {
		err = ioErr("read", off, err)
	}
	return n, err
}

// ProcessAll calls fn for every flushed record, in the order they were
// appended, with the address returned by Append.
// Returns false if fn returned false or ctx was cancelled.
// Buffered records must be flushed first, otherwise returns ErrUnflushed
func (s *Store[T]) ProcessAll(ctx context.Context, fn func(addr int64, v T) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	closed := s.closed
	unflushed := s.bufferPosition > 0
	flushed := s.flushedLength
	s.mu.RUnlock()
	if closed {
		return false, ErrClosed
	}
	if unflushed {
		return false, ErrUnflushed
	}
	if flushed == 0 {
		return true, nil
	}

	r := &countingReader{
		r: bufio.NewReaderSize(io.NewSectionReader(backingReaderAt{s.backing}, 0, flushed), scanBufSize),
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		addr := r.n
		v, err := s.ext.Read(r)
		if err == io.EOF && r.n == addr {
			return true, nil
		}
		if err != nil {
			return false, decodeErr("scan", addr, err)
		}
		if !fn(addr, v) {
			return false, nil
		}
	}
}

// All returns an iterator over flushed records.
// Call the returned error function after iteration to check for errors
func (s *Store[T]) All(ctx context.Context) (iter.Seq2[int64, T], func() error) {
	var iterErr error
	seq := func(yield func(int64, T) bool) {
		_, iterErr = s.ProcessAll(ctx, yield)
	}
	return seq, func() error { return iterErr }
}
