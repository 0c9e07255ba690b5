package objstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

const cursorBufSize = 512

// Cursor reads committed records from the backing store.
// It buffers up to 512 bytes ahead and never reads past the
// flushed length of the store at the time of positioning.
// Get one with Store.NewCursor(), use from a single goroutine
type Cursor struct {
	backing    BackingStore
	generation *atomic.Uint64
	// generation of the store when the cursor was created
	gen uint64

	pos int64
	end int64
	buf [cursorBufSize]byte
	r   int
	w   int
}

// cursors created by the pool belong to the generation
// in which the pool was created
func (s *Store[T]) newCursorPool() *sync.Pool {
	gen := s.generation.Load()
	return &sync.Pool{
		New: func() any {
			return &Cursor{
				backing:    s.backing,
				generation: &s.generation,
				gen:        gen,
			}
		},
	}
}

// NewCursor returns a cursor for ReadWith. It becomes invalid
// when the store is closed
func (s *Store[T]) NewCursor() *Cursor {
	return &Cursor{
		backing:    s.backing,
		generation: &s.generation,
		gen:        s.generation.Load(),
	}
}

func (c *Cursor) valid() bool {
	return c.generation.Load() == c.gen
}

func (c *Cursor) reset(pos, end int64) {
	c.pos = pos
	c.end = end
	c.r = 0
	c.w = 0
}

func (c *Cursor) fill() error {
	if !c.valid() {
		return ErrClosed
	}
	if c.pos >= c.end {
		return io.EOF
	}
	n := int(min(int64(cursorBufSize), c.end-c.pos))
	read, err := c.backing.ReadAt(c.buf[:n], c.pos)
	if read < n {
		if err == nil || err == io.EOF {
			err = fmt.Errorf("short read of %d bytes at %d, wanted %d", read, c.pos, n)
		}
		return ioErr("read", c.pos, err)
	}
	c.pos += int64(n)
	c.r = 0
	c.w = n
	return nil
}

func (c *Cursor) ReadByte() (byte, error) {
	if c.r == c.w {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	b := c.buf[c.r]
	c.r++
	return b, nil
}

func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.r == c.w {
		if len(p) >= cursorBufSize {
			// large read, bypass the buffer
			if !c.valid() {
				return 0, ErrClosed
			}
			if c.pos >= c.end {
				return 0, io.EOF
			}
			n := int(min(int64(len(p)), c.end-c.pos))
			read, err := c.backing.ReadAt(p[:n], c.pos)
			c.pos += int64(read)
			if read < n {
				if err == nil || err == io.EOF {
					err = fmt.Errorf("short read of %d bytes, wanted %d", read, n)
				}
				return read, ioErr("read", c.pos, err)
			}
			return n, nil
		}
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.buf[c.r:c.w])
	c.r += n
	return n, nil
}

// Read returns the value stored at addr.
// Returns error matching ErrNoData if there's no data at addr.
// With checkAccess it also verifies that the backing store
// has all the data the store considers flushed
func (s *Store[T]) Read(addr int64, checkAccess bool) (T, error) {
	return s.read(nil, addr, checkAccess)
}

// ReadWith is like Read but uses c instead of a pooled cursor
func (s *Store[T]) ReadWith(c *Cursor, addr int64, checkAccess bool) (T, error) {
	return s.read(c, addr, checkAccess)
}

func (s *Store[T]) read(c *Cursor, addr int64, checkAccess bool) (T, error) {
	var zero T
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return zero, ErrClosed
	}
	flushed := s.flushedLength
	if addr < 0 || addr >= flushed+int64(s.bufferPosition) {
		s.mu.RUnlock()
		return zero, noData(addr)
	}

	if addr >= flushed {
		defer s.mu.RUnlock()
		off := int(addr - flushed)
		if s.buf == nil || off > s.bufferPosition {
			return zero, noData(addr)
		}
		v, err := s.ext.Read(bytes.NewReader(s.buf[off:s.bufferPosition]))
		if err != nil {
			return zero, decodeErr("read", addr, err)
		}
		return v, nil
	}

	pool := s.cursors
	s.mu.RUnlock()

	if checkAccess {
		if n := s.backing.Length(); n < flushed {
			return zero, ioErr("read", addr, fmt.Errorf("backing store has %d bytes, expected at least %d", n, flushed))
		}
	}

	if c == nil {
		c = pool.Get().(*Cursor)
		defer pool.Put(c)
	}
	if !c.valid() {
		return zero, ErrClosed
	}
	c.reset(addr, flushed)
	v, err := s.ext.Read(c)
	if err != nil {
		return zero, decodeErr("read", addr, err)
	}
	return v, nil
}
