package objstore

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjk/objstore/codec"
	"github.com/kjk/objstore/log"
	"github.com/kjk/objstore/mappedfile"
	"github.com/kjk/objstore/u"
)

const (
	DefaultBufferSize = 4096
)

// BackingStore is a file that can be read and written at any offset
// and grows when written past its end.
// *mappedfile.File implements it
type BackingStore interface {
	// logical length of the data
	Length() int64
	Put(off int64, d []byte) error
	ReadAt(p []byte, off int64) (int, error)
	// returns locked page containing off, must be released with Page.Release()
	Page(off int64) (*mappedfile.Page, error)
	Force() error
	Clear() error
	Close() error
}

var _ BackingStore = (*mappedfile.File)(nil)

type Options struct {
	// capacity of the write buffer, DefaultBufferSize if 0
	BufferSize int
	// options for mappedfile.Open, only used by Open
	MappedFile *mappedfile.Options
}

type Store[T any] struct {
	backing    BackingStore
	ext        codec.Externalizer[T]
	bufferSize int

	mu sync.RWMutex
	// allocated on first buffered append
	buf            []byte
	bufferPosition int
	flushedLength  int64
	// serialized value being appended
	scratch bytes.Buffer
	closed  bool

	// incremented by Close, invalidates cursors
	generation atomic.Uint64
	cursors    *sync.Pool
}

// New creates a store over backing. The store doesn't own backing
// but Close() closes it
func New[T any](backing BackingStore, ext codec.Externalizer[T], opts *Options) *Store[T] {
	if opts == nil {
		opts = &Options{}
	}
	u.PanicIf(opts.BufferSize < 0, "negative buffer size %d", opts.BufferSize)
	res := &Store[T]{
		backing:       backing,
		ext:           ext,
		bufferSize:    opts.BufferSize,
		flushedLength: backing.Length(),
	}
	if res.bufferSize == 0 {
		res.bufferSize = DefaultBufferSize
	}
	res.cursors = res.newCursorPool()
	return res
}

// Open opens or creates a store in a memory-mapped file at path
func Open[T any](path string, ext codec.Externalizer[T], opts *Options) (*Store[T], error) {
	var mfOpts *mappedfile.Options
	if opts != nil {
		mfOpts = opts.MappedFile
	}
	f, err := mappedfile.Open(path, mfOpts)
	if err != nil {
		return nil, err
	}
	s := New(f, ext, opts)
	log.Verbosef("objstore: opened '%s', %d bytes of data\n", path, s.flushedLength)
	return s, nil
}

// Append serializes v and returns the address at which it was stored
func (s *Store[T]) Append(v T) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	s.scratch.Reset()
	if err := s.ext.Save(&s.scratch, v); err != nil {
		return 0, err
	}
	d := s.scratch.Bytes()
	size := len(d)
	current := s.flushedLength + int64(s.bufferPosition)

	if size > s.bufferSize {
		if err := s.flushLocked(); err != nil {
			return 0, err
		}
		if err := s.backing.Put(current, d); err != nil {
			return 0, ioErr("append", current, err)
		}
		log.Verbosef("objstore: record of %s at %d written directly\n", u.FormatSize(int64(size)), current)
		s.flushedLength += int64(size)
		return current, nil
	}

	if size > s.bufferSize-s.bufferPosition {
		if err := s.flushLocked(); err != nil {
			return 0, err
		}
	}
	if s.buf == nil {
		s.buf = make([]byte, s.bufferSize)
	}
	copy(s.buf[s.bufferPosition:], d)
	s.bufferPosition += size
	return current, nil
}

func (s *Store[T]) flushLocked() error {
	if s.bufferPosition == 0 {
		return nil
	}
	if err := s.backing.Put(s.flushedLength, s.buf[:s.bufferPosition]); err != nil {
		return ioErr("flush", s.flushedLength, err)
	}
	s.flushedLength += int64(s.bufferPosition)
	s.bufferPosition = 0
	return nil
}

// Flush writes buffered records to the backing store
func (s *Store[T]) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

// Force flushes buffered records and syncs the backing store to disk
func (s *Store[T]) Force() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	timeStart := time.Now()
	if err := s.flushLocked(); err != nil {
		return err
	}
	if err := s.backing.Force(); err != nil {
		return ioErr("force", -1, err)
	}
	log.EventWithDuration("objstore.force", time.Since(timeStart), "length", s.flushedLength)
	return nil
}

// CurrentLength returns the length of data, including buffered data
func (s *Store[T]) CurrentLength() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushedLength + int64(s.bufferPosition)
}

// FlushedLength returns the length of data in the backing store
func (s *Store[T]) FlushedLength() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushedLength
}

// Clear removes all data. Buffered records are discarded
func (s *Store[T]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.bufferPosition = 0
	if err := s.backing.Clear(); err != nil {
		return ioErr("clear", -1, err)
	}
	log.Verbosef("objstore: cleared %d bytes\n", s.flushedLength)
	s.flushedLength = 0
	return nil
}

// Close flushes buffered records and closes the backing store.
// The backing store is closed even if flushing fails.
// If both fail, the error is *CloseError
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	flushErr := s.flushLocked()
	closeErr := ioErr("close", -1, s.backing.Close())

	s.closed = true
	s.buf = nil
	s.bufferPosition = 0
	s.generation.Add(1)
	s.cursors = nil

	log.Event("objstore.close", "length", s.flushedLength, "ok", flushErr == nil && closeErr == nil)
	if flushErr != nil && closeErr != nil {
		log.Errorf("objstore: close failed: flush: %s, close: %s\n", flushErr, closeErr)
		return &CloseError{FlushErr: flushErr, CloseErr: closeErr}
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
