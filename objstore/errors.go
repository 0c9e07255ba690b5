package objstore

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNoData is returned when an address doesn't point to stored data
	ErrNoData = errors.New("no data at address")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrUnflushed is returned by ProcessAll when there is buffered data
	ErrUnflushed = errors.New("store has unflushed data, call Flush() or Force() first")
	// ErrCorrupted means that a record ends past the end of data
	// or can't be decoded
	ErrCorrupted = errors.New("truncated or corrupted record")
)

// IOError is a failure of the backing store or corrupted data
type IOError struct {
	Op   string
	Addr int64
	Err  error
}

func (e *IOError) Error() string {
	if e.Addr < 0 {
		return fmt.Sprintf("objstore: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("objstore: %s at %d failed: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioErr(op string, addr int64, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Addr: addr, Err: err}
}

// decodeErr wraps an error from decoding the record at addr.
// Errors from the backing store are already *IOError
func decodeErr(op string, addr int64, err error) error {
	var ioe *IOError
	if errors.Is(err, ErrClosed) || errors.As(err, &ioe) {
		return err
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return ioErr(op, addr, fmt.Errorf("%w: %w", ErrCorrupted, err))
}

// CloseError is returned by Close when both flushing the buffer
// and closing the backing store failed
type CloseError struct {
	FlushErr error
	CloseErr error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("objstore: close failed: flush: %v, close: %v", e.FlushErr, e.CloseErr)
}

func (e *CloseError) Unwrap() []error {
	return []error{e.FlushErr, e.CloseErr}
}

func noData(addr int64) error {
	return fmt.Errorf("%w: %d", ErrNoData, addr)
}
