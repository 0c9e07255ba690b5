package siser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// longest header we accept, "--- ${size} ${timestamp} ${name}\n"
const maxHeaderSize = 4096

// MaxDataSize is the largest record data Reader will allocate for
const MaxDataSize = 1 << 30

// ErrTooLarge is returned when a header claims more than MaxDataSize bytes
var ErrTooLarge = errors.New("siser: record too large")

// ByteReader is what Reader reads from. *bufio.Reader, *bytes.Reader
// and objstore cursors implement it.
// Reader doesn't read ahead so after reading a record the underlying
// reader is positioned exactly at the start of the next record.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// Reader is for reading (deserializing) records from a ByteReader
type Reader struct {
	r ByteReader

	// hints that the data was written without a timestamp
	// (see Writer.NoTimestamp). We're permissive i.e. we'll
	// read timestamp if it's written even if NoTimestamp is true
	NoTimestamp bool

	// Record is available after ReadNextRecord().
	// It's over-written in next ReadNextRecord().
	Record *ReadRecord

	// Data / Name / Timestampe are available after ReadNextData.
	// They are over-written in next ReadNextData.
	Data      []byte
	Name      string
	Timestamp time.Time

	// position of the current record within the reader.
	// We keep track of it so that callers can index records
	// by offset and seek to it
	CurrRecordPos int64

	// position of the next record within the reader.
	NextRecordPos int64

	hdr []byte
	err error

	// true if reached end of input at record boundary
	done bool
}

// NewReader creates a new reader
func NewReader(r ByteReader) *Reader {
	return &Reader{
		r:      r,
		Record: &ReadRecord{},
	}
}

// Done returns true if we're finished reading from the reader
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

var hdrPrefix = []byte("--- ")

// readHeader reads up to and including '\n'
// io.EOF only if there was no data at all
func (r *Reader) readHeader() ([]byte, error) {
	r.hdr = r.hdr[:0]
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(r.hdr) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		r.hdr = append(r.hdr, b)
		if b == '\n' {
			return r.hdr, nil
		}
		if len(r.hdr) > maxHeaderSize {
			return nil, fmt.Errorf("header longer than %d bytes", maxHeaderSize)
		}
	}
}

// ReadNextData reads next block from the reader, returns false
// when no more record. If returns false, check Err() to see
// if there were errors.
// After reading Data containst data, and Timestamp and (optional) Name
// contain meta-data
func (r *Reader) ReadNextData() bool {
	if r.Done() {
		return false
	}
	r.Name = ""
	r.Timestamp = zeroTime
	r.CurrRecordPos = r.NextRecordPos

	// read header in the format:
	// "--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n"
	// or (if NoTimestamp):
	// "--- ${size} ${name}\n"
	// ${name} is optional
	hdr, err := r.readHeader()
	if err != nil {
		if err == io.EOF {
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	recSize := len(hdr)

	// for backwards compatibility, "--- " header is optional
	hdr = bytes.TrimPrefix(hdr, hdrPrefix)

	rest := hdr[:len(hdr)-1] // remove '\n' from end
	idx := bytes.IndexByte(rest, ' ')
	var dataSize []byte
	if idx == -1 {
		if !r.NoTimestamp {
			// with timestamp, we need at least 2 values separated by space
			r.err = fmt.Errorf("unexpected header '%s'", string(hdr))
			return false
		}
		dataSize = rest
		rest = nil
	} else {
		dataSize = rest[:idx]
		rest = rest[idx+1:]
	}
	var name []byte
	var timestamp []byte
	idx = bytes.IndexByte(rest, ' ')
	if idx == -1 {
		if r.NoTimestamp {
			name = rest
		} else {
			timestamp = rest
		}
	} else {
		timestamp = rest[:idx]
		name = rest[idx+1:]
		if r.NoTimestamp && !isDigits(timestamp) {
			// name with spaces
			timestamp = nil
			name = rest
		}
	}

	size, err := strconv.ParseInt(string(dataSize), 10, 64)
	if err != nil || size < 0 {
		r.err = fmt.Errorf("unexpected header '%s'", string(hdr))
		return false
	}
	if size > MaxDataSize {
		r.err = fmt.Errorf("%w: header '%s' claims %d bytes", ErrTooLarge, bytes.TrimSpace(hdr), size)
		return false
	}

	if len(timestamp) > 0 {
		timeMs, err := strconv.ParseInt(string(timestamp), 10, 64)
		if err != nil {
			r.err = fmt.Errorf("unexpected header '%s'", string(hdr))
			return false
		}
		r.Timestamp = TimeFromUnixMillisecond(timeMs)
	}
	r.Name = string(name)

	// we try to re-use r.Data as long as it doesn't grow too much
	// (limit to 1 MB)
	if cap(r.Data) > 1024*1024 {
		r.Data = nil
	}
	if size > int64(cap(r.Data)) {
		r.Data = make([]byte, size)
	} else {
		r.Data = r.Data[:size]
	}
	n, err := io.ReadFull(r.r, r.Data)
	if err != nil {
		// header promised data so end of input is a truncated record
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	recSize += n

	// account for the fact that for readability we might
	// have padded data with '\n'
	// same as needsNewline logic in Writer.Write
	needsNewline := (n > 0) && (r.Data[n-1] != '\n')
	if needsNewline {
		b, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			r.err = err
			return false
		}
		if b != '\n' {
			r.err = fmt.Errorf("expected '\\n' after %d bytes of data, got 0x%x", n, b)
			return false
		}
		recSize++
	}
	r.NextRecordPos += int64(recSize)
	return true
}

// ReadNextRecord reads a key / value record.
// Returns false if there are no more record.
// Check Err() for errors.
// After reading information is in Record (valid until
// next read).
func (r *Reader) ReadNextRecord() bool {
	ok := r.ReadNextData()
	if !ok {
		return false
	}

	_, r.err = UnmarshalRecord(r.Data, r.Record)
	if r.err != nil {
		return false
	}
	r.Record.Name = r.Name
	r.Record.Timestamp = r.Timestamp
	return true
}

// Err returns error from last Read. We swallow io.EOF at record
// boundary to make it easier to use. End of input in the middle
// of a record is io.ErrUnexpectedEOF
func (r *Reader) Err() error {
	return r.err
}
