// Package codec defines how values are turned into self-delimiting
// records and back.
//
// An Externalizer writes exactly one record per Save and consumes
// exactly one record per Read. Read must return io.EOF only when the
// input ended before the first byte of a record and io.ErrUnexpectedEOF
// when it ended inside one. Save must be deterministic: equal values
// serialize to equal bytes (objstore compares stored bytes against
// a fresh serialization).
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Writer is a sequential byte sink
type Writer interface {
	io.Writer
	io.ByteWriter
}

// Reader is a sequential byte source
type Reader interface {
	io.Reader
	io.ByteReader
}

type Externalizer[T any] interface {
	Save(w Writer, v T) error
	Read(r Reader) (T, error)
}

// maximum size of a length-prefixed body, protects against
// allocating huge buffers when reading corrupted data
const MaxBodySize = 1 << 30

var ErrTooLarge = errors.New("record body too large")

// Marshal returns serialized v
func Marshal[T any](ext Externalizer[T], v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := ext.Save(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes a single record from d
func Unmarshal[T any](ext Externalizer[T], d []byte) (T, error) {
	return ext.Read(bytes.NewReader(d))
}

func WriteUvarint(w Writer, n uint64) error {
	var buf [binary.MaxVarintLen64]byte
	i := binary.PutUvarint(buf[:], n)
	_, err := w.Write(buf[:i])
	return err
}

func WriteVarint(w Writer, n int64) error {
	var buf [binary.MaxVarintLen64]byte
	i := binary.PutVarint(buf[:], n)
	_, err := w.Write(buf[:i])
	return err
}

// ReadUvarint reads uvarint that starts a record.
// io.EOF if there was no data, io.ErrUnexpectedEOF if it was cut short
func ReadUvarint(r Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// WriteBody writes len(d) as uvarint followed by d
func WriteBody(w Writer, d []byte) error {
	if err := WriteUvarint(w, uint64(len(d))); err != nil {
		return err
	}
	_, err := w.Write(d)
	return err
}

// ReadBody reads data written with WriteBody.
// Only a missing size is io.EOF, everything after it is part
// of the record so end of input there is io.ErrUnexpectedEOF
func ReadBody(r Reader) ([]byte, error) {
	n, err := ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	d := make([]byte, n)
	if _, err = io.ReadFull(r, d); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return d, nil
}
