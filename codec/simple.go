package codec

import (
	"encoding/binary"
)

// String serializes string as uvarint length followed by bytes
type String struct{}

func (String) Save(w Writer, v string) error {
	if err := WriteUvarint(w, uint64(len(v))); err != nil {
		return err
	}
	_, err := w.Write([]byte(v))
	return err
}

func (String) Read(r Reader) (string, error) {
	d, err := ReadBody(r)
	if err != nil {
		return "", err
	}
	return string(d), nil
}

// Bytes serializes []byte as uvarint length followed by bytes
type Bytes struct{}

func (Bytes) Save(w Writer, v []byte) error {
	return WriteBody(w, v)
}

func (Bytes) Read(r Reader) ([]byte, error) {
	return ReadBody(r)
}

// Int64 serializes int64 as zig-zag varint
type Int64 struct{}

func (Int64) Save(w Writer, v int64) error {
	return WriteVarint(w, v)
}

func (Int64) Read(r Reader) (int64, error) {
	return binary.ReadVarint(r)
}

// Uint64 serializes uint64 as uvarint
type Uint64 struct{}

func (Uint64) Save(w Writer, v uint64) error {
	return WriteUvarint(w, v)
}

func (Uint64) Read(r Reader) (uint64, error) {
	return ReadUvarint(r)
}

var (
	_ Externalizer[string] = String{}
	_ Externalizer[[]byte] = Bytes{}
	_ Externalizer[int64]  = Int64{}
	_ Externalizer[uint64] = Uint64{}
)
