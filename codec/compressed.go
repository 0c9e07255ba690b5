package codec

import (
	"fmt"

	"github.com/andybalholm/brotli"
	"github.com/kjk/objstore/u"
)

// Zstd stores []byte compressed with zstd, prefixed with compressed size
type Zstd struct{}

func (Zstd) Save(w Writer, v []byte) error {
	d, err := u.ZstdCompressData(v)
	if err != nil {
		return err
	}
	return WriteBody(w, d)
}

func (Zstd) Read(r Reader) ([]byte, error) {
	d, err := ReadBody(r)
	if err != nil {
		return nil, err
	}
	res, err := u.ZstdDecompressData(d)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress of %d bytes failed: %w", len(d), err)
	}
	return res, nil
}

// Brotli stores []byte compressed with brotli, prefixed with compressed size
// Level 0 means brotli.DefaultCompression
type Brotli struct {
	Level int
}

func (b Brotli) level() int {
	if b.Level == 0 {
		return brotli.DefaultCompression
	}
	return b.Level
}

func (b Brotli) Save(w Writer, v []byte) error {
	d, err := u.BrCompressData(v, b.level())
	if err != nil {
		return err
	}
	return WriteBody(w, d)
}

func (b Brotli) Read(r Reader) ([]byte, error) {
	d, err := ReadBody(r)
	if err != nil {
		return nil, err
	}
	res, err := u.BrDecompressData(d)
	if err != nil {
		return nil, fmt.Errorf("brotli decompress of %d bytes failed: %w", len(d), err)
	}
	return res, nil
}

var (
	_ Externalizer[[]byte] = Zstd{}
	_ Externalizer[[]byte] = Brotli{}
)
