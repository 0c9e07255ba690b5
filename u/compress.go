package u

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func BrCompressData(d []byte, level int) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, level)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func BrDecompressData(d []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(d))
	return io.ReadAll(r)
}

// BrCompressReader compresses everything read from r
func BrCompressReader(r io.Reader, level int) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, level)
	_, err := io.Copy(w, r)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// in my tests:
	// - zstd.SpeedBestCompression is much slower and not much better
	// - single goroutine makes output depend only on input, which
	//   matters when comparing re-compressed values byte by byte
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func ZstdCompressData(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	w, err := zstdNewWriter(&dst)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	if err != nil {
		return nil, err
	}
	err = w.Close()
	if err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func ZstdDecompressData(d []byte) ([]byte, error) {
	r := bytes.NewReader(d)
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
