package u

import (
	"bytes"
	"os"
	"testing"

	"github.com/kjk/objstore/require"
)

func TestZstdRoundtrip(t *testing.T) {
	d, err := os.ReadFile("compress.go")
	require.NoError(t, err)
	c, err := ZstdCompressData(d)
	require.NoError(t, err)
	require.True(t, len(c) < len(d))
	// same input, same output
	c2, err := ZstdCompressData(d)
	require.NoError(t, err)
	require.True(t, bytes.Equal(c, c2))
	d2, err := ZstdDecompressData(c)
	require.NoError(t, err)
	require.Equal(t, d, d2)
}

func TestBrotliRoundtrip(t *testing.T) {
	d, err := os.ReadFile("compress.go")
	require.NoError(t, err)
	c, err := BrCompressData(d, 6)
	require.NoError(t, err)
	d2, err := BrDecompressData(c)
	require.NoError(t, err)
	require.Equal(t, d, d2)

	f, err := os.Open("compress.go")
	require.NoError(t, err)
	defer f.Close()
	c2, err := BrCompressReader(f, 5)
	require.NoError(t, err)
	d3, err := BrDecompressData(c2)
	require.NoError(t, err)
	require.Equal(t, d, d3)
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "12 bytes", FormatSize(12))
	require.Equal(t, "1 kB", FormatSize(1024))
	require.Equal(t, "1.50 MB", FormatSize(1024*1024*3/2))
}

func TestRoundUp(t *testing.T) {
	require.Equal(t, int64(0), RoundUp(0, 4096))
	require.Equal(t, int64(4096), RoundUp(1, 4096))
	require.Equal(t, int64(4096), RoundUp(4096, 4096))
	require.Equal(t, int64(8192), RoundUp(4097, 4096))
}
