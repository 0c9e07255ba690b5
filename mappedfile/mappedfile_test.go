package mappedfile

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjk/objstore/require"
)

func openTest(t *testing.T, pageSize int) (*File, string) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path, &Options{PageSize: pageSize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, path
}

func readAll(t *testing.T, f *File) []byte {
	d := make([]byte, f.Length())
	n, err := f.ReadAt(d, 0)
	if err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(d), n)
	return d
}

func TestOpenNew(t *testing.T) {
	f, path := openTest(t, 4096)
	require.Equal(t, int64(0), f.Length())
	require.Equal(t, int64(4096), f.MappedSize())
	require.Equal(t, 4096, f.PageSize())
	require.Equal(t, path, f.Path())
	d, err := os.ReadFile(path + ".len")
	require.NoError(t, err)
	require.Equal(t, "0\n", string(d))
}

func TestPutReadAt(t *testing.T) {
	f, _ := openTest(t, 4096)
	require.NoError(t, f.Put(0, []byte("hello")))
	require.NoError(t, f.Put(5, []byte(" world")))
	require.Equal(t, int64(11), f.Length())
	require.Equal(t, "hello world", string(readAll(t, f)))

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// reads are bounded by logical length, not the mapping
	n, err = f.ReadAt(buf, 8)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 3, n)
	_, err = f.ReadAt(buf, 11)
	require.Equal(t, io.EOF, err)
	_, err = f.ReadAt(buf, -1)
	require.Error(t, err)
	require.Error(t, f.Put(-1, []byte("x")))
}

func TestGrow(t *testing.T) {
	f, _ := openTest(t, 4096)
	d := make([]byte, 10000)
	rand.Read(d)
	require.NoError(t, f.Put(0, d))
	// 4096 doubled is 8192, not enough, rounded up to pages
	require.Equal(t, int64(12288), f.MappedSize())
	require.Equal(t, int64(10000), f.Length())
	require.True(t, bytes.Equal(d, readAll(t, f)))

	require.NoError(t, f.Put(12288, []byte{1}))
	require.Equal(t, int64(24576), f.MappedSize())
	require.Equal(t, int64(12289), f.Length())
}

func TestPages(t *testing.T) {
	f, _ := openTest(t, 16)
	d := []byte("0123456789abcdefghijklmnopqrstuv")
	require.NoError(t, f.Put(0, d))

	p, err := f.Page(20)
	require.NoError(t, err)
	require.Equal(t, int64(16), p.Offset)
	require.Equal(t, int64(32), p.End())
	require.Equal(t, "ghijklmnopqrstuv", string(p.Data))
	p.Release()
	require.Nil(t, p.Data)

	p, err = f.Page(0)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef", string(p.Data))
	p.Release()

	_, err = f.Page(f.MappedSize())
	require.Error(t, err)
	_, err = f.Page(-1)
	require.Error(t, err)
}

func TestPageDoubleReleasePanics(t *testing.T) {
	f, _ := openTest(t, 16)
	p, err := f.Page(0)
	require.NoError(t, err)
	p.Release()
	defer func() {
		require.NotNil(t, recover())
	}()
	p.Release()
}

func TestForceAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path, &Options{PageSize: 64})
	require.NoError(t, err)
	require.NoError(t, f.Put(0, []byte("persisted")))
	require.NoError(t, f.Force())
	d, err := os.ReadFile(path + ".len")
	require.NoError(t, err)
	require.Equal(t, "9\n", string(d))
	require.NoError(t, f.Put(9, []byte(" more")))
	require.NoError(t, f.Close())

	f, err = Open(path, &Options{PageSize: 64})
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, int64(14), f.Length())
	require.Equal(t, "persisted more", string(readAll(t, f)))
}

func TestClear(t *testing.T) {
	f, path := openTest(t, 64)
	require.NoError(t, f.Put(0, make([]byte, 1000)))
	require.NoError(t, f.Clear())
	require.Equal(t, int64(0), f.Length())
	require.Equal(t, int64(64), f.MappedSize())
	require.Equal(t, int64(64), statSize(os.Stat(path)))
	require.NoError(t, f.Put(0, []byte("abc")))
	require.Equal(t, "abc", string(readAll(t, f)))
}

func statSize(st os.FileInfo, err error) int64 {
	if err != nil {
		return -1
	}
	return st.Size()
}

func TestClosed(t *testing.T) {
	f, _ := openTest(t, 64)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	require.ErrorIs(t, f.Put(0, []byte("x")), ErrClosed)
	_, err := f.ReadAt(make([]byte, 1), 0)
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.Page(0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.Force(), ErrClosed)
	require.ErrorIs(t, f.Clear(), ErrClosed)
}

func TestMissingLenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("raw bytes"), 0644))
	f, err := Open(path, &Options{PageSize: 64})
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, int64(9), f.Length())
	require.Equal(t, "raw bytes", string(readAll(t, f)))
}

func TestBadLenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	require.NoError(t, os.WriteFile(path+".len", []byte("100\n"), 0644))
	_, err := Open(path, nil)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path+".len", []byte("not a number"), 0644))
	_, err = Open(path, nil)
	require.Error(t, err)

	_, err = Open(path, &Options{PageSize: -1})
	require.Error(t, err)
}

func TestNotMapped(t *testing.T) {
	f, _ := openTest(t, 64)
	require.NoError(t, f.Put(0, []byte("abc")))
	// state after a failed remap
	data := f.data
	f.data = nil
	_, err := f.ReadAt(make([]byte, 3), 0)
	require.Error(t, err)
	require.Error(t, f.Put(3, []byte("d")))
	_, err = f.Page(0)
	require.Error(t, err)
	require.Error(t, f.Force())
	f.data = data
	require.Equal(t, "abc", string(readAll(t, f)))
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	_, err := Open(path, &Options{ReadOnly: true})
	require.Error(t, err)

	// file without .len, not a multiple of page size
	require.NoError(t, os.WriteFile(path, []byte("raw bytes"), 0644))
	f, err := Open(path, &Options{PageSize: 64, ReadOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(9), f.Length())
	require.Equal(t, "raw bytes", string(readAll(t, f)))
	p, err := f.Page(4)
	require.NoError(t, err)
	require.Equal(t, "raw bytes", string(p.Data))
	p.Release()
	require.ErrorIs(t, f.Put(9, []byte("x")), ErrReadOnly)
	require.ErrorIs(t, f.Force(), ErrReadOnly)
	require.ErrorIs(t, f.Clear(), ErrReadOnly)
	require.NoError(t, f.Close())

	require.Equal(t, int64(9), statSize(os.Stat(path)))
	_, err = os.Stat(path + ".len")
	require.True(t, os.IsNotExist(err))

	// .len is respected
	require.NoError(t, os.WriteFile(path+".len", []byte("3\n"), 0644))
	f, err = Open(path, &Options{ReadOnly: true})
	require.NoError(t, err)
	require.Equal(t, "raw", string(readAll(t, f)))
	require.NoError(t, f.Close())
	require.Equal(t, int64(9), statSize(os.Stat(path)))

	// empty file
	empty := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	f, err = Open(empty, &Options{ReadOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(0), f.Length())
	_, err = f.ReadAt(make([]byte, 1), 0)
	require.Equal(t, io.EOF, err)
	require.NoError(t, f.Close())
	require.Equal(t, int64(0), statSize(os.Stat(empty)))
}
