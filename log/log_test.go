package log

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kjk/objstore/require"
	"github.com/kjk/objstore/siser"
)

func TestMarshalEvent(t *testing.T) {
	tm := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	d := MarshalEvent("objstore.close", tm, "path", "data.bin", "length", 9100)
	r := siser.NewReader(bufio.NewReader(bytes.NewReader(d)))
	ok := r.ReadNextData()
	require.True(t, ok, "err: %v", r.Err())
	require.Equal(t, "objstore.close", r.Name)
	require.Equal(t, tm.UnixMilli(), r.Timestamp.UnixMilli())
	s := string(r.Data)
	require.True(t, strings.Contains(s, "data.bin"), "data: %s", s)
	require.True(t, strings.Contains(s, "9100"), "data: %s", s)
}

func TestMarshalEventOddArgsPanics(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	MarshalEvent("bad", time.Now(), "key")
}

func TestLogToDir(t *testing.T) {
	dir := t.TempDir()
	Output = nil
	defer func() {
		Close()
		Output = os.Stdout
	}()
	Init(&Config{Dir: dir})

	Logf("hello %d\n", 5)
	Event("objstore.force", "flushed", 100)
	IfErrf(os.ErrNotExist)
	require.False(t, IfErrf(nil))
	Close()

	name := time.Now().UTC().Format("2006-01-02") + ".txt"
	d, err := os.ReadFile(filepath.Join(dir, "log", name))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(d), "hello 5\n"))

	d, err = os.ReadFile(filepath.Join(dir, "events", name))
	require.NoError(t, err)
	require.True(t, bytes.Contains(d, []byte("objstore.force")))

	d, err = os.ReadFile(filepath.Join(dir, "errors", name))
	require.NoError(t, err)
	require.True(t, bytes.Contains(d, []byte(os.ErrNotExist.Error())))
}

func TestNilWriteDaily(t *testing.T) {
	var w *WriteDaily
	require.NoError(t, w.WriteString("foo"))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
}

func TestCallstack(t *testing.T) {
	cs := callstack(0)
	lines := strings.Split(cs, "\n")
	require.True(t, len(lines) > 1, "callstack: %s", cs)
	require.True(t, strings.Contains(lines[0], "log_test.go:"), "callstack: %s", cs)
}
