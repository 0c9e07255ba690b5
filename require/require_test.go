package require

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

// fakeT records failures instead of stopping the test
type fakeT struct {
	errors  int
	failNow int
}

func (f *fakeT) Errorf(format string, args ...interface{}) {
	f.errors++
}

func (f *fakeT) FailNow() {
	f.failNow++
}

func checkFails(t *testing.T, name string, fn func(t TestingT)) {
	ft := &fakeT{}
	fn(ft)
	if ft.errors == 0 || ft.failNow == 0 {
		t.Fatalf("%s: expected failure, got %d errors, %d FailNow() calls", name, ft.errors, ft.failNow)
	}
}

func checkPasses(t *testing.T, name string, fn func(t TestingT)) {
	ft := &fakeT{}
	fn(ft)
	if ft.errors != 0 || ft.failNow != 0 {
		t.Fatalf("%s: expected success, got %d errors, %d FailNow() calls", name, ft.errors, ft.failNow)
	}
}

func TestPassing(t *testing.T) {
	checkPasses(t, "Len", func(t TestingT) { Len(t, []int{1, 2}, 2) })
	checkPasses(t, "Nil", func(t TestingT) { Nil(t, []byte(nil)) })
	checkPasses(t, "NoError", func(t TestingT) { NoError(t, nil) })
	checkPasses(t, "Error", func(t TestingT) { Error(t, io.EOF) })
	checkPasses(t, "ErrorIs", func(t TestingT) { ErrorIs(t, fmt.Errorf("wrapped: %w", io.EOF), io.EOF) })
	checkPasses(t, "Equal", func(t TestingT) { Equal(t, []byte("ab"), []byte("ab")) })
	checkPasses(t, "NotEqual", func(t TestingT) { NotEqual(t, 1, 2) })
	checkPasses(t, "NotNil", func(t TestingT) { NotNil(t, io.EOF) })
	checkPasses(t, "True", func(t TestingT) { True(t, true) })
	checkPasses(t, "False", func(t TestingT) { False(t, false) })
}

func TestFailing(t *testing.T) {
	checkFails(t, "Len", func(t TestingT) { Len(t, []int{1, 2}, 3) })
	checkFails(t, "Nil", func(t TestingT) { Nil(t, io.EOF) })
	checkFails(t, "NoError", func(t TestingT) { NoError(t, io.EOF, "reading %s", "file") })
	checkFails(t, "Error", func(t TestingT) { Error(t, nil) })
	checkFails(t, "ErrorIs", func(t TestingT) { ErrorIs(t, errors.New("other"), io.EOF) })
	checkFails(t, "Equal", func(t TestingT) { Equal(t, int64(1), int64(2)) })
	checkFails(t, "NotEqual", func(t TestingT) { NotEqual(t, 1, 1) })
	checkFails(t, "NotNil", func(t TestingT) { NotNil(t, nil) })
	checkFails(t, "True", func(t TestingT) { True(t, false) })
	checkFails(t, "False", func(t TestingT) { False(t, true) })
}
