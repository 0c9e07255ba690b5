package require

import (
	"errors"
	"fmt"

	"github.com/alecthomas/assert"
)

// this is a subset of github.com/stretchr/testify/require
// on top of github.com/alecthomas/assert, only the functions I use.
// assert.Fail() calls t.FailNow() so every failed check stops the test

// TestingT is an interface wrapper around *testing.T
type TestingT = assert.TestingT

// Len asserts that the specified object has specific length.
// Len also fails if the object has a type that len() not accept.
//
//	require.Len(t, mySlice, 3)
func Len(t TestingT, object interface{}, length int, msgAndArgs ...interface{}) {
	assert.Len(t, object, length, msgAndArgs...)
}

// Nil asserts that the specified object is nil.
//
//	require.Nil(t, err)
func Nil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	assert.Nil(t, object, msgAndArgs...)
}

// NoError asserts that a function returned no error (i.e. `nil`).
//
//	actualObj, err := SomeFunction()
//	require.NoError(t, err)
func NoError(t TestingT, err error, msgAndArgs ...interface{}) {
	assert.NoError(t, err, msgAndArgs...)
}

// Error asserts that a function returned an error (i.e. not `nil`).
func Error(t TestingT, err error, msgAndArgs ...interface{}) {
	if err != nil {
		return
	}
	assert.Fail(t, "An error is expected but got nil.", msgAndArgs...)
	t.FailNow()
}

// ErrorIs asserts that errors.Is(err, target) is true
//
//	require.ErrorIs(t, err, objstore.ErrNoData)
func ErrorIs(t TestingT, err error, target error, msgAndArgs ...interface{}) {
	if errors.Is(err, target) {
		return
	}
	msg := fmt.Sprintf("error '%v' is not '%v'", err, target)
	assert.Fail(t, msg, msgAndArgs...)
	t.FailNow()
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, 123, 123)
//
// Pointer variable equality is determined based on the equality of the
// referenced values (as opposed to the memory addresses).
func Equal(t TestingT, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// NotEqual asserts that the specified values are NOT equal.
//
//	require.NotEqual(t, obj1, obj2)
func NotEqual(t TestingT, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	assert.NotEqual(t, expected, actual, msgAndArgs...)
}

// NotNil asserts that the specified object is not nil.
//
//	require.NotNil(t, err)
func NotNil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	assert.NotNil(t, object, msgAndArgs...)
}

// True asserts that the specified value is true.
//
//	require.True(t, myBool)
func True(t TestingT, value bool, msgAndArgs ...interface{}) {
	assert.True(t, value, msgAndArgs...)
}

// False asserts that the specified value is false.
//
//	require.False(t, myBool)
func False(t TestingT, value bool, msgAndArgs ...interface{}) {
	assert.False(t, value, msgAndArgs...)
}
