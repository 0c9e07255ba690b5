package siser

import (
	"fmt"
	"time"
)

func fmtArgs(args ...interface{}) string {
	if len(args) == 0 {
		return ""
	}
	format := args[0].(string)
	if len(args) == 1 {
		return format
	}
	return fmt.Sprintf(format, args[1:]...)
}

func panicWithMsg(defaultMsg string, args ...interface{}) {
	s := fmtArgs(args...)
	if s == "" {
		s = defaultMsg
	}
	panic(s)
}

func panicIf(cond bool, args ...interface{}) {
	if !cond {
		return
	}
	panicWithMsg("fatalIf: condition failed", args...)
}

func isDigits(d []byte) bool {
	if len(d) == 0 {
		return false
	}
	for _, b := range d {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// TimeToUnixMillisecond converts t into Unix epoch time in milliseconds.
// That's because seconds is not enough precision and nanoseconds is too much.
func TimeToUnixMillisecond(t time.Time) int64 {
	n := t.UnixNano()
	return n / 1e6
}

// TimeFromUnixMillisecond returns time from Unix epoch time in milliseconds.
func TimeFromUnixMillisecond(unixMs int64) time.Time {
	nano := unixMs * 1e6
	return time.Unix(0, nano)
}
