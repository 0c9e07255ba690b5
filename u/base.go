package u

import (
	"fmt"
)

func Must(err error) {
	if err != nil {
		panic(err)
	}
}

func PanicIf(cond bool, args ...interface{}) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

func PanicIfErr(err error, args ...interface{}) {
	if err == nil {
		return
	}
	s := err.Error()
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

// RoundUp rounds n up to a multiple of align. align must be > 0
func RoundUp(n int64, align int64) int64 {
	PanicIf(align <= 0, "align must be > 0, is %d", align)
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
