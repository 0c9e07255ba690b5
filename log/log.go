package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/objstore/siser"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	errorsLog *WriteDaily
	eventsLog *WriteDaily

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() prints, set to io.Discard to silence
	Output io.Writer = os.Stdout
)

type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// WriteString writes a string to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

// dayFromTime converts a time.Time to YYYYMMDD integer format
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Writer returns an io.Writer for today's log file
// it creates a new file if needed
func (w *WriteDaily) Writer() (io.Writer, error) {
	if w == nil {
		return nil, fmt.Errorf("w is nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	today := dayFromTime(now)

	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}

	if w.file == nil {
		dateStr := now.Format("2006-01-02")
		filename := filepath.Join(w.Dir, dateStr+".txt")
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.currentDate = today
	}
	return w.file, nil
}

// Write writes data to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	wr, err := w.Writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close closes the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.close()
}

// Sync flushes the daily log file to disk
// it's safe to call on nil receiver
func (w *WriteDaily) Sync() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

type Config struct {
	// directory where log files are stored
	// each log type (regular, error, event) has its own subdirectory
	Dir string
}

// Init initializes the logging system
// log files are stored in config.Dir
// without Init we only print to Output
func Init(config *Config) {
	dir := config.Dir
	log = NewWriteDaily(filepath.Join(dir, "log"))
	errorsLog = NewWriteDaily(filepath.Join(dir, "errors"))
	// this doesn't create log files so if app doesn't
	// log events, it's a no-op
	eventsLog = NewWriteDaily(filepath.Join(dir, "events"))
}

// CloseWriteDaily closes the WriteDaily and sets its pointer to nil
// it's safe to call with nil pointer
func CloseWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Sync()
	(*wd).Close()
	*wd = nil
}

func Close() {
	CloseWriteDaily(&log)
	CloseWriteDaily(&errorsLog)
	CloseWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Output != nil {
		fmt.Fprint(Output, s)
	}
	log.WriteString(s)
}

// callstack returns "file:line" of callers, one per line.
// skip 0 is the caller of callstack
func callstack(skip int) string {
	var callers [32]uintptr
	n := runtime.Callers(skip+2, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return strings.Join(cs, "\n")
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := callstack(1)
	s = fmt.Sprintf("%s\n%s\n", s, cs)
	errorsLog.WriteString(s)
	Logf("%s", s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		// shouldn't happen but just in case
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

func panicIf(cond bool) {
	if cond {
		panic("condition is true")
	}
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent returns event serialized as siser line with toon-encoded
// key / value pairs
func MarshalEvent(name string, t time.Time, vals ...any) []byte {
	n := len(vals)
	panicIf(n%2 != 0)
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := simpleTypeToStr(vals[i])
			m[k] = vals[i+1]
		}
		d, _ = toon.Marshal(m)
	}
	return siser.MarshalLine(name, t, d, nil)
}

// Event logs event in toon format to events log
// it's a no-op if Init() wasn't called
func Event(name string, vals ...any) {
	if eventsLog == nil {
		return
	}
	t := time.Now().UTC()
	eventsLog.Write(MarshalEvent(name, t, vals...))
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
