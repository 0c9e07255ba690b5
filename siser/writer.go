package siser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Writer writes records in siser format to an io.Writer.
// Not safe for concurrent use
type Writer struct {
	w io.Writer
	// NoTimestamp omits the timestamp from headers so that
	// the same record always serializes to the same bytes
	NoTimestamp bool

	// header and data of the last record, re-used
	buf bytes.Buffer
}

// NewWriter creates a writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: w,
	}
}

// WriteRecord writes r with its Name and Timestamp in the header.
// Returns number of bytes written
func (w *Writer) WriteRecord(r *ReadRecord) (int, error) {
	return w.Write(r.Marshal(), r.Timestamp, r.Name)
}

// Write writes d as one record. Zero t means the time of writing.
// Returns number of bytes written, including the header
func (w *Writer) Write(d []byte, t time.Time, name string) (int, error) {
	if strings.IndexByte(name, '\n') != -1 {
		return 0, fmt.Errorf("siser: record name '%s' has a newline", name)
	}
	if w.NoTimestamp {
		t = zeroTime
	} else if t.IsZero() {
		t = time.Now()
	}
	// don't keep a buffer grown by a single large record
	if w.buf.Cap() > 100*1024 && len(d) < 50*1024 {
		w.buf = bytes.Buffer{}
	}
	return w.w.Write(MarshalLine(name, t, d, &w.buf))
}

// MarshalLine serializes d as a record:
// "--- ${len(d)} ${timestamp_ms} ${name}\n${d}\n"
// Zero t and empty name are omitted. The trailing '\n' is only added
// if d doesn't end with one.
// Result is in wb if given, it's allocated otherwise
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	// 32 for size and timestamp
	wb.Grow(len(hdrPrefix) + 32 + len(name) + len(d) + 1)

	wb.Write(hdrPrefix)
	wb.WriteString(strconv.Itoa(len(d)))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(TimeToUnixMillisecond(t), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if len(d) > 0 {
		wb.Write(d)
		if d[len(d)-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}
