package siser

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

/*
Records are lists of key/value pairs in a line-oriented, human-readable
format: "key: value\n"

Values that are empty, longer than 120 bytes or have bytes outside
of printable ASCII are size-prefixed:
key:+$len\n
value\n
*/

type Entry struct {
	Key   string
	Value string
}

var zeroTime time.Time

// ReadRecord is a list of key/value pairs with a name and timestamp
// that go into the record header
type ReadRecord struct {
	Name string
	// zero means Writer uses the current time
	Timestamp time.Time
	Entries   []Entry

	// Marshal() result, re-used
	buf bytes.Buffer
}

// Reset clears the record for re-use
func (r *ReadRecord) Reset() {
	r.Name = ""
	r.Timestamp = zeroTime
	r.Entries = r.Entries[:0]
	r.buf.Reset()
}

// Add appends key / value pair to Entries
func (r *ReadRecord) Add(key, val string) {
	r.Entries = append(r.Entries, Entry{Key: key, Value: val})
}

// Get returns the value of the first entry with a given key
func (r *ReadRecord) Get(key string) (string, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func serializableOnLine(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < 32 || b > 127 {
			return false
		}
	}
	return true
}

// return true if value needs to be serialized in long,
// size-prefixed format
func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !serializableOnLine(s)
}

func marshalKeyVal(buf *bytes.Buffer, key, val string) {
	buf.WriteString(key)
	if !needsLongFormat(val) {
		buf.WriteString(": ")
		buf.WriteString(val)
		buf.WriteByte('\n')
		return
	}
	buf.WriteString(":+")
	buf.WriteString(strconv.Itoa(len(val)))
	buf.WriteByte('\n')
	buf.WriteString(val)
	// next key always starts on a new line
	if len(val) == 0 || val[len(val)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

// Marshal serializes Entries. Can be called multiple times.
// Result is valid until the next Marshal() or Reset()
func (r *ReadRecord) Marshal() []byte {
	r.buf.Reset()
	for _, e := range r.Entries {
		marshalKeyVal(&r.buf, e.Key, e.Value)
	}
	return r.buf.Bytes()
}

// UnmarshalRecord decodes data created by Marshal.
// For efficiency re-uses record r. If r is nil, will allocate new record.
// Name and Timestamp are cleared, they're not part of the data
func UnmarshalRecord(d []byte, r *ReadRecord) (*ReadRecord, error) {
	if r == nil {
		r = &ReadRecord{}
	} else {
		r.Reset()
	}

	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return nil, fmt.Errorf("missing '\\n' at end of line in '%s'", string(d))
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		// at least one character (' ' or '+') must follow ':'
		if idx == -1 || idx+1 >= len(line) {
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		key := string(line[:idx])
		kind := line[idx+1]
		val := line[idx+2:]
		switch kind {
		case ' ':
			r.Add(key, string(val))
			continue
		case '+':
			// size-prefixed value follows
		default:
			return nil, fmt.Errorf("line in unrecognized format: '%s'", line)
		}

		n, err := strconv.Atoi(string(val))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative length %d of data", n)
		}
		if n > len(d) {
			return nil, fmt.Errorf("length of value %d greater than remaining data of size %d", n, len(d))
		}
		r.Add(key, string(d[:n]))
		d = d[n:]
		// optional newline after the value
		if len(d) > 0 && d[0] == '\n' {
			d = d[1:]
		}
	}
	return r, nil
}

// Unmarshal resets record and decodes data as created by Marshal
// into it.
func (r *ReadRecord) Unmarshal(d []byte) error {
	rec, err := UnmarshalRecord(d, r)
	// if those fails it's a bug in the library
	panicIf(err == nil && rec == nil, "should return err or rec")
	panicIf(err != nil && rec != nil, "if error, rec should be nil")
	panicIf(rec != nil && rec != r, "if returned rec, must be same as r")
	return err
}
