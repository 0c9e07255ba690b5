package codec

import (
	"io"

	"github.com/kjk/objstore/siser"
)

// SiserRecord stores key / value records in siser format, which
// keeps the store file human-readable.
// With NoTimestamp the timestamp is never written, otherwise
// record's Timestamp is written (current time if zero, which makes
// CheckBytesAreTheSame fail for otherwise identical records)
type SiserRecord struct {
	NoTimestamp bool
}

func (c SiserRecord) Save(w Writer, v *siser.ReadRecord) error {
	sw := siser.NewWriter(w)
	sw.NoTimestamp = c.NoTimestamp
	_, err := sw.WriteRecord(v)
	return err
}

func (c SiserRecord) Read(r Reader) (*siser.ReadRecord, error) {
	sr := siser.NewReader(r)
	sr.NoTimestamp = c.NoTimestamp
	if !sr.ReadNextRecord() {
		if err := sr.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return sr.Record, nil
}

var _ Externalizer[*siser.ReadRecord] = SiserRecord{}
