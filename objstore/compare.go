package objstore

import (
	"github.com/kjk/objstore/mappedfile"
)

// byteSource provides stored bytes one at a time
type byteSource interface {
	// next returns the next stored byte, false if there are no more
	next() (byte, bool, error)
	release()
}

type bufferSource struct {
	d []byte
	i int
}

func (b *bufferSource) next() (byte, bool, error) {
	if b.i >= len(b.d) {
		return 0, false, nil
	}
	c := b.d[b.i]
	b.i++
	return c, true, nil
}

func (b *bufferSource) release() {}

// pageSource walks pages of the backing store from pos to end
type pageSource struct {
	backing BackingStore
	pos     int64
	end     int64
	page    *mappedfile.Page
}

func (p *pageSource) next() (byte, bool, error) {
	if p.pos >= p.end {
		return 0, false, nil
	}
	if p.page != nil && p.pos >= p.page.End() {
		p.release()
	}
	if p.page == nil {
		page, err := p.backing.Page(p.pos)
		if err != nil {
			return 0, false, ioErr("compare", p.pos, err)
		}
		p.page = page
	}
	c := p.page.Data[p.pos-p.page.Offset]
	p.pos++
	return c, true, nil
}

func (p *pageSource) release() {
	if p.page != nil {
		p.page.Release()
		p.page = nil
	}
}

// comparator is a codec.Writer that compares written bytes with
// bytes from src. After the first difference it only counts
type comparator struct {
	src  byteSource
	same bool
	err  error
}

func (c *comparator) WriteByte(b byte) error {
	if !c.same {
		return nil
	}
	stored, ok, err := c.src.next()
	if err != nil {
		c.err = err
		c.same = false
		c.src.release()
		return err
	}
	if !ok || stored != b {
		c.same = false
		c.src.release()
	}
	return nil
}

func (c *comparator) Write(d []byte) (int, error) {
	for i, b := range d {
		if !c.same {
			break
		}
		if err := c.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(d), nil
}

// CheckBytesAreTheSame returns true if serialized v is the same
// as the bytes stored at addr. The stored value is not deserialized
func (s *Store[T]) CheckBytesAreTheSame(addr int64, v T) (bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false, ErrClosed
	}
	flushed := s.flushedLength
	if addr < 0 || addr >= flushed+int64(s.bufferPosition) {
		s.mu.RUnlock()
		return false, nil
	}

	var src byteSource
	if addr >= flushed {
		// the buffer can't change while we hold the read lock
		defer s.mu.RUnlock()
		src = &bufferSource{d: s.buf[addr-flushed : s.bufferPosition]}
	} else {
		s.mu.RUnlock()
		src = &pageSource{backing: s.backing, pos: addr, end: flushed}
	}

	cmp := &comparator{src: src, same: true}
	err := s.ext.Save(cmp, v)
	src.release()
	if cmp.err != nil {
		return false, cmp.err
	}
	if err != nil {
		return false, err
	}
	return cmp.same, nil
}
