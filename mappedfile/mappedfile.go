package mappedfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/objstore/atomicfile"
	"github.com/kjk/objstore/log"
	"github.com/kjk/objstore/u"
)

const (
	DefaultPageSize = 1024 * 1024
)

var (
	ErrClosed   = errors.New("mapped file is closed")
	ErrReadOnly = errors.New("mapped file is read-only")
)

type Options struct {
	// size of pages returned by Page(), default DefaultPageSize
	PageSize int
	// initial size of the file on disk, default is one page
	InitialSize int64
	// ReadOnly maps an existing file without modifying it:
	// no padding to page size and no .len file writes.
	// Put, Force and Clear return ErrReadOnly
	ReadOnly bool
}

type File struct {
	path    string
	lenPath string

	pageSize    int64
	initialSize int64
	readOnly    bool

	mu     sync.RWMutex
	f      *os.File
	data   []byte
	length int64
	closed bool
}

// Page is a page-sized window into the mapping.
// Data is valid until Release()
type Page struct {
	// bytes of the page, shorter than page size only for the last
	// page of the mapping
	Data []byte
	// offset of Data[0] in the file
	Offset int64

	file     *File
	released bool
}

// Release unlocks the page. Must be called exactly once
func (p *Page) Release() {
	u.PanicIf(p.released, "page at offset %d released twice", p.Offset)
	p.released = true
	p.Data = nil
	p.file.mu.RUnlock()
}

// End returns offset one past the last byte of the page
func (p *Page) End() int64 {
	return p.Offset + int64(len(p.Data))
}

func lenFilePath(path string) string {
	return path + ".len"
}

// Open opens or creates a mapped file at path
func Open(path string, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.PageSize < 0 || opts.InitialSize < 0 {
		return nil, fmt.Errorf("invalid options: page size %d, initial size %d", opts.PageSize, opts.InitialSize)
	}
	res := &File{
		path:        path,
		lenPath:     lenFilePath(path),
		pageSize:    int64(opts.PageSize),
		initialSize: opts.InitialSize,
		readOnly:    opts.ReadOnly,
	}
	if res.pageSize == 0 {
		res.pageSize = DefaultPageSize
	}
	res.initialSize = u.RoundUp(max(res.initialSize, res.pageSize), res.pageSize)

	if res.readOnly {
		return res.openReadOnly()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	fileSize := st.Size()
	isNew := !u.FileExists(res.lenPath)
	length, err := readLength(res.lenPath, fileSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	if length > fileSize {
		f.Close()
		return nil, fmt.Errorf("length %d recorded in '%s' is larger than size %d of '%s'", length, res.lenPath, fileSize, path)
	}

	size := u.RoundUp(max(res.initialSize, fileSize), res.pageSize)
	if size != fileSize {
		if err = f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	data, err := mapFile(f, size, true)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap of '%s' failed: %w", path, err)
	}
	res.f = f
	res.data = data
	res.length = length
	if isNew {
		if err = res.writeLength(); err != nil {
			_ = unmapFile(f, data, true)
			f.Close()
			return nil, err
		}
	}
	log.Verbosef("mappedfile: opened '%s', length: %d, mapped: %s\n", path, length, u.FormatSize(size))
	return res, nil
}

// the file is mapped as is, length comes from .len file if it exists
func (f *File) openReadOnly() (*File, error) {
	fd, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	st, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	fileSize := st.Size()
	length, err := readLength(f.lenPath, fileSize)
	if err != nil {
		fd.Close()
		return nil, err
	}
	if length > fileSize {
		fd.Close()
		return nil, fmt.Errorf("length %d recorded in '%s' is larger than size %d of '%s'", length, f.lenPath, fileSize, f.path)
	}
	// can't mmap 0 bytes
	data := []byte{}
	if fileSize > 0 {
		data, err = mapFile(fd, fileSize, false)
		if err != nil {
			fd.Close()
			return nil, fmt.Errorf("mmap of '%s' failed: %w", f.path, err)
		}
	}
	f.f = fd
	f.data = data
	f.length = length
	log.Verbosef("mappedfile: opened '%s' read-only, length: %d\n", f.path, length)
	return f, nil
}

// readLength reads the logical length from .len file.
// Without .len file the whole file is considered data
func readLength(lenPath string, fileSize int64) (int64, error) {
	d, err := os.ReadFile(lenPath)
	if errors.Is(err, os.ErrNotExist) {
		return fileSize, nil
	}
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(d))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid length '%s' in '%s'", s, lenPath)
	}
	return n, nil
}

func (f *File) writeLength() error {
	s := strconv.FormatInt(f.length, 10) + "\n"
	return atomicfile.WriteFile(f.lenPath, []byte(s))
}

func (f *File) Path() string {
	return f.path
}

func (f *File) PageSize() int {
	return int(f.pageSize)
}

// Length returns logical length of the file
func (f *File) Length() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.length
}

// MappedSize returns the size of the mapping (and of the file on disk)
func (f *File) MappedSize() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data))
}

// must be called with exclusive lock
func (f *File) growLocked(size int64) error {
	curr := int64(len(f.data))
	if size <= curr {
		return nil
	}
	newSize := u.RoundUp(max(size, curr*2), f.pageSize)
	if err := unmapFile(f.f, f.data, true); err != nil {
		return fmt.Errorf("unmap of '%s' failed: %w", f.path, err)
	}
	f.data = nil
	if err := f.f.Truncate(newSize); err != nil {
		// try to restore previous mapping so that the file stays usable
		if data, err2 := mapFile(f.f, curr, true); err2 == nil {
			f.data = data
		}
		return err
	}
	data, err := mapFile(f.f, newSize, true)
	if err != nil {
		return fmt.Errorf("mmap of '%s' failed: %w", f.path, err)
	}
	f.data = data
	log.Verbosef("mappedfile: grew '%s' from %s to %s\n", f.path, u.FormatSize(curr), u.FormatSize(newSize))
	return nil
}

// data is nil after a failed remap in grow or Clear
func (f *File) notMapped() error {
	return fmt.Errorf("'%s' is not mapped", f.path)
}

// Put writes d at offset off, growing the file if needed
func (f *File) Put(off int64, d []byte) error {
	if off < 0 {
		return fmt.Errorf("negative offset %d", off)
	}
	end := off + int64(len(d))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.readOnly {
		return ErrReadOnly
	}
	if f.data == nil {
		return f.notMapped()
	}
	if err := f.growLocked(end); err != nil {
		return err
	}
	copy(f.data[off:end], d)
	if end > f.length {
		f.length = end
	}
	return nil
}

// ReadAt implements io.ReaderAt over logical length of the file
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, ErrClosed
	}
	if f.data == nil {
		return 0, f.notMapped()
	}
	if off >= f.length {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:f.length])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Page returns locked page that contains offset off.
// The caller must call Page.Release()
func (f *File) Page(off int64) (*Page, error) {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return nil, ErrClosed
	}
	if f.data == nil {
		f.mu.RUnlock()
		return nil, f.notMapped()
	}
	size := int64(len(f.data))
	if off < 0 || off >= size {
		f.mu.RUnlock()
		return nil, fmt.Errorf("offset %d outside of mapped size %d of '%s'", off, size, f.path)
	}
	start := off - off%f.pageSize
	end := min(start+f.pageSize, size)
	return &Page{
		Data:   f.data[start:end],
		Offset: start,
		file:   f,
	}, nil
}

// Force writes mapped pages and the logical length to disk
func (f *File) Force() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.readOnly {
		return ErrReadOnly
	}
	if f.data == nil {
		return f.notMapped()
	}
	if err := syncFile(f.f, f.data); err != nil {
		return fmt.Errorf("sync of '%s' failed: %w", f.path, err)
	}
	return f.writeLength()
}

// Clear truncates the file to its initial size and sets length to 0
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.readOnly {
		return ErrReadOnly
	}
	if f.data != nil {
		if err := unmapFile(f.f, f.data, true); err != nil {
			return fmt.Errorf("unmap of '%s' failed: %w", f.path, err)
		}
		f.data = nil
	}
	// truncate to 0 first to drop old content
	if err := f.f.Truncate(0); err != nil {
		return err
	}
	if err := f.f.Truncate(f.initialSize); err != nil {
		return err
	}
	data, err := mapFile(f.f, f.initialSize, true)
	if err != nil {
		return fmt.Errorf("mmap of '%s' failed: %w", f.path, err)
	}
	f.data = data
	f.length = 0
	return f.writeLength()
}

// Close syncs, unmaps and closes the file. All steps are attempted
// even if some fail. Calling Close more than once is a no-op
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var errs []error
	writable := !f.readOnly
	if len(f.data) > 0 {
		if writable {
			if err := syncFile(f.f, f.data); err != nil {
				errs = append(errs, fmt.Errorf("sync of '%s' failed: %w", f.path, err))
			}
		}
		if err := unmapFile(f.f, f.data, writable); err != nil {
			errs = append(errs, fmt.Errorf("unmap of '%s' failed: %w", f.path, err))
		}
	}
	f.data = nil
	if writable {
		if err := f.writeLength(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
