// Package mappedfile implements a file that is accessed through a
// shared read/write memory mapping and grows on demand.
//
// The logical length (highest written offset + 1) is kept separately
// from the size of the file on disk, which is rounded up to whole pages
// and doubles when it runs out of space. The logical length is persisted
// in "<path>.len" on Force(), Clear() and Close().
//
// # Locking
//
// File has a read/write lock. Put, Force, Clear and Close take it
// exclusively (Put may have to re-map the file, which invalidates all
// previously returned byte slices). ReadAt takes it shared for the
// duration of the call and Page takes it shared until Page.Release().
// A goroutine that holds a Page must not call Put, Force, Clear or
// Close before releasing it.
package mappedfile
