// Package objstore is an append-only store of serialized values
// backed by a growable memory-mapped file.
//
// Append returns the address (byte offset) of the record. Records are
// written to an in-memory buffer first and moved to the file when the
// buffer fills up (Flush, Force, Close). Read, CheckBytesAreTheSame and
// ProcessAll work on addresses in both the buffer and the file.
//
// The file is a concatenation of records in the order they were appended.
// There is no header, no length prefix and no checksum so the Externalizer
// must write self-delimiting records.
//
// # Concurrency
//
// Any number of goroutines can read (Read, ReadWith, CheckBytesAreTheSame,
// ProcessAll, All, CurrentLength) while one goroutine writes (Append, Flush,
// Force, Clear, Close). Writers take the store lock exclusively, readers
// take it shared only to look at the write buffer. Flushed data doesn't
// change until Clear so reading it relies only on the locking done by
// the backing store.
//
// A Cursor must not be shared between goroutines. Close invalidates
// all cursors.
package objstore
