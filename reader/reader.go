// Package reader implements the pluggable disc-image reader abstraction:
// a shared interface (read/write/flush/close) with plain, CISO, and WBFS
// variants, chosen dynamically by probing magic bytes. Concrete types
// also compose go4.org/readerutil.SizeReaderAt so sections of an image
// can be handed to anything that takes an io.ReaderAt.
package reader

import (
	"errors"
	"io"

	"go4.org/readerutil"
)

// LBASize is the fixed logical block size every reader operates in.
const LBASize = 512

// ErrReadOnly is returned by Write on the CISO and WBFS variants, which
// are read-only containers.
var ErrReadOnly = errors.New("reader: variant is read-only")

// ErrOutOfRange is returned when a read or write would cross the end of
// the reader's logical image.
var ErrOutOfRange = errors.New("reader: lba range exceeds image length")

// ReaderAtCloser is the minimum a backing handle must support: random
// access plus close. reffile.RefFile satisfies this.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// ReaderWriterAtCloser additionally supports writes, required to open a
// writable plain reader (import, recrypt).
type ReaderWriterAtCloser interface {
	ReaderAtCloser
	io.WriterAt
}

// Flusher is implemented by backing handles that can be explicitly synced.
type Flusher interface {
	Flush() error
}

// Reader is the polymorphic access interface every variant implements.
// LBA arguments are relative to the reader's StartLBA; implementations
// range-check against LengthLBA.
type Reader interface {
	readerutil.SizeReaderAt

	// ReadLBA reads nlba blocks starting at lba (relative) into dst,
	// which must be at least nlba*LBASize bytes, returning the number of
	// LBAs actually read.
	ReadLBA(dst []byte, lba, nlba uint32) (uint32, error)

	// WriteLBA writes nlba blocks from src at lba (relative). Read-only
	// variants return ErrReadOnly.
	WriteLBA(src []byte, lba, nlba uint32) (uint32, error)

	Flush() error
	Close() error

	StartLBA() uint32
	LengthLBA() uint32
}

// checkRange validates that [lba, lba+nlba) lies within [0, length).
func checkRange(lba, nlba, length uint32) error {
	if nlba == 0 {
		return nil
	}
	if lba > length || length-lba < nlba {
		return ErrOutOfRange
	}
	return nil
}
