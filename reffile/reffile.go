// Package reffile implements a named, reference-counted file/device
// handle: opened read-only by default, reopenable read/write while
// preserving offset, with device-vs-file detection and sparse allocation.
// All I/O goes through an afero.Fs so tests can substitute an in-memory
// filesystem.
package reffile

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// ErrInvalidArgument is returned by Open for an empty path.
var ErrInvalidArgument = errors.New("reffile: invalid argument")

// RefFile is a shared, reference-counted handle to a file or block device.
// Multiple Reader variants and the top-level bank-table object hold
// references; the underlying os.File (or afero equivalent) is only closed
// when the last reference drops.
type RefFile struct {
	fs   afero.Fs
	path string

	mu       sync.Mutex
	f        afero.File
	writable bool
	refs     int
}

// Open opens path read-only, or read/write (truncating or creating) if
// create is true.
func Open(fs afero.Fs, path string, create bool) (*RefFile, error) {
	if path == "" {
		return nil, ErrInvalidArgument
	}

	var (
		f   afero.File
		err error
	)
	if create {
		f, err = fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	} else {
		f, err = fs.Open(path)
	}
	if err != nil {
		return nil, err
	}

	return &RefFile{fs: fs, path: path, f: f, writable: create, refs: 1}, nil
}

// Ref increments the reference count and returns the same handle.
func (r *RefFile) Ref() *RefFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs++
	return r
}

// Release decrements the reference count, closing the underlying file when
// it reaches zero.
func (r *RefFile) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs--
	if r.refs > 0 {
		return nil
	}
	return r.f.Close()
}

// MakeWritable saves the current offset, closes, and reopens the file in
// read/write mode, restoring the offset. On failure it retries read-only
// and returns the reopen error.
func (r *RefFile) MakeWritable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writable {
		return nil
	}

	off, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := r.f.Close(); err != nil {
		return err
	}

	f, err := r.fs.OpenFile(r.path, os.O_RDWR, 0o644)
	if err != nil {
		ro, roErr := r.fs.Open(r.path)
		if roErr != nil {
			return err
		}
		if _, seekErr := ro.Seek(off, io.SeekStart); seekErr != nil {
			_ = ro.Close()
			return err
		}
		r.f = ro
		return err
	}

	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return err
	}
	r.f = f
	r.writable = true
	return nil
}

// Writable reports whether the handle is currently open for writing.
func (r *RefFile) Writable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writable
}

// IsDevice reports whether the underlying path names a block or character
// device rather than a regular file. Platform detection lives in
// reffile_unix.go / reffile_windows.go.
func (r *RefFile) IsDevice() bool {
	return isDevice(r.path)
}

// Size returns the handle's size in bytes: for a block device, via the OS
// length ioctl; otherwise by seeking to the end. Returns -1 on failure.
func (r *RefFile) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.IsDevice() {
		if n, err := deviceSize(r.path); err == nil {
			return n
		}
		return -1
	}

	off, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := r.f.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := r.f.Seek(off, io.SeekStart); err != nil {
		return -1
	}
	return end
}

// Mtime returns the modification time in seconds since epoch, or -1.
func (r *RefFile) Mtime() int64 {
	info, err := r.fs.Stat(r.path)
	if err != nil {
		return -1
	}
	return info.ModTime().Unix()
}

// MakeSparse marks the file sparse with the given logical size. On POSIX
// this is ftruncate(size); EINVAL/EFBIG are reported, other errors are
// swallowed, keeping sparse allocation best-effort on filesystems that
// reject it outright.
func (r *RefFile) MakeSparse(size int64) error {
	return makeSparse(r.fs, r.path, r.f, size)
}

// Flush performs a user-level flush followed by a kernel-level sync.
func (r *RefFile) Flush() error {
	if s, ok := r.f.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

// File exposes the underlying afero.File for Reader variants to build
// io.SectionReader/io.ReaderAt compositions over.
func (r *RefFile) File() afero.File {
	return r.f
}

// ReadAt/WriteAt/Seek let RefFile itself satisfy the narrow interfaces the
// reader package composes over, without every caller reaching through
// File().

func (r *RefFile) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

func (r *RefFile) WriteAt(p []byte, off int64) (int, error) {
	return r.f.WriteAt(p, off)
}

func (r *RefFile) Close() error {
	return r.Release()
}
