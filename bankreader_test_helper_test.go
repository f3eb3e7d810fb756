package rvth

import "github.com/bodgit/rvth/internal/endian"

// fakeBankReader is a minimal in-memory bankReader backing a raw byte
// image, used to exercise discheader.go/bankmeta.go without a real disc
// image or filesystem.
type fakeBankReader struct {
	data []byte
}

func newFakeBankReader(data []byte) *fakeBankReader {
	return &fakeBankReader{data: data}
}

func (f *fakeBankReader) StartLBA() uint32  { return 0 }
func (f *fakeBankReader) LengthLBA() uint32 { return uint32(len(f.data) / endian.LBASize) }

func (f *fakeBankReader) ReadLBA(dst []byte, lba, nlba uint32) (uint32, error) {
	off := int64(lba) * endian.LBASize
	n := int64(nlba) * endian.LBASize
	if off+n > int64(len(f.data)) {
		grown := make([]byte, off+n)
		copy(grown, f.data)
		f.data = grown
	}
	copy(dst, f.data[off:off+n])
	return nlba, nil
}

func (f *fakeBankReader) WriteLBA(src []byte, lba, nlba uint32) (uint32, error) {
	off := int64(lba) * endian.LBASize
	n := int64(nlba) * endian.LBASize
	if off+n > int64(len(f.data)) {
		grown := make([]byte, off+n)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:off+n], src)
	return nlba, nil
}

func (f *fakeBankReader) Flush() error { return nil }
func (f *fakeBankReader) Close() error { return nil }
