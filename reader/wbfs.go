package reader

import (
	"encoding/binary"
	"errors"

	"github.com/bits-and-blooms/bitset"
)

const (
	wbfsHeaderSize = LBASize
	// wbfsMaxFATEntries is the fixed number of 16-bit sector pointers
	// read from the table after the header, so an image addresses at
	// most 0x4000 WBFS sectors (512 MiB at the smallest, 32 KiB, sector
	// size).
	wbfsMaxFATEntries = 0x4000
)

var wbfsMagic = [4]byte{'W', 'B', 'F', 'S'}

// ErrBadWBFSMagic is returned when the header magic doesn't match.
var ErrBadWBFSMagic = errors.New("reader: not a WBFS image")

// ErrBadWBFSSectorSize is returned when the WBFS sector size shift decodes
// to something outside the supported range.
var ErrBadWBFSSectorSize = errors.New("reader: invalid WBFS sector size")

// ProbeWBFS reports whether the first 4 bytes of peek are the WBFS magic.
func ProbeWBFS(peek []byte) bool {
	return len(peek) >= 4 && peek[0] == wbfsMagic[0] && peek[1] == wbfsMagic[1] && peek[2] == wbfsMagic[2] && peek[3] == wbfsMagic[3]
}

// WBFS is the Wii Backup File System reader variant. Like CISO it is a
// sparse container: a table of per-sector physical pointers, zero meaning
// "not present." The presence table is a bits-and-blooms/bitset rather
// than a hand-rolled bool slice.
type WBFS struct {
	backing     ReaderAtCloser
	wbfsSecSize uint32 // bytes, 1<<shift
	lbaPerWSec  uint32
	fat         []uint16 // wbfs-sector pointer per logical wbfs-sector, 0 = sparse
	present     *bitset.BitSet
	lengthLBA   uint32
}

// OpenWBFS parses the WBFS header and per-disc sector table from backing.
func OpenWBFS(backing ReaderAtCloser) (*WBFS, error) {
	hdr := make([]byte, wbfsHeaderSize)
	if _, err := backing.ReadAt(hdr, 0); err != nil {
		return nil, err
	}
	if !ProbeWBFS(hdr) {
		return nil, ErrBadWBFSMagic
	}

	shift := hdr[8]
	if shift < 15 || shift > 24 {
		return nil, ErrBadWBFSSectorSize
	}
	wbfsSecSize := uint32(1) << shift

	fatBytes := make([]byte, wbfsMaxFATEntries*2)
	if _, err := backing.ReadAt(fatBytes, wbfsHeaderSize); err != nil {
		return nil, err
	}

	fat := make([]uint16, wbfsMaxFATEntries)
	present := bitset.New(wbfsMaxFATEntries)
	highest := -1
	for i := range fat {
		v := binary.BigEndian.Uint16(fatBytes[i*2 : i*2+2])
		fat[i] = v
		if v != 0 {
			present.Set(uint(i))
			highest = i
		}
	}
	fat = fat[:highest+1]

	lbaPerWSec := wbfsSecSize / LBASize

	return &WBFS{
		backing:     backing,
		wbfsSecSize: wbfsSecSize,
		lbaPerWSec:  lbaPerWSec,
		fat:         fat,
		present:     present,
		lengthLBA:   uint32(highest+1) * lbaPerWSec,
	}, nil
}

func (w *WBFS) StartLBA() uint32  { return 0 }
func (w *WBFS) LengthLBA() uint32 { return w.lengthLBA }
func (w *WBFS) Size() int64       { return int64(w.lengthLBA) * LBASize }

func (w *WBFS) ReadAt(b []byte, off int64) (int, error) {
	lba := uint32(off / LBASize)
	n, err := w.ReadLBA(b, lba, uint32((len(b)+LBASize-1)/LBASize))
	return int(n) * LBASize, err
}

// ReadLBA mirrors CISO.ReadLBA but through the WBFS sector-pointer table:
// a zero pointer means the sector was never allocated and reads as zero.
func (w *WBFS) ReadLBA(dst []byte, lba, nlba uint32) (uint32, error) {
	if err := checkRange(lba, nlba, w.lengthLBA); err != nil {
		return 0, err
	}
	for i := uint32(0); i < nlba; i++ {
		cur := lba + i
		wsec := cur / w.lbaPerWSec
		within := cur % w.lbaPerWSec
		dstSlice := dst[i*LBASize : (i+1)*LBASize]

		ptr := w.fat[wsec]
		if ptr == 0 {
			for j := range dstSlice {
				dstSlice[j] = 0
			}
			continue
		}
		off := int64(wbfsHeaderSize) + wbfsMaxFATEntries*2 + int64(ptr)*int64(w.wbfsSecSize) + int64(within)*LBASize
		if _, err := w.backing.ReadAt(dstSlice, off); err != nil {
			return i, err
		}
	}
	return nlba, nil
}

func (w *WBFS) WriteLBA(src []byte, lba, nlba uint32) (uint32, error) {
	return 0, ErrReadOnly
}

func (w *WBFS) Flush() error { return nil }
func (w *WBFS) Close() error { return w.backing.Close() }

// FreeSectorCount reports how many of the disc's WBFS sectors are
// unallocated, a diagnostic that falls naturally out of carrying a real
// bitset rather than a raw pointer table.
func (w *WBFS) FreeSectorCount() uint {
	return uint(len(w.fat)) - w.present.Count()
}
