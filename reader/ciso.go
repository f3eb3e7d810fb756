package reader

import (
	"encoding/binary"
	"errors"

	"github.com/bodgit/rvth/internal/endian"
)

const (
	cisoHeaderSize = 0x8000
	cisoMapSize    = 0x7FF8
	cisoMapEntries = cisoMapSize
	cisoMinBlock   = 1 << 15
	cisoMaxBlock   = 1 << 24
)

var cisoMagic = [4]byte{'C', 'I', 'S', 'O'}

// ErrBadCISOMagic is returned by ProbeCISO/OpenCISO when the header magic
// doesn't match.
var ErrBadCISOMagic = errors.New("reader: not a CISO image")

// ErrBadCISOBlockSize is returned when the block size isn't a power of two
// in [2^15, 2^24].
var ErrBadCISOBlockSize = errors.New("reader: invalid CISO block size")

// ErrBadCISOMap is returned when a map byte is neither 0 nor 1.
var ErrBadCISOMap = errors.New("reader: invalid CISO presence map entry")

// ProbeCISO reports whether the first 4 bytes of peek are the CISO magic.
func ProbeCISO(peek []byte) bool {
	return len(peek) >= 4 && peek[0] == cisoMagic[0] && peek[1] == cisoMagic[1] && peek[2] == cisoMagic[2] && peek[3] == cisoMagic[3]
}

// CISO is the compacted-ISO reader variant: on open it reads a 0x8000
// header (magic, little-endian block size, presence map) and
// builds a physical-block index. Sparse blocks read as all-zero and
// cannot be written.
type CISO struct {
	backing     ReaderAtCloser
	blockSize   uint32 // bytes
	lbaPerBlock uint32
	// physBlock[i] is the physical block index for logical block i, or -1
	// if that block is sparse.
	physBlock []int32
	lengthLBA uint32
}

// OpenCISO parses the CISO header from backing and returns a ready reader.
func OpenCISO(backing ReaderAtCloser) (*CISO, error) {
	hdr := make([]byte, cisoHeaderSize)
	if _, err := backing.ReadAt(hdr, 0); err != nil {
		return nil, err
	}
	if !ProbeCISO(hdr) {
		return nil, ErrBadCISOMagic
	}

	blockSize := binary.LittleEndian.Uint32(hdr[4:8])
	if !endian.IsPowerOfTwo(blockSize) || blockSize < cisoMinBlock || blockSize > cisoMaxBlock {
		return nil, ErrBadCISOBlockSize
	}

	m := hdr[8 : 8+cisoMapEntries]
	physBlock := make([]int32, cisoMapEntries)
	var physCounter int32
	highest := -1
	for i, v := range m {
		switch v {
		case 0:
			physBlock[i] = -1
		case 1:
			physBlock[i] = physCounter
			physCounter++
			highest = i
		default:
			return nil, ErrBadCISOMap
		}
	}
	physBlock = physBlock[:highest+1]

	lbaPerBlock := blockSize / LBASize

	return &CISO{
		backing:     backing,
		blockSize:   blockSize,
		lbaPerBlock: lbaPerBlock,
		physBlock:   physBlock,
		lengthLBA:   uint32(highest+1) * lbaPerBlock,
	}, nil
}

func (c *CISO) StartLBA() uint32  { return 0 }
func (c *CISO) LengthLBA() uint32 { return c.lengthLBA }
func (c *CISO) Size() int64       { return int64(c.lengthLBA) * LBASize }

func (c *CISO) ReadAt(b []byte, off int64) (int, error) {
	lba := uint32(off / LBASize)
	n, err := c.ReadLBA(b, lba, uint32((len(b)+LBASize-1)/LBASize))
	return int(n) * LBASize, err
}

// ReadLBA decomposes each requested LBA into (block, offset) and either
// copies the physical content or zero-fills a sparse block.
func (c *CISO) ReadLBA(dst []byte, lba, nlba uint32) (uint32, error) {
	if err := checkRange(lba, nlba, c.lengthLBA); err != nil {
		return 0, err
	}
	for i := uint32(0); i < nlba; i++ {
		cur := lba + i
		block := cur / c.lbaPerBlock
		within := cur % c.lbaPerBlock
		dstSlice := dst[i*LBASize : (i+1)*LBASize]

		phys := c.physBlock[block]
		if phys < 0 {
			for j := range dstSlice {
				dstSlice[j] = 0
			}
			continue
		}
		off := cisoHeaderSize + int64(phys)*int64(c.blockSize) + int64(within)*LBASize
		if _, err := c.backing.ReadAt(dstSlice, off); err != nil {
			return i, err
		}
	}
	return nlba, nil
}

func (c *CISO) WriteLBA(src []byte, lba, nlba uint32) (uint32, error) {
	return 0, ErrReadOnly
}

func (c *CISO) Flush() error { return nil }
func (c *CISO) Close() error { return c.backing.Close() }
