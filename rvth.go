package rvth

import (
	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/reader"
	"github.com/bodgit/rvth/reffile"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// RVTH is the top-level handle over either an RVT-H Reader HDD image (with
// an NHCD bank table and up to 32 banks) or a standalone disc image
// (GCM/CISO/WBFS), synthesized as a single bank.
type RVTH struct {
	file *reffile.RefFile

	isHDD        bool
	hasNHCD      bool
	bankTableLBA uint32
	bankCount    uint32

	banks []*BankEntry
}

// Open opens path and decides whether it's an HDD image (more than two
// banks' worth of data, or a block device) or a standalone disc image.
func Open(fs afero.Fs, path string, writable bool) (*RVTH, error) {
	rf, err := reffile.Open(fs, path, false)
	if err != nil {
		return nil, WrapError(err)
	}
	if writable {
		if err := rf.MakeWritable(); err != nil {
			_ = rf.Close()
			return nil, WrapError(err)
		}
	}

	size := rf.Size()
	if size < 0 {
		_ = rf.Close()
		return nil, WrapError(errSizeUnavailable)
	}

	twoBanks := 2 * endian.LBAToBytes64(uint64(defaultBankSizeLBA))
	if rf.IsDevice() || size > twoBanks {
		rvth, err := openHDD(rf)
		if err != nil {
			_ = rf.Close()
			return nil, err
		}
		return rvth, nil
	}

	rvth, err := openSingleImage(rf, size)
	if err != nil {
		_ = rf.Close()
		return nil, err
	}
	return rvth, nil
}

var errSizeUnavailable = errSizeUnavailableType{}

type errSizeUnavailableType struct{}

func (errSizeUnavailableType) Error() string { return "rvth: could not determine image size" }

// openHDD reads the NHCD header, clamps the bank count, then reads each
// 512-byte bank-table entry in turn, synthesizing a Wii-DL-Bank2
// placeholder the iteration after every Wii-DL entry.
func openHDD(rf *reffile.RefFile) (*RVTH, error) {
	hdrBuf := make([]byte, nhcdBlockSize)
	if _, err := rf.ReadAt(hdrBuf, endian.LBAToBytes(NHCDBankTableLBA)); err != nil {
		return nil, WrapError(err)
	}

	r := &RVTH{file: rf, isHDD: true}

	hdr, hasMagic := parseNHCDHeader(hdrBuf)
	r.hasNHCD = hasMagic
	r.bankTableLBA = NHCDBankTableLBA

	bankCount := hdr.BankCount
	if !hasMagic || bankCount < minBankCount || bankCount > maxBankCount {
		bankCount = minBankCount
	}
	r.bankCount = bankCount

	r.banks = make([]*BankEntry, bankCount)
	addr := endian.LBAToBytes(NHCDBankTableLBA) + nhcdBlockSize

	for i := uint32(0); i < bankCount; i++ {
		if i > 0 && r.banks[i-1].Type == BankWiiDL {
			r.banks[i] = &BankEntry{Index: int(i), Type: BankWiiDLBank2}
			addr += nhcdBlockSize
			continue
		}

		entBuf := make([]byte, nhcdBlockSize)
		if _, err := rf.ReadAt(entBuf, addr); err != nil {
			return nil, WrapError(err)
		}
		addr += nhcdBlockSize

		ent := parseNHCDEntry(entBuf)
		bankType := bankTypeFromWord(ent.TypeWord)

		startLBA, lengthLBA := ent.StartLBA, ent.LengthLBA
		if startLBA == 0 || lengthLBA == 0 {
			startLBA, lengthLBA = defaultGeometry(int(i), bankCount, bankType, 0, 0)
		}

		be, err := initBankEntry(rf, int(i), bankType, startLBA, lengthLBA, ent.Timestamp)
		if err != nil && !isBenignBankError(err) {
			return nil, err
		}
		r.banks[i] = be
	}

	return r, nil
}

// openSingleImage wraps a standalone GCM/CISO/WBFS file as a single
// synthesized bank entry.
func openSingleImage(rf *reffile.RefFile, size int64) (*RVTH, error) {
	lengthLBA := endian.BytesToLBA(size)

	rd, err := reader.Open(rf, rf.IsDevice(), 0, lengthLBA)
	if err != nil {
		return nil, WrapError(err)
	}
	// CISO/WBFS images and SDK-prefixed GCMs report a logical length that
	// differs from the file's physical size.
	lengthLBA = rd.LengthLBA()

	header, deleted, err := identifyDiscHeader(rd)
	if err != nil {
		return nil, WrapError(err)
	}

	entry := &BankEntry{
		Index:      0,
		StartLBA:   0,
		LengthLBA:  lengthLBA,
		DiscHeader: header,
		Deleted:    deleted,
		reader:     rd,
	}
	switch {
	case entry.IsWii():
		entry.Type = BankWiiSL
	case entry.IsGCN():
		entry.Type = BankGCN
	case endian.IsZero(header[:]):
		entry.Type = BankEmpty
	default:
		entry.Type = BankUnknown
	}
	fillBankMeta(entry)

	return &RVTH{file: rf, isHDD: false, banks: []*BankEntry{entry}}, nil
}

// BankCount returns the number of bank-table slots (1 for a standalone
// image).
func (r *RVTH) BankCount() int { return len(r.banks) }

// IsHDD reports whether this is an RVT-H HDD image rather than a
// standalone disc image.
func (r *RVTH) IsHDD() bool { return r.isHDD }

// HasBankTable reports whether a valid NHCD magic was found; if false,
// bank-table writes (Delete/Undelete/Import's entry rewrite) are
// disabled.
func (r *RVTH) HasBankTable() bool { return r.hasNHCD }

// Bank returns the entry at the given 0-based index.
func (r *RVTH) Bank(index int) (*BankEntry, error) {
	if index < 0 || index >= len(r.banks) {
		return nil, NewError(CodeBankUnknown)
	}
	return r.banks[index], nil
}

// Banks returns every bank-table entry in order.
func (r *RVTH) Banks() []*BankEntry { return r.banks }

// Close releases the underlying file handle and every bank's reader.
func (r *RVTH) Close() error {
	var err *multierror.Error
	for _, b := range r.banks {
		if b.reader != nil {
			if cerr := b.reader.Close(); cerr != nil {
				err = multierror.Append(err, cerr)
			}
		}
	}
	if cerr := r.file.Close(); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	if err != nil {
		return WrapError(err)
	}
	return nil
}

func isBenignBankError(err error) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	switch e.Code {
	case CodeBankEmpty, CodeBankUnknown, CodeBankIsDLBank2:
		return true
	default:
		return false
	}
}
