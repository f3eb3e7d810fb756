package rvth

import (
	"testing"

	"github.com/bodgit/rvth/reffile"
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/spf13/afero"
)

// newTestHDD builds an in-memory HDD RVTH whose bank table sits at LBA 0,
// so entry rewrites land at offsets a MemMapFs-backed file can hold
// without allocating the 1.5 GiB that precedes the real table address.
func newTestHDD(t *testing.T, banks ...*BankEntry) (*RVTH, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	img := make([]byte, nhcdBlockSize*(1+len(banks)))
	putBE32(img[0:], nhcdMagic)
	putBE32(img[4:], 1)
	putBE32(img[8:], uint32(len(banks)))
	if err := afero.WriteFile(fs, "/hdd.img", img, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rf, err := reffile.Open(fs, "/hdd.img", false)
	if err != nil {
		t.Fatalf("reffile.Open: %v", err)
	}
	t.Cleanup(func() { _ = rf.Close() })

	for i, b := range banks {
		b.Index = i
	}
	return &RVTH{
		file:         rf,
		isHDD:        true,
		hasNHCD:      true,
		bankTableLBA: 0,
		bankCount:    uint32(len(banks)),
		banks:        banks,
	}, fs
}

// readTableSlot returns the raw 512-byte bank-table entry for bank as last
// persisted by writeBankEntry.
func readTableSlot(t *testing.T, fs afero.Fs, bank int) []byte {
	t.Helper()

	data, err := afero.ReadFile(fs, "/hdd.img")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	off := (1 + bank) * nhcdBlockSize
	if len(data) < off+nhcdBlockSize {
		t.Fatalf("image too short for bank %d slot: %d bytes", bank, len(data))
	}
	return data[off : off+nhcdBlockSize]
}

func putBE64(b []byte, v uint64) {
	putBE32(b, uint32(v>>32))
	putBE32(b[4:], uint32(v))
}

func wiiDiscHeader(gameID string) [wiicrypto.DiscHeaderSize]byte {
	var h [wiicrypto.DiscHeaderSize]byte
	copy(h[:], gameID)
	putBE32(h[wiicrypto.DiscMagicWiiOff:], wiicrypto.DiscMagicWii)
	return h
}
