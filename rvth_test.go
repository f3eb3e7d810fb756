package rvth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/reffile"
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/spf13/afero"
)

func buildGCNImage(lbaCount int) []byte {
	img := make([]byte, lbaCount*endian.LBASize)
	putBE32(img[wiicrypto.DiscMagicGCNOff:], wiicrypto.DiscMagicGCN)
	copy(img[0:6], "GALE01")
	return img
}

func TestOpenStandaloneGCN(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/game.gcm", buildGCNImage(4), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := Open(fs, "/game.gcm", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.IsHDD() {
		t.Error("IsHDD() = true for a standalone image, want false")
	}
	if r.BankCount() != 1 {
		t.Fatalf("BankCount() = %d, want 1", r.BankCount())
	}

	bank, err := r.Bank(0)
	if err != nil {
		t.Fatalf("Bank(0): %v", err)
	}
	if bank.Type != BankGCN {
		t.Errorf("bank type = %v, want BankGCN", bank.Type)
	}
	if bank.GameID() != "GALE01" {
		t.Errorf("GameID() = %q, want %q", bank.GameID(), "GALE01")
	}

	if got := r.Banks(); len(got) != 1 || got[0] != bank {
		t.Errorf("Banks() = %v, want a single-element slice containing bank", got)
	}
}

func TestOpenStandaloneGCNWritable(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/game.gcm", buildGCNImage(4), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := Open(fs, "/game.gcm", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.BankCount() != 1 {
		t.Fatalf("BankCount() = %d, want 1", r.BankCount())
	}
}

func TestOpenMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Open(fs, "/missing.gcm", false); err == nil {
		t.Error("Open of a missing file succeeded, want an error")
	}
}

func TestBankOutOfRange(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/game.gcm", buildGCNImage(4), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := Open(fs, "/game.gcm", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.Bank(5); err == nil {
		t.Error("Bank(5) succeeded for a single-bank image, want an error")
	}
	if _, err := r.Bank(-1); err == nil {
		t.Error("Bank(-1) succeeded, want an error")
	}
}

// writeSparseHDDImage creates a real, sparse on-disk file holding a bank
// table of all type-Empty entries at NHCDBankTableByteAddress, the way a
// real RVT-H Reader HDD image is laid out. initBankEntry short-circuits
// Empty/Unknown banks before touching any bank data, so the file only
// needs to be as long as the bank table itself; os.File.Truncate leaves
// everything before that a hole rather than allocated zero bytes.
func writeSparseHDDImage(t *testing.T, count uint32, corruptMagic bool) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hdd.img")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()

	tableSize := int64(nhcdBlockSize * (1 + int(count)))
	if err := f.Truncate(NHCDBankTableByteAddress + tableSize); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	hdr := make([]byte, nhcdBlockSize)
	magic := uint32(nhcdMagic)
	if corruptMagic {
		magic = 0xDEADBEEF
	}
	putBE32(hdr[0:], magic)
	putBE32(hdr[4:], 1)
	putBE32(hdr[8:], count)
	if _, err := f.WriteAt(hdr, NHCDBankTableByteAddress); err != nil {
		t.Fatalf("WriteAt header: %v", err)
	}

	return path
}

func TestOpenHDDAllEmptyBanks(t *testing.T) {
	path := writeSparseHDDImage(t, minBankCount, false)

	fs := afero.NewOsFs()
	rf, err := reffile.Open(fs, path, false)
	if err != nil {
		t.Fatalf("reffile.Open: %v", err)
	}

	r, err := openHDD(rf)
	if err != nil {
		t.Fatalf("openHDD: %v", err)
	}
	defer r.Close()

	if !r.IsHDD() {
		t.Error("IsHDD() = false, want true")
	}
	if !r.HasBankTable() {
		t.Error("HasBankTable() = false for a valid NHCD magic, want true")
	}
	if r.BankCount() != minBankCount {
		t.Fatalf("BankCount() = %d, want %d", r.BankCount(), minBankCount)
	}
	for i, bank := range r.Banks() {
		if bank.Type != BankEmpty {
			t.Errorf("bank %d type = %v, want BankEmpty", i, bank.Type)
		}
	}
}

func TestOpenHDDBadMagicFallsBackToMinBankCount(t *testing.T) {
	path := writeSparseHDDImage(t, minBankCount, true)

	fs := afero.NewOsFs()
	rf, err := reffile.Open(fs, path, false)
	if err != nil {
		t.Fatalf("reffile.Open: %v", err)
	}

	r, err := openHDD(rf)
	if err != nil {
		t.Fatalf("openHDD: %v", err)
	}
	defer r.Close()

	if r.HasBankTable() {
		t.Error("HasBankTable() = true for a corrupt magic, want false")
	}
	if r.BankCount() != minBankCount {
		t.Errorf("BankCount() = %d, want fallback of %d", r.BankCount(), minBankCount)
	}
}

func TestOpenHDDDualLayerSynthesizesBank2(t *testing.T) {
	path := writeSparseHDDImage(t, minBankCount, false)

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	// Place a tiny Wii image right after the bank table and point bank 2's
	// entry at it with explicit geometry.
	bankStart := uint32(NHCDBankTableLBA + 1 + minBankCount)
	const bankLen = uint32(16)
	if err := f.Truncate(int64(bankStart+bankLen) * endian.LBASize); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	hdr := make([]byte, endian.LBASize)
	putBE32(hdr[wiicrypto.DiscMagicWiiOff:], wiicrypto.DiscMagicWii)
	copy(hdr[0:6], "RDLE01")
	if _, err := f.WriteAt(hdr, int64(bankStart)*endian.LBASize); err != nil {
		t.Fatalf("WriteAt disc header: %v", err)
	}

	ent := encodeNHCDEntry(nhcdEntry{
		TypeWord:  nhcdTypeWiiDL,
		Timestamp: "20240102030405",
		StartLBA:  bankStart,
		LengthLBA: bankLen,
	}, true)
	entAddr := int64(NHCDBankTableByteAddress) + int64(1+2)*nhcdBlockSize
	if _, err := f.WriteAt(ent, entAddr); err != nil {
		t.Fatalf("WriteAt entry: %v", err)
	}

	fs := afero.NewOsFs()
	rf, err := reffile.Open(fs, path, false)
	if err != nil {
		t.Fatalf("reffile.Open: %v", err)
	}

	r, err := openHDD(rf)
	if err != nil {
		t.Fatalf("openHDD: %v", err)
	}
	defer r.Close()

	banks := r.Banks()
	if banks[2].Type != BankWiiDL {
		t.Fatalf("bank 2 type = %v, want BankWiiDL", banks[2].Type)
	}
	if banks[3].Type != BankWiiDLBank2 {
		t.Errorf("bank 3 type = %v, want the synthesized BankWiiDLBank2", banks[3].Type)
	}
	if banks[3].HasTimestamp {
		t.Error("synthesized DL bank 2 carries a timestamp")
	}
	if banks[2].GameID() != "RDLE01" {
		t.Errorf("bank 2 game ID = %q, want RDLE01", banks[2].GameID())
	}
	if !banks[2].HasTimestamp {
		t.Error("bank 2 lost its table timestamp")
	}
}
