package rvth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/spf13/afero"
)

func extractSourceEntry(src []byte) *BankEntry {
	hdr := wiiDiscHeader("RZDE01")
	copy(src, hdr[:])
	return &BankEntry{
		Type:       BankWiiSL,
		LengthLBA:  uint32(len(src) / endian.LBASize),
		DiscHeader: hdr,
		reader:     newFakeBankReader(append([]byte(nil), src...)),
	}
}

func TestExtractShortImageTail(t *testing.T) {
	// Shorter than one copy buffer, so the whole image goes through the
	// 512-byte-granularity tail path.
	const lbas = 8
	src := make([]byte, lbas*endian.LBASize)
	for i := 5 * endian.LBASize; i < 6*endian.LBASize; i++ {
		src[i] = 0xAB
	}
	entry := extractSourceEntry(src)
	r := &RVTH{banks: []*BankEntry{entry}}

	fs := afero.NewMemMapFs()
	var states []ProgressState
	err := r.Extract(context.Background(), 0, fs, "/out.gcm", func(s ProgressState) bool {
		states = append(states, s)
		return true
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := afero.ReadFile(fs, "/out.gcm")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(src) {
		t.Fatalf("output length = %d, want %d (logical size committed by the final zero block)", len(got), len(src))
	}
	if !bytes.Equal(got, src) {
		t.Error("output differs from the source bank")
	}

	if len(states) < 2 {
		t.Fatalf("progress callback invoked %d times, want at least 2", len(states))
	}
	if states[0].Type != ProgressExtract || states[0].Processed != 0 || states[0].Total != lbas {
		t.Errorf("first progress state = %+v", states[0])
	}
	if last := states[len(states)-1]; last.Processed != lbas || last.Total != lbas {
		t.Errorf("final progress state = %+v, want Processed == Total == %d", last, lbas)
	}
}

func TestExtractMultiBufferSkipsZeroBlocks(t *testing.T) {
	// One full 1 MiB buffer plus a 4-LBA tail.
	const lbas = extractBufLBAs + 4
	src := make([]byte, lbas*endian.LBASize)
	// A non-zero 4 KiB block inside the buffered region.
	for i := 16 * endian.LBASize; i < 24*endian.LBASize; i++ {
		src[i] = 0x5A
	}
	// A non-zero LBA in the tail.
	for i := (extractBufLBAs + 2) * endian.LBASize; i < (extractBufLBAs+3)*endian.LBASize; i++ {
		src[i] = 0xC3
	}
	entry := extractSourceEntry(src)
	r := &RVTH{banks: []*BankEntry{entry}}

	fs := afero.NewMemMapFs()
	if err := r.Extract(context.Background(), 0, fs, "/out.gcm", nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := afero.ReadFile(fs, "/out.gcm")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(src) {
		t.Fatalf("output length = %d, want %d", len(got), len(src))
	}
	if !bytes.Equal(got, src) {
		t.Error("output differs from the source bank")
	}
}

func TestExtractCancelledByCallback(t *testing.T) {
	src := make([]byte, 8*endian.LBASize)
	entry := extractSourceEntry(src)
	r := &RVTH{banks: []*BankEntry{entry}}

	fs := afero.NewMemMapFs()
	err := r.Extract(context.Background(), 0, fs, "/out.gcm", func(ProgressState) bool { return false })
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Extract with a cancelling callback = %v, want ErrCancelled", err)
	}
}

func TestExtractCancelledByContext(t *testing.T) {
	src := make([]byte, 8*endian.LBASize)
	entry := extractSourceEntry(src)
	r := &RVTH{banks: []*BankEntry{entry}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := afero.NewMemMapFs()
	err := r.Extract(ctx, 0, fs, "/out.gcm", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Extract with a cancelled context = %v, want ErrCancelled", err)
	}
}

func TestExtractRejectsBadBanks(t *testing.T) {
	hdr := wiiDiscHeader("RZDE01")
	deleted := &BankEntry{Type: BankWiiSL, LengthLBA: 4, DiscHeader: hdr, Deleted: true, reader: newFakeBankReader(make([]byte, 4*endian.LBASize))}
	empty := &BankEntry{Type: BankEmpty}
	bank2 := &BankEntry{Type: BankWiiDLBank2}
	unknown := &BankEntry{Type: BankUnknown}
	r := &RVTH{banks: []*BankEntry{deleted, empty, bank2, unknown}}

	fs := afero.NewMemMapFs()
	for _, tc := range []struct {
		bank int
		want Code
	}{
		{0, CodeBankAlreadyDeleted},
		{1, CodeBankEmpty},
		{2, CodeBankIsDLBank2},
		{3, CodeBankUnknown},
	} {
		err := r.Extract(context.Background(), tc.bank, fs, "/out.gcm", nil)
		if !errors.Is(err, NewError(tc.want)) {
			t.Errorf("Extract(bank=%d) = %v, want %v", tc.bank, err, tc.want)
		}
	}
}
