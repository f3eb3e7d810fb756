package rvth

import "testing"

func TestParseNHCDHeader(t *testing.T) {
	buf := make([]byte, 12)
	putBE32(buf[0:], nhcdMagic)
	putBE32(buf[4:], 1)
	putBE32(buf[8:], 8)

	h, ok := parseNHCDHeader(buf)
	if !ok {
		t.Fatal("parseNHCDHeader ok = false for valid magic")
	}
	if h.BankCount != 8 {
		t.Errorf("BankCount = %d, want 8", h.BankCount)
	}
}

func TestParseNHCDHeaderBadMagic(t *testing.T) {
	buf := make([]byte, 12)
	putBE32(buf[0:], 0xDEADBEEF)
	if _, ok := parseNHCDHeader(buf); ok {
		t.Error("parseNHCDHeader ok = true for bad magic, want false")
	}
}

func TestParseNHCDHeaderTooShort(t *testing.T) {
	if _, ok := parseNHCDHeader(make([]byte, 8)); ok {
		t.Error("parseNHCDHeader ok = true for a short buffer, want false")
	}
}

func TestEncodeParseNHCDEntryRoundTrip(t *testing.T) {
	e := nhcdEntry{
		TypeWord:  nhcdTypeWiiSL,
		Timestamp: "20230615143022",
		StartLBA:  0x1000,
		LengthLBA: 0x2000,
	}
	buf := encodeNHCDEntry(e, true)
	if len(buf) != nhcdBlockSize {
		t.Fatalf("encodeNHCDEntry length = %d, want %d", len(buf), nhcdBlockSize)
	}

	got := parseNHCDEntry(buf)
	if got != e {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestEncodeNHCDEntryUnpopulatedIsZeroed(t *testing.T) {
	e := nhcdEntry{TypeWord: nhcdTypeEmpty}
	buf := encodeNHCDEntry(e, false)
	for i, b := range buf {
		if i < 4 {
			continue // type word
		}
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0 for an unpopulated entry", i, b)
		}
	}
}

func TestBankTypeWordRoundTrip(t *testing.T) {
	tests := []struct {
		typ  BankType
		word uint32
	}{
		{BankEmpty, nhcdTypeEmpty},
		{BankGCN, nhcdTypeGCN},
		{BankWiiSL, nhcdTypeWiiSL},
		{BankWiiDL, nhcdTypeWiiDL},
	}
	for _, tt := range tests {
		if got := bankTypeToWord(tt.typ); got != tt.word {
			t.Errorf("bankTypeToWord(%v) = %#x, want %#x", tt.typ, got, tt.word)
		}
		if got := bankTypeFromWord(tt.word); got != tt.typ {
			t.Errorf("bankTypeFromWord(%#x) = %v, want %v", tt.word, got, tt.typ)
		}
	}
}

func TestBankTypeFromWordUnknown(t *testing.T) {
	if got := bankTypeFromWord(0xFF); got != BankUnknown {
		t.Errorf("bankTypeFromWord(unknown) = %v, want BankUnknown", got)
	}
}

func TestDefaultGeometryKeepsExplicitLength(t *testing.T) {
	startLBA, lengthLBA := defaultGeometry(2, 8, BankGCN, 0x500, 0x600)
	if startLBA != 0x500 || lengthLBA != 0x600 {
		t.Errorf("defaultGeometry with explicit length = (%#x, %#x), want (0x500, 0x600)", startLBA, lengthLBA)
	}
}

func TestDefaultGeometryFillsInGCNSize(t *testing.T) {
	_, lengthLBA := defaultGeometry(2, 8, BankGCN, 0x500, 0)
	if lengthLBA != defaultGCNSizeLBA {
		t.Errorf("defaultGeometry GCN length = %d, want %d", lengthLBA, defaultGCNSizeLBA)
	}
}

func TestDefaultGeometryBank1ExtendedTableShrinks(t *testing.T) {
	_, lengthLBA := defaultGeometry(0, 16, BankWiiSL, 0x500, 0)
	if lengthLBA != extBank1SizeLBA {
		t.Errorf("defaultGeometry bank 1 extended length = %d, want %d", lengthLBA, extBank1SizeLBA)
	}
}

func TestDefaultGeometryBank1StandardTableUsesDefaultSize(t *testing.T) {
	_, lengthLBA := defaultGeometry(0, 8, BankWiiDL, 0x500, 0)
	if lengthLBA != defaultWiiDLSizeLBA {
		t.Errorf("defaultGeometry bank 1 standard-table length = %d, want %d", lengthLBA, defaultWiiDLSizeLBA)
	}
}
