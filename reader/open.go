package reader

// SDK pre-image header constants: two fixed 4-byte fields and a marker
// byte that together identify a disc image prefixed with the SDK's 32 KiB
// debug header.
var (
	sdkMagic0000 = [4]byte{0xFF, 0xFF, 0x00, 0x00}
	sdkMagic082C = [4]byte{0x00, 0x00, 0xE0, 0x06}
)

const (
	sdkMarkerOffset = 0x0844
	sdkMarkerValue  = 0x01
	sdkHeaderLBAs   = 32768 / LBASize
)

// hasSDKHeader reports whether the first 4 KiB peeked from a disc image
// carry the SDK pre-image header.
func hasSDKHeader(peek []byte) bool {
	if len(peek) < sdkMarkerOffset+1 {
		return false
	}
	for i, b := range sdkMagic0000 {
		if peek[i] != b {
			return false
		}
	}
	for i, b := range sdkMagic082C {
		if peek[0x082C+i] != b {
			return false
		}
	}
	return peek[sdkMarkerOffset] == sdkMarkerValue
}

// Open decides which variant to construct by probing: a block device
// always uses Plain; otherwise peek the first 4 KiB and test for CISO,
// then WBFS, then the SDK pre-image header (which shifts startLBA forward
// by 32 KiB); anything else falls back to Plain at the given range.
func Open(backing ReaderAtCloser, isDevice bool, startLBA, lengthLBA uint32) (Reader, error) {
	if isDevice {
		return NewPlain(backing, startLBA, lengthLBA), nil
	}

	peek := make([]byte, 4096)
	n, err := backing.ReadAt(peek, int64(startLBA)*LBASize)
	if err != nil && n == 0 {
		// Empty or unreadable: treat as a fresh plain image.
		return NewPlain(backing, startLBA, lengthLBA), nil
	}
	peek = peek[:n]

	if ProbeCISO(peek) {
		return OpenCISO(backing)
	}
	if ProbeWBFS(peek) {
		return OpenWBFS(backing)
	}
	if lengthLBA > sdkHeaderLBAs && hasSDKHeader(peek) {
		startLBA += sdkHeaderLBAs
		lengthLBA -= sdkHeaderLBAs
	}

	return NewPlain(backing, startLBA, lengthLBA), nil
}
