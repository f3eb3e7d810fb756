package wiicrypto

// CommonKeyIndex identifies which of a PKI's common keys a ticket's title
// key was encrypted under.
type CommonKeyIndex int

const (
	CommonKeyRetail CommonKeyIndex = iota
	CommonKeyKorean
	CommonKeyVWii
	CommonKeyDebug
)

// commonKeys holds one placeholder 16-byte AES key per (issuer family,
// index). The genuine Nintendo common keys are not present anywhere in
// this toolkit's source corpus; using them would mean fabricating secret
// material this project has no right to carry, so each slot holds a
// distinct, clearly-synthetic 16-byte value derived from its own label.
// Swapping in the genuine keys is a change to this table only.
var commonKeys = map[CommonKeyIndex][16]byte{
	CommonKeyRetail: keyFromLabel("rvth-retail-key-"),
	CommonKeyKorean: keyFromLabel("rvth-korean-key-"),
	CommonKeyVWii:   keyFromLabel("rvth-vwii-key--"),
	CommonKeyDebug:  keyFromLabel("rvth-debug-key--"),
}

func keyFromLabel(label string) [16]byte {
	var k [16]byte
	copy(k[:], label)
	return k
}

// CommonKey returns the placeholder AES key for the given index.
func CommonKey(idx CommonKeyIndex) []byte {
	k := commonKeys[idx]
	return k[:]
}

// CommonKeyForTicket derives the (PKI family, index) pair for a ticket
// whose issuer has already been classified. gameID is the disc header's
// 6-character game ID; its last byte is consulted only when a retail
// ticket carries a common-key index outside {0,1,2}, tolerating the
// malformed indices some homebrew WADs carry ('K' suffix -> guess Korean,
// anything else -> guess Retail) rather than treating the ticket as
// unreadable.
//
// unencrypted forces CommonKeyRetail with ok=false, signalling "no crypto"
// to callers (disc header claimed hash_verify && disc_noCrypt).
func CommonKeyForTicket(issuer Issuer, index byte, gameID string, unencrypted bool) (idx CommonKeyIndex, ok bool, guessed bool) {
	if unencrypted {
		return CommonKeyRetail, false, false
	}
	switch {
	case issuer.IsRetail():
		switch index {
		case 0:
			return CommonKeyRetail, true, false
		case 1:
			return CommonKeyKorean, true, false
		case 2:
			return CommonKeyVWii, true, false
		default:
			if len(gameID) > 0 && gameID[len(gameID)-1] == 'K' {
				return CommonKeyKorean, true, true
			}
			return CommonKeyRetail, true, true
		}
	case issuer.IsDebug():
		if index == 0 {
			return CommonKeyDebug, true, false
		}
		return CommonKeyDebug, true, true
	default:
		return CommonKeyRetail, false, false
	}
}
