package rvth

import (
	"time"

	"github.com/bodgit/rvth/wiicrypto"
)

// BankType classifies an NHCD bank-table entry.
type BankType int

const (
	BankEmpty BankType = iota
	BankUnknown
	BankGCN
	BankWiiSL
	BankWiiDL
	BankWiiDLBank2 // placeholder for the second half of a dual-layer image
)

func (t BankType) String() string {
	switch t {
	case BankEmpty:
		return "Empty"
	case BankGCN:
		return "GCN"
	case BankWiiSL:
		return "Wii (Single-Layer)"
	case BankWiiDL:
		return "Wii (Dual-Layer)"
	case BankWiiDLBank2:
		return ""
	default:
		return "Unknown"
	}
}

// CryptoType classifies a Wii bank's title-key encryption.
type CryptoType int

const (
	CryptoNone CryptoType = iota
	CryptoRetail
	CryptoKorean
	CryptoVWii
	CryptoDebug
	CryptoUnknown
)

// SigType classifies a ticket/TMD signature's PKI family.
type SigType int

const (
	SigTypeNone SigType = iota
	SigTypeRetail
	SigTypeDebug
)

// SigStatus is the engine-facing verification outcome for a ticket or TMD
// signature, mapped from wiicrypto.Status.
type SigStatus int

const (
	SigStatusUnknown SigStatus = iota
	SigStatusOK
	SigStatusInvalid
	SigStatusFakesigned
)

// Fakesigned reports whether the signature status is SigStatusFakesigned.
func (s SigStatus) Fakesigned() bool { return s == SigStatusFakesigned }

func sigStatusFrom(s wiicrypto.Status, err error) SigStatus {
	switch {
	case err != nil:
		return SigStatusUnknown
	case s.OK():
		return SigStatusOK
	case s.Fakesigned():
		return SigStatusFakesigned
	default:
		return SigStatusInvalid
	}
}

// AppLoaderError is a best-effort classification of the boot.dol loader's
// validation outcome. No current operation populates this from a real
// AppLoader check (that would require a boot.dol parser); the type exists
// so BankEntry has somewhere to carry it for collaborators that compute
// it themselves.
type AppLoaderError int

const (
	AppLoaderUnknown AppLoaderError = iota
	AppLoaderOK
	AppLoaderFileReadError
	AppLoaderExtractCertsError
	AppLoaderVerifyCertsError
	AppLoaderDeviceError
	AppLoaderVerifyError
	AppLoaderDecryptError
	AppLoaderIOSLoadError
	AppLoaderIOSReloadBlocked
	AppLoaderFailedLoadIOS
	AppLoaderDolTooBig
	AppLoaderDolDataSeg2Big
)

// BankEntry describes one slot in the NHCD bank table (or the single
// entry synthesized for a standalone GCM/CISO/WBFS image).
type BankEntry struct {
	Index int

	Type      BankType
	StartLBA  uint32
	LengthLBA uint32

	Timestamp time.Time
	HasTimestamp bool
	Deleted      bool

	DiscHeader [wiicrypto.DiscHeaderSize]byte

	Region     byte
	Crypto     CryptoType
	IOSVersion byte
	HasIOS     bool

	TicketSigType SigType
	TMDSigType    SigType
	TicketSig     SigStatus
	TMDSig        SigStatus

	AppLoaderErr AppLoaderError

	// reader is nil for Empty and Wii-DL-Bank2 entries; the synthesized
	// placeholder has no backing range of its own.
	reader bankReader
}

// bankReader is the subset of reader.Reader the root package depends on;
// kept as an interface here (rather than importing the reader package's
// concrete types into every call site) so bankentry.go stays a pure data
// type.
type bankReader interface {
	ReadLBA(dst []byte, lba, nlba uint32) (uint32, error)
	WriteLBA(src []byte, lba, nlba uint32) (uint32, error)
	Flush() error
	Close() error
	StartLBA() uint32
	LengthLBA() uint32
}

// GameID returns the 6-byte ASCII game ID from the cached disc header.
func (e *BankEntry) GameID() string {
	return string(e.DiscHeader[0:6])
}

// IsUnencrypted reports the disc header's "unencrypted disc" flags: both
// hash_verify and disc_noCrypt non-zero.
func (e *BankEntry) IsUnencrypted() bool {
	return e.DiscHeader[wiicrypto.DiscHeaderOffHashVerify] != 0 &&
		e.DiscHeader[wiicrypto.DiscHeaderOffDiscNoCrypt] != 0
}

// IsWii reports whether the cached disc header carries the Wii magic.
func (e *BankEntry) IsWii() bool {
	return be32(e.DiscHeader[wiicrypto.DiscMagicWiiOff:]) == wiicrypto.DiscMagicWii
}

// IsGCN reports whether the cached disc header carries the GameCube magic.
func (e *BankEntry) IsGCN() bool {
	return be32(e.DiscHeader[wiicrypto.DiscMagicGCNOff:]) == wiicrypto.DiscMagicGCN
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
