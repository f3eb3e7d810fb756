// Package wiicrypto implements the on-disk cryptographic structures used by
// GameCube and Wii disc images: AES-128-CBC title-key decryption, SHA-1/
// SHA-256 hashing, raw RSA modular exponentiation, and the certificate,
// ticket and TMD shapes that the signature/recrypt engine operates on.
//
// Every multi-byte field on disk is big-endian; structures are decoded by
// explicit field reads from byte buffers, never by overlaying a Go struct
// onto a byte slice.
package wiicrypto

import "crypto/sha256"

// SignatureType is the 4-byte big-endian tag at the start of every signed
// structure (certificate, ticket, TMD).
type SignatureType uint32

// Signature type values as they appear on disk.
const (
	SigRSA4096SHA1   SignatureType = 0x10000
	SigRSA2048SHA1   SignatureType = 0x10001
	SigECDSASHA1     SignatureType = 0x10002
	SigRSA4096SHA256 SignatureType = 0x10003
	SigRSA2048SHA256 SignatureType = 0x10004
	SigECDSASHA256   SignatureType = 0x10005
)

// SigLen returns the RSA signature length for t, or 0 with ok=false for any
// type this toolkit's signature engine does not verify (ECDSA).
func (t SignatureType) SigLen() (n int, ok bool) {
	switch t {
	case SigRSA4096SHA1, SigRSA4096SHA256:
		return 512, true
	case SigRSA2048SHA1, SigRSA2048SHA256:
		return 256, true
	default:
		return 0, false
	}
}

// Fixed field widths shared by ticket, TMD and certificate parsing.
const (
	IssuerLen   = 64
	SigPadLen4K = 60 // padding after a 512-byte RSA-4096 signature to a 64-byte boundary
	SigPadLen2K = 60 // padding after a 256-byte RSA-2048 signature
)

// TicketSize is the fixed, on-disk size of a Wii ticket.
const TicketSize = 0x2A4

// Ticket field offsets, relative to the start of the ticket.
const (
	TicketOffSigType     = 0x000
	TicketOffSig         = 0x004
	TicketOffIssuer      = 0x140
	TicketOffECDHData    = 0x180
	TicketOffTitleKey    = 0x1BF
	TicketOffUnknown1    = 0x1CF
	TicketOffTicketID    = 0x1D0
	TicketOffConsoleID   = 0x1D8
	TicketOffTitleID     = 0x1DC // also used as the AES-CBC IV (8 bytes + 8 zero bytes)
	TicketOffUnknown2    = 0x1E4
	TicketOffTicketVer   = 0x1E6
	TicketOffPermittedTs = 0x1E8
	TicketOffPermitMask  = 0x1EC
	TicketOffTitleExport = 0x1F0
	TicketOffCommonKeyIx = 0x1F1
	// TicketOffPadding2 is the start of the reserved block between the
	// common-key index and the content-access permissions. Its first 16
	// bytes carry no meaning and serve as Fakesign's brute-force counter.
	TicketOffPadding2    = 0x1F2
	TicketOffContentPerm = 0x222
)

// Ticket is a decoded view over a TicketSize-byte buffer. It keeps the raw
// bytes so re-signing only rewrites the fields that changed.
type Ticket struct {
	Raw [TicketSize]byte
}

// SigType returns the ticket's signature type.
func (t *Ticket) SigType() SignatureType {
	return SignatureType(be32(t.Raw[TicketOffSigType:]))
}

// Issuer returns the NUL-padded 64-byte issuer string, trimmed.
func (t *Ticket) Issuer() string {
	return trimIssuer(t.Raw[TicketOffIssuer : TicketOffIssuer+IssuerLen])
}

// SetIssuer overwrites the issuer field, NUL-padding to IssuerLen.
func (t *Ticket) SetIssuer(issuer string) {
	putIssuer(t.Raw[TicketOffIssuer:TicketOffIssuer+IssuerLen], issuer)
}

// CommonKeyIndex returns the single-byte common-key selector.
func (t *Ticket) CommonKeyIndex() byte {
	return t.Raw[TicketOffCommonKeyIx]
}

// SetCommonKeyIndex sets the common-key selector.
func (t *Ticket) SetCommonKeyIndex(ix byte) {
	t.Raw[TicketOffCommonKeyIx] = ix
}

// EncryptedTitleKey returns the 16-byte AES-CBC encrypted title key.
func (t *Ticket) EncryptedTitleKey() []byte {
	return t.Raw[TicketOffTitleKey : TicketOffTitleKey+16]
}

// TitleID returns the 8-byte big-endian title ID, used verbatim as the
// high 8 bytes of the title-key decryption IV.
func (t *Ticket) TitleID() uint64 {
	return be64(t.Raw[TicketOffTitleID:])
}

// TitleKeyIV returns the 16-byte IV (title ID followed by 8 zero bytes)
// used to decrypt/encrypt the title key under a PKI common key.
func (t *Ticket) TitleKeyIV() []byte {
	iv := make([]byte, 16)
	copy(iv, t.Raw[TicketOffTitleID:TicketOffTitleID+8])
	return iv
}

// Signature returns the mutable signature bytes for the ticket's declared
// signature type.
func (t *Ticket) Signature() []byte {
	n, ok := t.SigType().SigLen()
	if !ok {
		n = 256
	}
	return t.Raw[TicketOffSig : TicketOffSig+n]
}

// TMD header offsets. The content table follows immediately at
// TMDHeaderSize (0x1E4 for Wii, 0x204 for Wii U; the extra 0x20 bytes are
// the outer SHA-256 over the content table that only Wii U TMDs carry).
const (
	TMDOffSigType      = 0x000
	TMDOffSig          = 0x004
	TMDOffIssuer       = 0x140
	TMDOffVersion      = 0x180
	TMDOffCACRLVersion = 0x181
	TMDOffSignerCRLVer = 0x182
	TMDOffSysVersion   = 0x184
	TMDOffTitleID      = 0x18C
	TMDOffTitleType    = 0x194
	TMDOffGroupID      = 0x198
	// TMDOffReserved is the reserved padding run before the access-rights
	// field. Its first 16 bytes serve as Fakesign's brute-force counter;
	// the content table's hashes are never touched.
	TMDOffReserved = 0x1C6

	TMDOffAccessRights = 0x1D8
	TMDOffTitleVersion = 0x1DC
	TMDOffContentCount = 0x1DE
	TMDOffBootIndex    = 0x1E0

	// Wii TMD header ends at 0x1E4; content entries follow directly.
	TMDHeaderSizeWii = 0x1E4
	// Wii U TMDs insert a SHA-256 over the content info table at 0x1E4,
	// pushing the content table start to 0x204.
	TMDHeaderSizeWiiU = 0x204
)

// TMD content entry sizes: 0x24 bytes on Wii, 0x30 on Wii U (extra 12
// bytes for the outer-hashed "group" metadata).
const (
	ContentEntrySizeWii  = 0x24
	ContentEntrySizeWiiU = 0x30
)

// ContentEntry is one decoded TMD content table row.
type ContentEntry struct {
	ContentID uint32
	Index     uint16
	Type      uint16
	Size      uint64
	SHA1      [20]byte
}

// TMD is a decoded view over a variable-length TMD buffer (header plus N
// content entries). The header size and content-entry width both depend
// on the Version byte (Wii vs Wii U).
type TMD struct {
	Raw []byte
}

// SigType returns the TMD's signature type.
func (m *TMD) SigType() SignatureType {
	return SignatureType(be32(m.Raw[TMDOffSigType:]))
}

// Issuer returns the trimmed 64-byte issuer string.
func (m *TMD) Issuer() string {
	return trimIssuer(m.Raw[TMDOffIssuer : TMDOffIssuer+IssuerLen])
}

// SetIssuer overwrites the issuer field.
func (m *TMD) SetIssuer(issuer string) {
	putIssuer(m.Raw[TMDOffIssuer:TMDOffIssuer+IssuerLen], issuer)
}

// Version is 1 for Wii U TMDs, 0 for Wii.
func (m *TMD) Version() byte {
	return m.Raw[TMDOffVersion]
}

// HeaderSize returns the content-table start offset for this TMD.
func (m *TMD) HeaderSize() int {
	if m.Version() >= 1 {
		return TMDHeaderSizeWiiU
	}
	return TMDHeaderSizeWii
}

// ContentEntrySize returns 0x24 or 0x30 depending on Version.
func (m *TMD) ContentEntrySize() int {
	if m.Version() >= 1 {
		return ContentEntrySizeWiiU
	}
	return ContentEntrySizeWii
}

// SysVersionHi/SysVersionLo split the 8-byte system version (IOS title
// ID) into its two 32-bit halves.
func (m *TMD) SysVersionHi() uint32 { return uint32(be64(m.Raw[TMDOffSysVersion:]) >> 32) }
func (m *TMD) SysVersionLo() uint32 { return uint32(be64(m.Raw[TMDOffSysVersion:])) }

// IOSVersion returns the IOS version byte if the system version identifies
// an IOS title (hi==1, lo<256), and ok=false otherwise.
func (m *TMD) IOSVersion() (v byte, ok bool) {
	if m.SysVersionHi() == 1 && m.SysVersionLo() < 256 {
		return byte(m.SysVersionLo()), true
	}
	return 0, false
}

// TitleID returns the TMD's 8-byte title ID.
func (m *TMD) TitleID() uint64 { return be64(m.Raw[TMDOffTitleID:]) }

// ContentCount returns the number of content-table entries.
func (m *TMD) ContentCount() int { return int(be16(m.Raw[TMDOffContentCount:])) }

// Signature returns the mutable signature bytes.
func (m *TMD) Signature() []byte {
	n, ok := m.SigType().SigLen()
	if !ok {
		n = 256
	}
	return m.Raw[TMDOffSig : TMDOffSig+n]
}

// Contents decodes the content table.
func (m *TMD) Contents() []ContentEntry {
	hdr := m.HeaderSize()
	width := m.ContentEntrySize()
	n := m.ContentCount()
	out := make([]ContentEntry, n)
	for i := 0; i < n; i++ {
		off := hdr + i*width
		out[i] = ContentEntry{
			ContentID: be32(m.Raw[off:]),
			Index:     be16(m.Raw[off+4:]),
			Type:      be16(m.Raw[off+6:]),
			Size:      be64(m.Raw[off+8:]),
		}
		copy(out[i].SHA1[:], m.Raw[off+16:off+36])
	}
	return out
}

// OuterHash returns the SHA-256 over the content table for Wii U TMDs.
func OuterHash(contentTable []byte) [sha256.Size]byte {
	return sha256.Sum256(contentTable)
}

// --- Disc header (0x62 bytes, magic at 0x18 Wii / 0x1C GCN) ---

const (
	// DiscHeaderSize covers the game ID/title block plus the
	// hash_verify/disc_nocrypt flag bytes at 0x60/0x61.
	DiscHeaderSize  = 0x62
	DiscMagicWiiOff = 0x18
	DiscMagicGCNOff = 0x1C
	DiscMagicWii    = 0x5D1C9EA3
	DiscMagicGCN    = 0xC2339F3D

	DiscHeaderOffGameID      = 0x00
	DiscHeaderOffDiscNumber  = 0x06
	DiscHeaderOffRevision    = 0x07
	DiscHeaderOffTitle       = 0x20
	DiscHeaderOffHashVerify  = 0x60
	DiscHeaderOffDiscNoCrypt = 0x61
)

// NDDEMOHeader is the 64-byte GameCube debug-disc signature checked when
// neither the Wii nor GCN magic matches.
var NDDEMOHeader = [64]byte{
	0x30, 0x30, 0x00, 0x00, 'N', 'D', 'D', 'E', 'M', 'O', ' ', 0,
}

// --- Volume group / partition table (at byte offset 0x40000) ---

const (
	VolumeGroupTableOffset = 0x40000
	NumVolumeGroups        = 4
)

// VolumeGroupEntry is one of the four entries in the volume group table.
type VolumeGroupEntry struct {
	Count uint32
	Addr  uint32 // >>2 units, byte address = Addr<<2
}

// PartitionTableEntry is an (addr>>2, type) pair.
type PartitionTableEntry struct {
	Addr uint32 // >>2 units
	Type uint32
}

// ByteOffset returns the partition's byte offset on disc.
func (e PartitionTableEntry) ByteOffset() int64 { return int64(e.Addr) << 2 }

// Partition types.
const (
	PartitionTypeGame   = 0
	PartitionTypeUpdate = 1
	PartitionTypeChannel = 2
)

// --- Wii partition header ---

const (
	PartitionHeaderOffTicket      = 0x000
	PartitionHeaderOffTMDSize     = 0x2A4
	PartitionHeaderOffTMDOffset   = 0x2A8 // >>2
	PartitionHeaderOffCertSize    = 0x2AC
	PartitionHeaderOffCertOffset  = 0x2B0 // >>2
	PartitionHeaderOffH3Offset    = 0x2B4 // >>2
	PartitionHeaderOffDataOffset  = 0x2B8 // >>2
	PartitionHeaderOffDataSize    = 0x2BC // >>2
	PartitionHeaderSize           = 0x2C0
	H3TableSize                   = 0x18000
)

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be64(b []byte) uint64 {
	return uint64(be32(b))<<32 | uint64(be32(b[4:]))
}
func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
func putBE64(b []byte, v uint64) {
	putBE32(b, uint32(v>>32))
	putBE32(b[4:], uint32(v))
}

func trimIssuer(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

func putIssuer(dst []byte, issuer string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, issuer)
}
