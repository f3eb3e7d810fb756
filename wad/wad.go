// Package wad implements the Wii WAD/BWF title-container format: parsing
// of both on-disk header layouts and the section map (certificate chain,
// ticket, TMD, content data, optional footer/metadata) they describe.
// Decoded structures are wiicrypto.Ticket/TMD views kept over raw byte
// buffers rather than overlaid Go structs, like the rest of the module.
package wad

import (
	"github.com/bodgit/rvth"
	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
	"go4.org/readerutil"
)

// Format distinguishes the two WAD header layouts a title container can
// carry.
type Format int

const (
	// FormatStandard is the retail "Is"/"ib"/"Bk" layout: 64-byte aligned
	// sections with an implicit data offset derived from them.
	FormatStandard Format = iota
	// FormatBWF is the BroadOn devkit layout: an explicit data_offset
	// field, with sections aligned to 16 bytes.
	FormatBWF
)

func (f Format) String() string {
	if f == FormatBWF {
		return "bwf"
	}
	return "wad"
}

// headerSize covers both on-disk header layouts, which are exactly 32
// bytes each.
const headerSize = 0x20

// Standard WAD header type tags, packed into the high 16 bits of the
// 4-byte type field.
const (
	headerTypeIs uint32 = 0x49730000 // "Is": most titles
	headerTypeIb uint32 = 0x69620000 // "ib": boot2
	headerTypeBk uint32 = 0x426B0000 // "Bk": NAND system-menu backup
)

// Standard WAD header field offsets.
const (
	stdOffHeaderSize    = 0x00
	stdOffType          = 0x04
	stdOffCertChainSize = 0x08
	stdOffCRLSize       = 0x0C
	stdOffTicketSize    = 0x10
	stdOffTMDSize       = 0x14
	stdOffDataSize      = 0x18
	stdOffFooterSize    = 0x1C
)

// BWF header field offsets: eight 4-byte fields, exactly 32 bytes.
const (
	bwfOffHeaderSize    = 0x00
	bwfOffDataOffset    = 0x04
	bwfOffCertChainSize = 0x08
	bwfOffTicketSize    = 0x0C
	bwfOffTMDSize       = 0x10
	bwfOffMetaSize      = 0x14
	bwfOffMetaCID       = 0x18
	bwfOffCRLSize       = 0x1C
)

// Section size limits enforced before any section is loaded.
const (
	maxTicketSize = 0x10000   // 64 KiB
	maxTMDSize    = 1 << 20   // 1 MiB
	maxMetaSize   = 1 << 20   // 1 MiB
	maxDataSize   = 128 << 20 // 128 MiB
)

// Info is the decoded section map of a WAD/BWF header.
type Info struct {
	Format Format

	CertChainAddress, CertChainSize uint32
	TicketAddress, TicketSize       uint32
	TMDAddress, TMDSize             uint32
	DataAddress, DataSize           uint32
	FooterAddress, FooterSize       uint32
}

// WAD is a parsed title container: the decoded ticket and TMD plus the
// section map needed to stream the certificate chain and content data
// without re-reading the header.
type WAD struct {
	ra   readerutil.SizeReaderAt
	Info Info

	Ticket *wiicrypto.Ticket
	TMD    *wiicrypto.TMD
}

// Open parses ra's header, decodes its ticket and TMD, and validates
// every section size. Content data is not read here; Resign and
// WriteNUSDirectory stream it directly from ra.
func Open(ra readerutil.SizeReaderAt) (*WAD, error) {
	hdr := make([]byte, headerSize)
	if _, err := ra.ReadAt(hdr, 0); err != nil {
		return nil, rvth.WrapError(err)
	}

	info, err := parseHeader(hdr)
	if err != nil {
		return nil, err
	}

	if info.TicketSize < wiicrypto.TicketSize || info.TicketSize > maxTicketSize {
		return nil, rvth.NewError(rvth.CodeWADTicketSizeInvalid)
	}
	if info.TMDSize < wiicrypto.TMDHeaderSizeWii || info.TMDSize > maxTMDSize {
		return nil, rvth.NewError(rvth.CodeWADTMDSizeInvalid)
	}
	if info.FooterSize > maxMetaSize {
		return nil, rvth.NewError(rvth.CodeWADMetaSizeInvalid)
	}

	size := ra.Size()
	switch info.Format {
	case FormatBWF:
		if size < int64(info.DataAddress) {
			return nil, rvth.NewError(rvth.CodeWADDataSizeInvalid)
		}
		info.DataSize = uint32(size - int64(info.DataAddress))
	default:
		if size < int64(info.DataAddress) || size-int64(info.DataAddress) < int64(info.DataSize) {
			return nil, rvth.NewError(rvth.CodeWADDataSizeInvalid)
		}
	}
	if info.DataSize > maxDataSize {
		return nil, rvth.NewError(rvth.CodeWADDataSizeInvalid)
	}

	ticketBuf := make([]byte, info.TicketSize)
	if _, err := ra.ReadAt(ticketBuf, int64(info.TicketAddress)); err != nil {
		return nil, rvth.WrapError(err)
	}
	ticket := &wiicrypto.Ticket{}
	copy(ticket.Raw[:], ticketBuf[:wiicrypto.TicketSize])

	tmdBuf := make([]byte, info.TMDSize)
	if _, err := ra.ReadAt(tmdBuf, int64(info.TMDAddress)); err != nil {
		return nil, rvth.WrapError(err)
	}

	return &WAD{ra: ra, Info: info, Ticket: ticket, TMD: &wiicrypto.TMD{Raw: tmdBuf}}, nil
}

// parseHeader identifies which of the two layouts buf holds and decodes
// its section map.
func parseHeader(buf []byte) (Info, error) {
	if len(buf) < headerSize || be32(buf[stdOffHeaderSize:]) != headerSize {
		return Info{}, rvth.NewError(rvth.CodeWADHeaderCorrupted)
	}

	switch be32(buf[stdOffType:]) & 0xFFFF0000 {
	case headerTypeIs, headerTypeIb, headerTypeBk:
		return parseStandardHeader(buf), nil
	}

	if be32(buf[bwfOffTicketSize:]) == wiicrypto.TicketSize {
		return parseBWFHeader(buf), nil
	}

	return Info{}, rvth.NewError(rvth.CodeWADFormatUnsupported)
}

func parseStandardHeader(buf []byte) Info {
	info := Info{Format: FormatStandard}

	info.CertChainAddress = endian.AlignUp32(headerSize, 64)
	info.CertChainSize = be32(buf[stdOffCertChainSize:])

	info.TicketAddress = endian.AlignUp32(info.CertChainAddress+info.CertChainSize, 64)
	info.TicketSize = be32(buf[stdOffTicketSize:])

	info.TMDAddress = endian.AlignUp32(info.TicketAddress+info.TicketSize, 64)
	info.TMDSize = be32(buf[stdOffTMDSize:])

	info.DataAddress = endian.AlignUp32(info.TMDAddress+info.TMDSize, 64)
	info.DataSize = be32(buf[stdOffDataSize:])

	if footerSize := be32(buf[stdOffFooterSize:]); footerSize != 0 {
		info.FooterAddress = endian.AlignUp32(info.DataAddress+info.DataSize, 64)
		info.FooterSize = footerSize
	}

	return info
}

func parseBWFHeader(buf []byte) Info {
	info := Info{Format: FormatBWF}

	info.CertChainAddress = endian.AlignUp32(headerSize, 16)
	info.CertChainSize = be32(buf[bwfOffCertChainSize:])

	info.TicketAddress = endian.AlignUp32(info.CertChainAddress+info.CertChainSize, 16)
	info.TicketSize = be32(buf[bwfOffTicketSize:])

	info.TMDAddress = endian.AlignUp32(info.TicketAddress+info.TicketSize, 16)
	info.TMDSize = be32(buf[bwfOffTMDSize:])

	if metaSize := be32(buf[bwfOffMetaSize:]); metaSize != 0 {
		info.FooterAddress = endian.AlignUp32(info.TMDAddress+info.TMDSize, 16)
		info.FooterSize = metaSize
	}

	// The data offset is declared explicitly rather than derived from
	// the preceding sections.
	info.DataAddress = be32(buf[bwfOffDataOffset:])

	return info
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
