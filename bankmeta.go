package rvth

import (
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/sirupsen/logrus"
)

// GCN and Wii region-code byte offsets: GameCube's region lives in
// bi2.bin (the second half of the 0x480-byte boot area); Wii's lives in
// its own region-settings block further into the disc.
const (
	gcnRegionByteOffset = 0x440
	wiiRegionByteOffset = 0x4E000
)

// deriveRegion reads the bank's region code: for GCN, bi2.bin's
// region_code; for Wii, the region-settings block. Both are a 32-bit
// big-endian field of which only the low byte carries meaning.
func deriveRegion(r bankReader, isWii bool) (byte, error) {
	off := int64(gcnRegionByteOffset)
	if isWii {
		off = wiiRegionByteOffset
	}
	buf, err := readBytes(r, off, 4)
	if err != nil {
		return 0xFF, err
	}
	return byte(be32(buf)), nil
}

// findGamePartition locates the Game Partition's byte offset by walking
// the volume-group table the same way recoverDeletedDiscHeader does. It
// returns ok=false if no volume group or no Game Partition entry could be
// found.
func findGamePartition(r bankReader) (byteOffset int64, ok bool) {
	const vgEntrySize = 8
	vgtBuf, err := readBytes(r, wiicrypto.VolumeGroupTableOffset, wiicrypto.NumVolumeGroups*vgEntrySize)
	if err != nil {
		return 0, false
	}

	for i := 0; i < wiicrypto.NumVolumeGroups; i++ {
		off := i * vgEntrySize
		count := be32(vgtBuf[off:])
		addr := be32(vgtBuf[off+4:])
		if count == 0 {
			continue
		}

		const ptEntrySize = 8
		ptBuf, err := readBytes(r, int64(addr)<<2, int(count)*ptEntrySize)
		if err != nil {
			continue
		}
		for j := 0; j < int(count); j++ {
			e := wiicrypto.PartitionTableEntry{
				Addr: be32(ptBuf[j*ptEntrySize:]),
				Type: be32(ptBuf[j*ptEntrySize+4:]),
			}
			if e.Type == wiicrypto.PartitionTypeGame {
				return e.ByteOffset(), true
			}
		}
	}
	return 0, false
}

// bankCrypto holds everything deriveCrypto reads out of a Wii bank's Game
// Partition: the derived crypto type, ticket/TMD signature classification
// and status, and the IOS version if the TMD names one.
type bankCrypto struct {
	Crypto     CryptoType
	TicketSig  SigStatus
	TMDSig     SigStatus
	TicketType SigType
	TMDType    SigType
	IOSVersion byte
	HasIOS     bool
}

// deriveCrypto reads the Game Partition header, classifies the ticket/TMD
// issuers, verifies both signatures, and interprets the ticket's
// common-key index (including commonkeys.go's guess heuristic for
// out-of-range indices).
func deriveCrypto(r bankReader, header [wiicrypto.DiscHeaderSize]byte, isUnencrypted bool) (bankCrypto, error) {
	var out bankCrypto

	gameOff, ok := findGamePartition(r)
	if !ok {
		return out, ErrNoGamePartition
	}

	hdrBuf, err := readBytes(r, gameOff, wiicrypto.PartitionHeaderSize)
	if err != nil {
		return out, err
	}

	ticket := &wiicrypto.Ticket{}
	copy(ticket.Raw[:], hdrBuf[wiicrypto.PartitionHeaderOffTicket:wiicrypto.PartitionHeaderOffTicket+wiicrypto.TicketSize])

	ticketIssuer := wiicrypto.IssuerFromString(ticket.Issuer())
	switch {
	case ticketIssuer == wiicrypto.IssuerRetailTicket:
		out.TicketType = SigTypeRetail
	case ticketIssuer == wiicrypto.IssuerDebugTicket:
		out.TicketType = SigTypeDebug
	}
	tStatus, tErr := wiicrypto.Verify(ticket.Raw[:], ticket.SigType(), wiicrypto.TicketOffIssuer)
	out.TicketSig = sigStatusFrom(tStatus, tErr)

	tmdSize := be32(hdrBuf[wiicrypto.PartitionHeaderOffTMDSize:])
	tmdOffset := (int64(be32(hdrBuf[wiicrypto.PartitionHeaderOffTMDOffset:])) << 2)

	tmdBuf, err := readBytes(r, gameOff+tmdOffset, int(tmdSize))
	if err != nil {
		return out, err
	}
	tmd := &wiicrypto.TMD{Raw: tmdBuf}

	tmdIssuer := wiicrypto.IssuerFromString(tmd.Issuer())
	switch {
	case tmdIssuer == wiicrypto.IssuerRetailTMD:
		out.TMDType = SigTypeRetail
	case tmdIssuer == wiicrypto.IssuerDebugTMD:
		out.TMDType = SigTypeDebug
	}

	if int(tmdSize) <= len(tmdBuf) {
		mStatus, mErr := wiicrypto.Verify(tmdBuf, tmd.SigType(), wiicrypto.TMDOffIssuer)
		out.TMDSig = sigStatusFrom(mStatus, mErr)
	}

	if v, ok := tmd.IOSVersion(); ok {
		out.IOSVersion = v
		out.HasIOS = true
	}

	gameID := string(header[wiicrypto.DiscHeaderOffGameID : wiicrypto.DiscHeaderOffGameID+6])
	ckIdx, ckOK, guessed := wiicrypto.CommonKeyForTicket(ticketIssuer, ticket.CommonKeyIndex(), gameID, isUnencrypted)
	if guessed {
		logrus.WithFields(logrus.Fields{
			"component": "rvth",
			"gameID":    gameID,
			"index":     ticket.CommonKeyIndex(),
		}).Warn("ticket carries an out-of-range common-key index; guessing from game ID")
	}
	if isUnencrypted {
		out.Crypto = CryptoNone
	} else if !ckOK {
		out.Crypto = CryptoUnknown
	} else {
		switch ckIdx {
		case wiicrypto.CommonKeyRetail:
			out.Crypto = CryptoRetail
		case wiicrypto.CommonKeyKorean:
			out.Crypto = CryptoKorean
		case wiicrypto.CommonKeyVWii:
			out.Crypto = CryptoVWii
		case wiicrypto.CommonKeyDebug:
			out.Crypto = CryptoDebug
		default:
			out.Crypto = CryptoUnknown
		}
	}

	return out, nil
}
