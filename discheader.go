package rvth

import (
	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/sirupsen/logrus"
)

// readBytes reads n bytes starting at the given byte offset from a
// bankReader, widening to whole-LBA reads the way every other on-disk
// structure in this package is decoded.
func readBytes(r bankReader, byteOff int64, n int) ([]byte, error) {
	startLBA := uint32(byteOff / endian.LBASize)
	within := int(byteOff % endian.LBASize)
	nlba := uint32((within+n+endian.LBASize-1)/endian.LBASize)

	buf := make([]byte, int(nlba)*endian.LBASize)
	if _, err := r.ReadLBA(buf, startLBA, nlba); err != nil {
		return nil, err
	}
	return buf[within : within+n], nil
}

// identifyDiscHeader reads LBA 0 of the bank and classifies it as Wii,
// GCN, Empty, or Unknown by magic. An Empty block triggers the
// deleted-bank recovery path through the volume-group table.
func identifyDiscHeader(r bankReader) (header [wiicrypto.DiscHeaderSize]byte, deleted bool, err error) {
	buf := make([]byte, endian.LBASize)
	if _, err = r.ReadLBA(buf, 0, 1); err != nil {
		return header, false, err
	}

	switch {
	case be32(buf[wiicrypto.DiscMagicWiiOff:]) == wiicrypto.DiscMagicWii:
		copy(header[:], buf[:wiicrypto.DiscHeaderSize])
		return header, false, nil
	case be32(buf[wiicrypto.DiscMagicGCNOff:]) == wiicrypto.DiscMagicGCN:
		copy(header[:], buf[:wiicrypto.DiscHeaderSize])
		return header, false, nil
	case matchesNDDEMO(buf):
		copy(header[:], buf[:wiicrypto.DiscHeaderSize])
		return header, false, nil
	case endian.IsZero(buf):
		if recovered, ok := recoverDeletedDiscHeader(r); ok {
			return recovered, true, nil
		}
		return header, false, nil // Empty, unrecoverable: zero header stands
	default:
		return header, false, nil // Unknown: zero header stands, caller inspects magics
	}
}

func matchesNDDEMO(buf []byte) bool {
	for i, b := range wiicrypto.NDDEMOHeader {
		if buf[i] != b {
			return false
		}
	}
	return true
}

// recoverDeletedDiscHeader is the Empty-block recovery path: locate the
// Game Partition through the volume-group/partition tables and copy the
// disc header out of its first data LBA. A recovered header
// unconditionally forces hash_verify=1 and disc_noCrypt=1, a known
// limitation; the RVT-H stores banks unencrypted even when the image
// would be encrypted on a retail disc, and no real encryption detection
// is attempted here.
func recoverDeletedDiscHeader(r bankReader) (header [wiicrypto.DiscHeaderSize]byte, ok bool) {
	const vgEntrySize = 8 // (count uint32, addr uint32)

	vgtBuf, err := readBytes(r, wiicrypto.VolumeGroupTableOffset, wiicrypto.NumVolumeGroups*vgEntrySize)
	if err != nil {
		return header, false
	}

	expectedAddr := uint32((wiicrypto.VolumeGroupTableOffset + wiicrypto.NumVolumeGroups*vgEntrySize) >> 2)

	var vg wiicrypto.VolumeGroupEntry
	found := false
	for i := 0; i < wiicrypto.NumVolumeGroups; i++ {
		off := i * vgEntrySize
		count := be32(vgtBuf[off:])
		addr := be32(vgtBuf[off+4:])
		if count > 0 && addr == expectedAddr {
			vg = wiicrypto.VolumeGroupEntry{Count: count, Addr: addr}
			found = true
			break
		}
	}
	if !found {
		return header, false
	}

	const ptEntrySize = 8 // (addr uint32, type uint32)
	ptBuf, err := readBytes(r, int64(vg.Addr)<<2, int(vg.Count)*ptEntrySize)
	if err != nil {
		return header, false
	}

	var game wiicrypto.PartitionTableEntry
	found = false
	for i := 0; i < int(vg.Count); i++ {
		off := i * ptEntrySize
		e := wiicrypto.PartitionTableEntry{Addr: be32(ptBuf[off:]), Type: be32(ptBuf[off+4:])}
		if e.Type == wiicrypto.PartitionTypeGame {
			game = e
			found = true
			break
		}
	}
	if !found {
		return header, false
	}

	hdrBuf, err := readBytes(r, game.ByteOffset()+wiicrypto.PartitionHeaderOffDataOffset, 4)
	if err != nil {
		return header, false
	}
	dataOffsetUnits := be32(hdrBuf)
	if int64(dataOffsetUnits)<<2 < wiicrypto.PartitionHeaderSize {
		return header, false // corrupted: data can't overlap the header
	}
	dataByteOffset := game.ByteOffset() + (int64(dataOffsetUnits) << 2)

	inner, err := readBytes(r, dataByteOffset, endian.LBASize)
	if err != nil {
		return header, false
	}
	if be32(inner[wiicrypto.DiscMagicWiiOff:]) != wiicrypto.DiscMagicWii {
		return header, false
	}

	copy(header[:], inner[:wiicrypto.DiscHeaderSize])
	header[wiicrypto.DiscHeaderOffHashVerify] = 1
	header[wiicrypto.DiscHeaderOffDiscNoCrypt] = 1
	logrus.WithField("component", "rvth").Debug("recovered disc header from deleted bank's Game Partition")
	return header, true
}
