package rvth

import (
	"context"
	"fmt"
	"time"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/rvthtime"
	"github.com/bodgit/rvth/wiicrypto"
)

// partitionHeaderBufSize is sizeof(RVL_PartitionHeader): the ticket, TMD,
// certificate chain, H3 table pointer and identification blob all live
// within this one fixed-size region at the start of a Wii partition.
const partitionHeaderBufSize = 0x20000

// partitionTableEntry is one surviving row of a parsed volume-group/
// partition table. Only the starting LBA matters here, since the
// partition's own header carries its length.
type partitionTableEntry struct {
	LBAStart uint32
	ID       string // "<group>p<index>" after any compaction
	IDOrig   string // "<group>p<index>" before compaction
}

const (
	vgtBufLBAs  = 2
	vgtBufSize  = vgtBufLBAs * endian.LBASize
	ptEntrySize = 8
)

// parsePartitionTable reads the two-LBA volume-group/partition-table
// block and, when removeUpdatePartitions is set, compacts out every
// type-1 (Update) entry in place, rewriting the block back to disk only
// if something was actually removed. With removeUpdatePartitions false
// every partition is kept and the table is left untouched.
func parsePartitionTable(r bankReader, removeUpdatePartitions bool) ([]partitionTableEntry, error) {
	buf := make([]byte, vgtBufSize)
	if _, err := r.ReadLBA(buf, uint32(wiicrypto.VolumeGroupTableOffset/endian.LBASize), vgtBufLBAs); err != nil {
		return nil, err
	}

	var out []partitionTableEntry
	modified := false

	for i := 0; i < wiicrypto.NumVolumeGroups; i++ {
		vgOff := i * ptEntrySize
		count := be32(buf[vgOff:])
		if count == 0 {
			continue
		}
		addr := int64(be32(buf[vgOff+4:])) << 2
		relOff := addr - wiicrypto.VolumeGroupTableOffset
		if relOff < 0 || relOff+int64(count)*ptEntrySize > int64(vgtBufSize) {
			return nil, NewError(CodePartitionTableCorrupted)
		}

		base := int(relOff)
		kept := 0
		for jOrig := 0; uint32(jOrig) < count; jOrig++ {
			srcOff := base + jOrig*ptEntrySize
			addrField := be32(buf[srcOff:])
			ptype := be32(buf[srcOff+4:])

			if removeUpdatePartitions && ptype == wiicrypto.PartitionTypeUpdate {
				modified = true
				continue
			}

			lbaStart := addrField / (endian.LBASize / 4)
			out = append(out, partitionTableEntry{
				LBAStart: lbaStart,
				ID:       fmt.Sprintf("%dp%d", i, kept),
				IDOrig:   fmt.Sprintf("%dp%d", i, jOrig),
			})

			dstOff := base + kept*ptEntrySize
			if dstOff != srcOff {
				copy(buf[dstOff:dstOff+ptEntrySize], buf[srcOff:srcOff+ptEntrySize])
			}
			kept++
		}

		if uint32(kept) != count {
			for z := kept; uint32(z) < count; z++ {
				off := base + z*ptEntrySize
				for k := 0; k < ptEntrySize; k++ {
					buf[off+k] = 0
				}
			}
			putBE32(buf[vgOff:], uint32(kept))
		}
	}

	if modified {
		if _, err := r.WriteLBA(buf, uint32(wiicrypto.VolumeGroupTableOffset/endian.LBASize), vgtBufLBAs); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func toNext64(n int) int { return (n + 63) &^ 63 }

// classifySourceCommonKey wraps wiicrypto.ClassifySourceCommonKey, translating
// its plain error into this package's domain Code.
func classifySourceCommonKey(t *wiicrypto.Ticket) (wiicrypto.CommonKeyIndex, error) {
	k, err := wiicrypto.ClassifySourceCommonKey(t)
	if err != nil {
		return 0, NewError(CodeCertIssuerUnknown)
	}
	return k, nil
}

// Recrypt re-encrypts every partition in a Wii bank from whatever common
// key it currently carries to target's, rewriting the ticket and TMD
// issuer/signature and the certificate chain, embedding a fresh
// identification blob in each partition header, and optionally wiping the
// disc's update partition(s) from the volume-group/partition table first
// (installing a retail update on a debug console, or vice versa, can
// brick real hardware). Already-unencrypted banks are rejected outright;
// this operation only converts between encrypted PKI families, never
// encrypts or decrypts. ctx cancellation is checked once per partition.
func (r *RVTH) Recrypt(ctx context.Context, bank int, target wiicrypto.TargetKey, removeUpdatePartitions bool, progress ProgressCallback) error {
	entry, err := r.Bank(bank)
	if err != nil {
		return err
	}

	switch entry.Type {
	case BankWiiSL, BankWiiDL:
	case BankGCN:
		return NewError(CodeWiiOnlyOperation)
	case BankEmpty:
		return NewError(CodeBankEmpty)
	case BankWiiDLBank2:
		return NewError(CodeBankIsDLBank2)
	default:
		return NewError(CodeBankUnknown)
	}
	if entry.Deleted {
		return NewError(CodeBankAlreadyDeleted)
	}
	if entry.Crypto == CryptoNone {
		return NewError(CodeUnencrypted)
	}

	if err := r.file.MakeWritable(); err != nil {
		return WrapError(err)
	}

	if !callProgress(progress, ProgressState{Type: ProgressRecrypt, Processed: 0, Total: 1, Bank: bank}) {
		return ErrCancelled
	}

	discHeader := make([]byte, endian.LBASize)
	if _, err := entry.reader.ReadLBA(discHeader, 0, 1); err != nil {
		return WrapError(err)
	}

	ptbl, err := parsePartitionTable(entry.reader, removeUpdatePartitions)
	if err != nil {
		return WrapError(err)
	}
	if len(ptbl) == 0 {
		return NewError(CodePartitionTableCorrupted)
	}

	ticketCert, ok := wiicrypto.Cert(target.TicketIssuer)
	if !ok {
		return NewError(CodeCertIssuerUnknown)
	}
	caCert, ok := wiicrypto.Cert(target.CAIssuer)
	if !ok {
		return NewError(CodeCertIssuerUnknown)
	}
	tmdCert, ok := wiicrypto.Cert(target.TMDIssuer)
	if !ok {
		return NewError(CodeCertIssuerUnknown)
	}

	for _, pte := range ptbl {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if err := recryptPartition(entry.reader, pte, target, discHeader, ticketCert, caCert, tmdCert); err != nil {
			return err
		}
	}

	// The bank table records "Fake" for every target, including the debug
	// case that was actually realsigned; that is what the RVT-H's own
	// bookkeeping stores.
	switch target.CommonKey {
	case wiicrypto.CommonKeyRetail:
		entry.Crypto = CryptoRetail
	case wiicrypto.CommonKeyKorean:
		entry.Crypto = CryptoKorean
	case wiicrypto.CommonKeyVWii:
		entry.Crypto = CryptoVWii
	case wiicrypto.CommonKeyDebug:
		entry.Crypto = CryptoDebug
	}
	if target.Debug {
		entry.TicketSigType = SigTypeDebug
		entry.TMDSigType = SigTypeDebug
	} else {
		entry.TicketSigType = SigTypeRetail
		entry.TMDSigType = SigTypeRetail
	}
	entry.TicketSig = SigStatusFakesigned
	entry.TMDSig = SigStatusFakesigned

	if r.isHDD {
		if err := writeBankEntry(r, bank); err != nil {
			return err
		}
	}
	if err := entry.reader.Flush(); err != nil {
		return WrapError(err)
	}

	callProgress(progress, ProgressState{Type: ProgressRecrypt, Processed: 1, Total: 1, Bank: bank})
	return nil
}

// recryptPartition rewrites one partition header in place: recrypt+sign
// the ticket, relocate+sign the TMD, append the target PKI's certificate
// chain, preserve the H3-table/data offsets untouched, and stamp a fresh
// identification blob into the header's last 256 bytes.
func recryptPartition(rd bankReader, pte partitionTableEntry, target wiicrypto.TargetKey, discHeader []byte, ticketCert, caCert, tmdCert []byte) error {
	orig := make([]byte, partitionHeaderBufSize)
	if _, err := rd.ReadLBA(orig, pte.LBAStart, partitionHeaderBufSize/endian.LBASize); err != nil {
		return WrapError(err)
	}

	fresh := make([]byte, partitionHeaderBufSize)
	copy(fresh[:wiicrypto.TicketSize], orig[:wiicrypto.TicketSize])

	ticket := &wiicrypto.Ticket{}
	copy(ticket.Raw[:], fresh[:wiicrypto.TicketSize])

	srcKey, err := classifySourceCommonKey(ticket)
	if err != nil {
		return err
	}
	if _, err := wiicrypto.RecryptTicket(ticket, srcKey, target); err != nil {
		return WrapError(err)
	}
	copy(fresh[:wiicrypto.TicketSize], ticket.Raw[:])

	dataPos := toNext64(wiicrypto.PartitionHeaderSize) // already 64-aligned

	tmdSize := int(be32(orig[wiicrypto.PartitionHeaderOffTMDSize:]))
	tmdOffsetOrig := int(be32(orig[wiicrypto.PartitionHeaderOffTMDOffset:])) << 2
	if tmdSize <= 0 || dataPos+tmdSize > partitionHeaderBufSize || tmdOffsetOrig+tmdSize > partitionHeaderBufSize {
		return NewError(CodePartitionHeaderCorrupted)
	}
	copy(fresh[dataPos:dataPos+tmdSize], orig[tmdOffsetOrig:tmdOffsetOrig+tmdSize])

	tmd := &wiicrypto.TMD{Raw: fresh[dataPos : dataPos+tmdSize]}
	if err := wiicrypto.SignTMD(tmd, target); err != nil {
		return WrapError(err)
	}

	putBE32(fresh[wiicrypto.PartitionHeaderOffTMDSize:], uint32(tmdSize))
	putBE32(fresh[wiicrypto.PartitionHeaderOffTMDOffset:], uint32(dataPos>>2))
	dataPos += toNext64(tmdSize)

	certChainSize := len(ticketCert) + len(caCert) + len(tmdCert)
	if dataPos+certChainSize > partitionHeaderBufSize {
		return NewError(CodePartitionHeaderCorrupted)
	}
	chainOff := dataPos
	copy(fresh[chainOff:], ticketCert)
	copy(fresh[chainOff+len(ticketCert):], caCert)
	copy(fresh[chainOff+len(ticketCert)+len(caCert):], tmdCert)
	putBE32(fresh[wiicrypto.PartitionHeaderOffCertSize:], uint32(certChainSize))
	putBE32(fresh[wiicrypto.PartitionHeaderOffCertOffset:], uint32(chainOff>>2))

	// H3-table offset and the data offset/size are left exactly as they
	// were: recrypt doesn't move or resize the partition's payload.
	copy(fresh[wiicrypto.PartitionHeaderOffH3Offset:wiicrypto.PartitionHeaderOffH3Offset+4],
		orig[wiicrypto.PartitionHeaderOffH3Offset:wiicrypto.PartitionHeaderOffH3Offset+4])
	copy(fresh[wiicrypto.PartitionHeaderOffDataOffset:wiicrypto.PartitionHeaderOffDataOffset+4],
		orig[wiicrypto.PartitionHeaderOffDataOffset:wiicrypto.PartitionHeaderOffDataOffset+4])
	copy(fresh[wiicrypto.PartitionHeaderOffDataSize:wiicrypto.PartitionHeaderOffDataSize+4],
		orig[wiicrypto.PartitionHeaderOffDataSize:wiicrypto.PartitionHeaderOffDataSize+4])

	idBlob, err := rvthtime.CreateIdentificationBlob(
		discHeader[:wiicrypto.DiscHeaderSize],
		fmt.Sprintf("%s -> %s", pte.IDOrig, pte.ID),
		time.Now(),
	)
	if err != nil {
		return WrapError(err)
	}
	copy(fresh[partitionHeaderBufSize-len(idBlob):], idBlob)

	if _, err := rd.WriteLBA(fresh, pte.LBAStart, partitionHeaderBufSize/endian.LBASize); err != nil {
		return WrapError(err)
	}
	return nil
}
