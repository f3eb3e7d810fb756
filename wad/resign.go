package wad

import (
	"context"
	"os"

	"github.com/bodgit/rvth"
	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/spf13/afero"
)

// copyBufSize is resign_wad's 1 MiB data-copy buffer.
const copyBufSize = 1 << 20

// sectionWriter tracks the write offset into dst so callers can pad to an
// alignment boundary without separately seeking.
type sectionWriter struct {
	w   afero.File
	pos int64
}

func (s *sectionWriter) write(b []byte) error {
	n, err := s.w.Write(b)
	s.pos += int64(n)
	return err
}

func (s *sectionWriter) padTo(align int64) error {
	target := endian.AlignUp(s.pos, align)
	if target == s.pos {
		return nil
	}
	if _, err := s.w.Write(make([]byte, target-s.pos)); err != nil {
		return err
	}
	s.pos = target
	return nil
}

// boot2TitleID is the fixed title ID that selects the "ib" header type
// instead of "Is".
const boot2TitleID = 0x0000000100000001

func headerType(titleID uint64) uint32 {
	if titleID == boot2TitleID {
		return headerTypeIb
	}
	return headerTypeIs
}

// Resign recrypts a WAD's ticket and TMD to target's common key and
// certificate family, streams its certificate chain, ticket, TMD, and
// content data into a fresh file on dstFS, and optionally changes its
// container format. Content data is never re-encrypted; only the
// ticket/TMD/cert-chain bytes change. Unlike the bank recrypt engine's
// Ticket, CA, TMD certificate order, a WAD's chain is written CA, TMD,
// Ticket, and for a debug target a fourth "MS" (mastering server)
// certificate. ctx cancellation and progress are reported once per data
// buffer.
func Resign(ctx context.Context, w *WAD, target wiicrypto.TargetKey, dstFormat Format, dstFS afero.Fs, dstPath string, progress rvth.ProgressCallback) error {
	srcKey, err := wiicrypto.ClassifySourceCommonKey(w.Ticket)
	if err != nil {
		return rvth.NewError(rvth.CodeCertIssuerUnknown)
	}
	if srcKey == target.CommonKey && dstFormat == w.Info.Format {
		return rvth.NewError(rvth.CodeAlreadyEncrypted)
	}

	caCert, ok := wiicrypto.Cert(target.CAIssuer)
	if !ok {
		return rvth.NewError(rvth.CodeCertIssuerUnknown)
	}
	tmdCert, ok := wiicrypto.Cert(target.TMDIssuer)
	if !ok {
		return rvth.NewError(rvth.CodeCertIssuerUnknown)
	}
	ticketCert, ok := wiicrypto.Cert(target.TicketIssuer)
	if !ok {
		return rvth.NewError(rvth.CodeCertIssuerUnknown)
	}
	var devCert []byte
	if target.Debug {
		devCert, ok = wiicrypto.Cert(wiicrypto.IssuerDebugDev)
		if !ok {
			return rvth.NewError(rvth.CodeCertIssuerUnknown)
		}
	}

	certChain := make([]byte, 0, len(caCert)+len(tmdCert)+len(ticketCert)+len(devCert))
	certChain = append(certChain, caCert...)
	certChain = append(certChain, tmdCert...)
	certChain = append(certChain, ticketCert...)
	certChain = append(certChain, devCert...)

	ticket := &wiicrypto.Ticket{Raw: w.Ticket.Raw}
	if _, err := wiicrypto.RecryptTicket(ticket, srcKey, target); err != nil {
		return rvth.WrapError(err)
	}

	tmdBuf := make([]byte, len(w.TMD.Raw))
	copy(tmdBuf, w.TMD.Raw)
	tmd := &wiicrypto.TMD{Raw: tmdBuf}
	if err := wiicrypto.SignTMD(tmd, target); err != nil {
		return rvth.WrapError(err)
	}

	meta := w.Info.FooterSize > 0
	var metaBuf []byte
	if meta {
		metaBuf = make([]byte, w.Info.FooterSize)
		if _, err := w.ra.ReadAt(metaBuf, int64(w.Info.FooterAddress)); err != nil {
			return rvth.WrapError(err)
		}
	}

	dst, err := dstFS.OpenFile(dstPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return rvth.WrapError(err)
	}
	closeDst := true
	defer func() {
		if closeDst {
			_ = dst.Close()
		}
	}()

	align := int64(64)
	if dstFormat == FormatBWF {
		align = 16
	}

	certSize := int64(len(certChain))
	ticketSize := int64(wiicrypto.TicketSize)
	tmdSize := int64(len(tmdBuf))

	var hdr []byte
	if dstFormat == FormatBWF {
		dataOffset := endian.AlignUp(headerSize, align) +
			endian.AlignUp(certSize, align) +
			endian.AlignUp(ticketSize, align) +
			endian.AlignUp(tmdSize, align)
		hdr = buildBWFHeader(uint32(dataOffset), uint32(certSize), uint32(ticketSize), uint32(tmdSize), 0)
	} else {
		footerSize := uint32(0)
		if meta {
			footerSize = uint32(len(metaBuf))
		}
		hdr = buildStandardHeader(headerType(tmd.TitleID()), uint32(certSize), uint32(ticketSize), uint32(tmdSize), w.Info.DataSize, footerSize)
	}

	// Every section is padded to the format's alignment (64 for standard,
	// 16 for BWF), matching how parseHeader locates them on read.
	sw := &sectionWriter{w: dst}
	for _, section := range [][]byte{hdr, certChain, ticket.Raw[:], tmd.Raw} {
		if err := sw.write(section); err != nil {
			return rvth.WrapError(err)
		}
		if err := sw.padTo(align); err != nil {
			return rvth.WrapError(err)
		}
	}

	report := func(processed uint32) bool {
		if progress == nil {
			return true
		}
		return progress(rvth.ProgressState{Type: rvth.ProgressWADResign, Processed: processed, Total: w.Info.DataSize})
	}

	buf := make([]byte, copyBufSize)
	srcOff := int64(w.Info.DataAddress)
	remaining := int64(w.Info.DataSize)
	var processed uint32

	for remaining >= copyBufSize {
		if err := ctx.Err(); err != nil {
			return rvth.ErrCancelled
		}
		if !report(processed) {
			return rvth.ErrCancelled
		}
		if _, err := w.ra.ReadAt(buf, srcOff); err != nil {
			return rvth.WrapError(err)
		}
		if err := sw.write(buf); err != nil {
			return rvth.WrapError(err)
		}
		srcOff += copyBufSize
		remaining -= copyBufSize
		processed += copyBufSize
	}
	if remaining > 0 {
		if err := ctx.Err(); err != nil {
			return rvth.ErrCancelled
		}
		if !report(processed) {
			return rvth.ErrCancelled
		}
		// AES operates in 16-byte blocks, so the final chunk is rounded
		// up.
		n := endian.AlignUp(remaining, 16)
		chunk := buf[:n]
		if _, err := w.ra.ReadAt(chunk, srcOff); err != nil {
			return rvth.WrapError(err)
		}
		if err := sw.write(chunk); err != nil {
			return rvth.WrapError(err)
		}
		processed += uint32(remaining)
	}
	report(w.Info.DataSize)

	if meta {
		if dstFormat != FormatBWF {
			if err := sw.padTo(align); err != nil {
				return rvth.WrapError(err)
			}
		}
		if err := sw.write(metaBuf); err != nil {
			return rvth.WrapError(err)
		}
	}

	if dstFormat != FormatBWF {
		if err := sw.padTo(64); err != nil {
			return rvth.WrapError(err)
		}
	}

	if s, ok := dst.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return rvth.WrapError(err)
		}
	}
	closeDst = false
	if err := dst.Close(); err != nil {
		return rvth.WrapError(err)
	}
	return nil
}

func buildStandardHeader(typ, certSize, ticketSize, tmdSize, dataSize, footerSize uint32) []byte {
	buf := make([]byte, headerSize)
	putBE32(buf[stdOffHeaderSize:], headerSize)
	putBE32(buf[stdOffType:], typ)
	putBE32(buf[stdOffCertChainSize:], certSize)
	putBE32(buf[stdOffTicketSize:], ticketSize)
	putBE32(buf[stdOffTMDSize:], tmdSize)
	putBE32(buf[stdOffDataSize:], dataSize)
	putBE32(buf[stdOffFooterSize:], footerSize)
	return buf
}

func buildBWFHeader(dataOffset, certSize, ticketSize, tmdSize, metaSize uint32) []byte {
	buf := make([]byte, headerSize)
	putBE32(buf[bwfOffHeaderSize:], headerSize)
	putBE32(buf[bwfOffDataOffset:], dataOffset)
	putBE32(buf[bwfOffCertChainSize:], certSize)
	putBE32(buf[bwfOffTicketSize:], ticketSize)
	putBE32(buf[bwfOffTMDSize:], tmdSize)
	putBE32(buf[bwfOffMetaSize:], metaSize)
	return buf
}
