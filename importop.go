package rvth

import (
	"context"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/reader"
	"github.com/spf13/afero"
)

// importBufLBAs is the 1 MiB copy buffer size, expressed in LBAs.
const importBufLBAs = (1 << 20) / endian.LBASize

// Import copies a standalone disc image at path into bank bankDest of
// this (necessarily HDD) RVTH. The source must open as a single-bank
// standalone image; Wii sources using anything other than unencrypted or
// Debug-PKI crypto are rejected, since import never converts between
// retail and debug encryption (use Recrypt first).
func (r *RVTH) Import(ctx context.Context, bankDest int, fs afero.Fs, path string, progress ProgressCallback) error {
	if !r.isHDD {
		return NewError(CodeNotHDDImage)
	}

	src, err := Open(fs, path, false)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if src.IsHDD() || src.BankCount() > 1 {
		return NewError(CodeIsHDDImage)
	}
	if src.BankCount() == 0 {
		return NewError(CodeNoBanks)
	}

	return r.copyFromBank(ctx, bankDest, src, 0, progress)
}

// copyFromBank validates the source bank's type and crypto, validates the
// destination slot, then copies exactly the source's LBA length without
// sparse-detection (the destination bank isn't a fresh sparse file the
// way Extract's is).
func (r *RVTH) copyFromBank(ctx context.Context, bankDest int, src *RVTH, bankSrc int, progress ProgressCallback) error {
	entrySrc, err := src.Bank(bankSrc)
	if err != nil {
		return err
	}

	switch entrySrc.Type {
	case BankGCN:
	case BankWiiSL, BankWiiDL:
		if entrySrc.Crypto != CryptoNone && entrySrc.Crypto != CryptoDebug {
			return NewError(CodeRetailCryptoUnsupported)
		}
	case BankEmpty:
		return NewError(CodeBankEmpty)
	case BankWiiDLBank2:
		return NewError(CodeBankIsDLBank2)
	default:
		return NewError(CodeBankUnknown)
	}

	if entrySrc.LengthLBA > defaultBankSizeLBA {
		return NewError(CodeImageTooBig)
	}
	if bankDest == 0 && r.bankCount > minBankCount && entrySrc.LengthLBA > extBank1SizeLBA {
		return NewError(CodeImageTooBig)
	}

	entryDest, err := r.Bank(bankDest)
	if err != nil {
		return err
	}
	if entryDest.Type != BankEmpty && !entryDest.Deleted {
		return NewError(CodeBankNotEmptyOrDeleted)
	}

	if err := r.file.MakeWritable(); err != nil {
		return WrapError(err)
	}

	// A deleted bank keeps a reader sized to its old image; reopen over the
	// full range when the incoming image is longer.
	if entryDest.reader != nil && entryDest.reader.LengthLBA() < entrySrc.LengthLBA {
		_ = entryDest.reader.Close()
		entryDest.reader = nil
	}
	if entryDest.reader == nil {
		lenLBA := entryDest.LengthLBA
		if lenLBA < entrySrc.LengthLBA {
			lenLBA = entrySrc.LengthLBA
		}
		rd, err := reader.Open(r.file, r.file.IsDevice(), entryDest.StartLBA, lenLBA)
		if err != nil {
			return WrapError(err)
		}
		entryDest.reader = rd
	}

	entryDest.Type = entrySrc.Type
	entryDest.LengthLBA = entrySrc.LengthLBA
	entryDest.Deleted = false
	entryDest.DiscHeader = entrySrc.DiscHeader
	entryDest.Region = entrySrc.Region
	entryDest.Crypto = entrySrc.Crypto
	entryDest.TicketSigType = entrySrc.TicketSigType
	entryDest.TMDSigType = entrySrc.TMDSigType
	entryDest.TicketSig = entrySrc.TicketSig
	entryDest.TMDSig = entrySrc.TMDSig
	entryDest.IOSVersion = entrySrc.IOSVersion
	entryDest.HasIOS = entrySrc.HasIOS
	if entrySrc.HasTimestamp {
		entryDest.Timestamp = entrySrc.Timestamp
		entryDest.HasTimestamp = true
	}

	lbaCopyLen := entrySrc.LengthLBA
	buf := make([]byte, importBufLBAs*endian.LBASize)

	var lba uint32
	for lba = 0; lba+importBufLBAs <= lbaCopyLen; lba += importBufLBAs {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if !callProgress(progress, ProgressState{Type: ProgressImport, Processed: lba, Total: lbaCopyLen, Bank: bankDest}) {
			return ErrCancelled
		}
		if _, err := entrySrc.reader.ReadLBA(buf, lba, importBufLBAs); err != nil {
			return WrapError(err)
		}
		if _, err := entryDest.reader.WriteLBA(buf, lba, importBufLBAs); err != nil {
			return WrapError(err)
		}
	}
	if lba < lbaCopyLen {
		lbaLeft := lbaCopyLen - lba
		tail := buf[:int64(lbaLeft)*endian.LBASize]
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if !callProgress(progress, ProgressState{Type: ProgressImport, Processed: lba, Total: lbaCopyLen, Bank: bankDest}) {
			return ErrCancelled
		}
		if _, err := entrySrc.reader.ReadLBA(tail, lba, lbaLeft); err != nil {
			return WrapError(err)
		}
		if _, err := entryDest.reader.WriteLBA(tail, lba, lbaLeft); err != nil {
			return WrapError(err)
		}
	}
	callProgress(progress, ProgressState{Type: ProgressImport, Processed: lbaCopyLen, Total: lbaCopyLen, Bank: bankDest})

	if err := entryDest.reader.Flush(); err != nil {
		return WrapError(err)
	}

	return writeBankEntry(r, bankDest)
}
