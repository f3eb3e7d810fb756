package rvth

import (
	"context"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/reader"
	"github.com/bodgit/rvth/reffile"
	"github.com/spf13/afero"
)

// extractBufLBAs is the 1 MiB copy buffer size, expressed in LBAs.
const extractBufLBAs = (1 << 20) / endian.LBASize

// sparseBlockSize and sparseTailBlockSize are the granularities at which
// the copy loop tests for all-zero runs: 4 KiB while a full buffer is in
// hand, 512 bytes for the final partial buffer.
const (
	sparseBlockSize     = 4096
	sparseTailBlockSize = endian.LBASize
)

// Extract copies a bank out to a standalone, sparse disc image file on
// fs. Zero-filled 4 KiB (or, in the final partial buffer, 512-byte) runs
// are skipped so filesystems that support sparse files end up with a file
// no larger than the actual data written. ctx cancellation is checked at
// the same buffer boundaries as the progress callback.
func (r *RVTH) Extract(ctx context.Context, bank int, fs afero.Fs, path string, progress ProgressCallback) error {
	entry, err := r.Bank(bank)
	if err != nil {
		return err
	}
	switch entry.Type {
	case BankGCN, BankWiiSL, BankWiiDL:
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

	dstFile, err := reffile.Open(fs, path, true)
	if err != nil {
		return WrapError(err)
	}
	closeDst := true
	defer func() {
		if closeDst {
			_ = dstFile.Close()
		}
	}()

	lbaCopyLen := entry.LengthLBA
	if err := dstFile.MakeSparse(endian.LBAToBytes(lbaCopyLen)); err != nil {
		return WrapError(err)
	}

	dst, err := reader.Open(dstFile, false, 0, lbaCopyLen)
	if err != nil {
		return WrapError(err)
	}

	buf := make([]byte, extractBufLBAs*endian.LBASize)
	zero := make([]byte, sparseTailBlockSize)

	var lba uint32
	var lastWritten uint32

	lbaBufMax := lbaCopyLen &^ (extractBufLBAs - 1)
	for lba = 0; lba < lbaBufMax; lba += extractBufLBAs {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if !callProgress(progress, ProgressState{Type: ProgressExtract, Processed: lba, Total: lbaCopyLen, Bank: bank}) {
			return ErrCancelled
		}
		if _, err := entry.reader.ReadLBA(buf, lba, extractBufLBAs); err != nil {
			return WrapError(err)
		}
		for off := 0; off < len(buf); off += sparseBlockSize {
			block := buf[off : off+sparseBlockSize]
			if endian.IsZero(block) {
				continue
			}
			blockLBA := lba + uint32(off/endian.LBASize)
			if _, err := dst.WriteLBA(block, blockLBA, sparseBlockSize/endian.LBASize); err != nil {
				return WrapError(err)
			}
			lastWritten = blockLBA + sparseBlockSize/endian.LBASize - 1
		}
	}

	if lba < lbaCopyLen {
		lbaLeft := lbaCopyLen - lba
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if !callProgress(progress, ProgressState{Type: ProgressExtract, Processed: lba, Total: lbaCopyLen, Bank: bank}) {
			return ErrCancelled
		}
		tail := buf[:int64(lbaLeft)*endian.LBASize]
		if _, err := entry.reader.ReadLBA(tail, lba, lbaLeft); err != nil {
			return WrapError(err)
		}
		for off := 0; off < len(tail); off += sparseTailBlockSize {
			block := tail[off : off+sparseTailBlockSize]
			if endian.IsZero(block) {
				continue
			}
			blockLBA := lba + uint32(off/endian.LBASize)
			if _, err := dst.WriteLBA(block, blockLBA, 1); err != nil {
				return WrapError(err)
			}
			lastWritten = blockLBA
		}
	}

	callProgress(progress, ProgressState{Type: ProgressExtract, Processed: lbaCopyLen, Total: lbaCopyLen, Bank: bank})

	if lbaCopyLen > 0 && lastWritten != lbaCopyLen-1 {
		if _, err := dst.WriteLBA(zero, lbaCopyLen-1, 1); err != nil {
			return WrapError(err)
		}
	}

	if err := dst.Flush(); err != nil {
		return WrapError(err)
	}
	closeDst = false
	if err := dstFile.Close(); err != nil {
		return WrapError(err)
	}
	return nil
}
