package rvth

import (
	"time"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/rvthtime"
)

// writeBankEntry persists a single bank-table slot's type/timestamp/
// geometry to disk. A deleted bank is written as an all-zero entry; Empty
// gets only its type word set; any other type gets a fresh timestamp plus
// its start/length LBA.
func writeBankEntry(r *RVTH, bank int) error {
	if !r.isHDD {
		return NewError(CodeNotHDDImage)
	}
	if !r.hasNHCD {
		return NewError(CodeNoBankTable)
	}
	if bank < 0 || uint32(bank) >= r.bankCount {
		return NewError(CodeBankUnknown)
	}

	if err := r.file.MakeWritable(); err != nil {
		return WrapError(err)
	}

	entry := r.banks[bank]

	var buf []byte
	switch {
	case entry.Deleted:
		buf = encodeNHCDEntry(nhcdEntry{}, false)
	default:
		switch entry.Type {
		case BankUnknown:
			return NewError(CodeBankUnknown)
		case BankWiiDLBank2:
			return NewError(CodeBankIsDLBank2)
		case BankEmpty:
			buf = encodeNHCDEntry(nhcdEntry{TypeWord: nhcdTypeEmpty}, false)
		default:
			buf = encodeNHCDEntry(nhcdEntry{
				TypeWord:  bankTypeToWord(entry.Type),
				Timestamp: rvthtime.FormatTimestamp(time.Now()),
				StartLBA:  entry.StartLBA,
				LengthLBA: entry.LengthLBA,
			}, true)
		}
	}

	addr := endian.LBAToBytes(r.bankTableLBA) + int64(bank+1)*nhcdBlockSize
	if _, err := r.file.WriteAt(buf, addr); err != nil {
		return WrapError(err)
	}
	return nil
}
