package rvth

import (
	"bytes"

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
)

// Delete marks a bank deleted in the table without touching its data.
// GCN, Wii-SL, and Wii-DL banks can be deleted; Empty, Unknown, and
// Wii-DL-Bank2 cannot. The in-memory flag is rolled back if the table
// write fails.
func (r *RVTH) Delete(bank int) error {
	if !r.isHDD {
		return NewError(CodeNotHDDImage)
	}
	entry, err := r.Bank(bank)
	if err != nil {
		return err
	}
	if err := r.file.MakeWritable(); err != nil {
		return WrapError(err)
	}

	if entry.Deleted {
		return NewError(CodeBankAlreadyDeleted)
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

	entry.Deleted = true
	if err := writeBankEntry(r, bank); err != nil {
		entry.Deleted = false
		return err
	}
	if err := r.file.Flush(); err != nil {
		return WrapError(err)
	}
	return nil
}

// Undelete restores a previously deleted bank: the cached disc header is
// written back to LBA 0 of the bank if the on-disk content differs (a
// bank deleted by the RVT-H itself has its first block zeroed, unlike
// Delete above which leaves the data untouched), then the table entry is
// rewritten.
func (r *RVTH) Undelete(bank int) error {
	if !r.isHDD {
		return NewError(CodeNotHDDImage)
	}
	entry, err := r.Bank(bank)
	if err != nil {
		return err
	}
	if err := r.file.MakeWritable(); err != nil {
		return WrapError(err)
	}

	if !entry.Deleted {
		return NewError(CodeBankNotDeleted)
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

	if entry.reader != nil {
		buf := make([]byte, endian.LBASize)
		if _, err := entry.reader.ReadLBA(buf, 0, 1); err != nil {
			return WrapError(err)
		}
		if !bytes.Equal(buf[:wiicrypto.DiscHeaderSize], entry.DiscHeader[:]) {
			copy(buf[:wiicrypto.DiscHeaderSize], entry.DiscHeader[:])
			if _, err := entry.reader.WriteLBA(buf, 0, 1); err != nil {
				return WrapError(err)
			}
		}
	}

	entry.Deleted = false
	if err := writeBankEntry(r, bank); err != nil {
		entry.Deleted = true
		return err
	}
	if err := r.file.Flush(); err != nil {
		return WrapError(err)
	}
	return nil
}
