package rvth

import (
	"github.com/bodgit/rvth/reader"
	"github.com/bodgit/rvth/reffile"
	"github.com/bodgit/rvth/rvthtime"
)

// initBankEntry builds the bank's reader over [startLBA,
// startLBA+lengthLBA), identifies its disc header, and (for
// non-Empty/Unknown/Bank2 types) fills in region/crypto metadata. Empty
// and Unknown banks are returned with CodeBankEmpty / CodeBankUnknown as
// informational errors; callers that only need geometry should treat
// these as benign.
func initBankEntry(rf *reffile.RefFile, index int, bankType BankType, startLBA, lengthLBA uint32, timestamp string) (*BankEntry, error) {
	entry := &BankEntry{
		Index:     index,
		Type:      bankType,
		StartLBA:  startLBA,
		LengthLBA: lengthLBA,
	}
	if t, ok := rvthtime.ParseTimestamp(timestamp); ok {
		entry.Timestamp = t
		entry.HasTimestamp = true
	}

	switch bankType {
	case BankEmpty:
		return entry, NewError(CodeBankEmpty)
	case BankUnknown:
		return entry, NewError(CodeBankUnknown)
	case BankWiiDLBank2:
		return entry, NewError(CodeBankIsDLBank2)
	}

	rd, err := reader.Open(rf, rf.IsDevice(), startLBA, lengthLBA)
	if err != nil {
		return entry, WrapError(err)
	}
	entry.reader = rd

	header, deleted, err := identifyDiscHeader(rd)
	if err != nil {
		return entry, WrapError(err)
	}
	entry.DiscHeader = header
	entry.Deleted = deleted

	fillBankMeta(entry)
	return entry, nil
}

// fillBankMeta derives the region code (0xFF when the bank has no reader
// or the region can't be read). GCN banks are then marked CryptoNone;
// Wii banks also get their crypto type, signature status, and IOS
// version.
func fillBankMeta(entry *BankEntry) {
	if entry.reader == nil {
		entry.Region = 0xFF
		return
	}

	isWii := entry.Type == BankWiiSL || entry.Type == BankWiiDL || entry.IsWii()
	if region, err := deriveRegion(entry.reader, isWii); err == nil {
		entry.Region = region
	} else {
		entry.Region = 0xFF
	}

	if entry.Type == BankGCN {
		entry.Crypto = CryptoNone
		return
	}
	if !isWii {
		return
	}

	crypto, err := deriveCrypto(entry.reader, entry.DiscHeader, entry.IsUnencrypted())
	if err != nil {
		return
	}
	entry.Crypto = crypto.Crypto
	entry.TicketSigType = crypto.TicketType
	entry.TMDSigType = crypto.TMDType
	entry.TicketSig = crypto.TicketSig
	entry.TMDSig = crypto.TMDSig
	entry.IOSVersion = crypto.IOSVersion
	entry.HasIOS = crypto.HasIOS
}
