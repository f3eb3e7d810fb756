// Package rvth implements the core of the RVT-H Reader disc-image and
// title-container toolkit: bank-table parsing, the pluggable reader
// abstraction, sparse-aware extract/import, and the certificate/recrypt
// engine. The root package exposes the top-level RVTH handle and its
// bank operations; readers, crypto, timestamps, the file handle, and the
// WAD container each live in their own package.
package rvth

import (
	"errors"
	"fmt"
)

// Code enumerates the domain error kinds. Every Code has a stable
// String().
type Code int

const (
	CodeOK Code = iota
	CodeBankEmpty
	CodeBankUnknown
	CodeBankIsDLBank2
	CodeNotHDDImage
	CodeIsHDDImage
	CodeImageTooBig
	CodeBankNotEmptyOrDeleted
	CodeBankAlreadyDeleted
	CodeBankNotDeleted
	CodeWiiOnlyOperation
	CodeUnencrypted
	CodeAlreadyEncrypted
	CodePartitionTableCorrupted
	CodePartitionHeaderCorrupted
	CodeCertIssuerUnknown
	CodeSignatureUnsupported
	CodeSignatureInvalid
	CodeSignatureFakesigned
	CodeRetailCryptoUnsupported
	CodeNoBanks
	CodeNoBankTable
	CodeCancelled
	CodeWADHeaderCorrupted
	CodeWADTicketSizeInvalid
	CodeWADTMDSizeInvalid
	CodeWADMetaSizeInvalid
	CodeWADDataSizeInvalid
	CodeWADFormatUnsupported
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeBankEmpty:
		return "bank is empty"
	case CodeBankUnknown:
		return "bank type is unknown"
	case CodeBankIsDLBank2:
		return "bank is the second half of a dual-layer image"
	case CodeNotHDDImage:
		return "not an HDD image"
	case CodeIsHDDImage:
		return "is an HDD image"
	case CodeImageTooBig:
		return "image is too big for the destination bank"
	case CodeBankNotEmptyOrDeleted:
		return "destination bank is not empty or deleted"
	case CodeBankAlreadyDeleted:
		return "bank is already deleted"
	case CodeBankNotDeleted:
		return "bank is not deleted"
	case CodeWiiOnlyOperation:
		return "operation requires a Wii image"
	case CodeUnencrypted:
		return "image is unencrypted"
	case CodeAlreadyEncrypted:
		return "image is already encrypted under the requested key"
	case CodePartitionTableCorrupted:
		return "partition table is corrupted"
	case CodePartitionHeaderCorrupted:
		return "partition header is corrupted"
	case CodeCertIssuerUnknown:
		return "certificate issuer is unknown"
	case CodeSignatureUnsupported:
		return "signature type is unsupported"
	case CodeSignatureInvalid:
		return "signature is invalid"
	case CodeSignatureFakesigned:
		return "signature is fakesigned"
	case CodeRetailCryptoUnsupported:
		return "source bank uses retail encryption; only unencrypted or debug-crypto banks can be imported"
	case CodeNoBanks:
		return "source file has no recognized banks"
	case CodeNoBankTable:
		return "image has no NHCD bank table; bank-table writes are disabled"
	case CodeCancelled:
		return "operation was cancelled"
	case CodeWADHeaderCorrupted:
		return "WAD header is corrupted"
	case CodeWADTicketSizeInvalid:
		return "WAD ticket size is out of range"
	case CodeWADTMDSizeInvalid:
		return "WAD TMD size is out of range"
	case CodeWADMetaSizeInvalid:
		return "WAD meta/footer size is out of range"
	case CodeWADDataSizeInvalid:
		return "WAD data size is out of range"
	case CodeWADFormatUnsupported:
		return "WAD header type is unsupported"
	default:
		return fmt.Sprintf("unknown code %d", int(c))
	}
}

// Error carries a domain Code, a wrapped OS/library error, or (as in
// ErrNoGamePartition) a Code together with a more specific message in
// Err. Is compares Codes only, so callers never have to distinguish
// errno-style values from domain codes by sign or range.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so callers
// can write errors.Is(err, rvth.NewError(rvth.CodeBankEmpty)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError constructs a domain error from a Code alone.
func NewError(code Code) *Error { return &Error{Code: code} }

// WrapError wraps an OS or library error without assigning it a domain
// Code, converting I/O errors into this package's error domain at the
// boundary.
func WrapError(err error) *Error { return &Error{Err: err} }

// ErrCancelled is the distinguished error returned when a progress
// callback or context requests cancellation.
var ErrCancelled = NewError(CodeCancelled)

// ErrNoGamePartition is returned when the volume-group/partition-table
// walk can't locate a type-0 Game Partition at all.
var ErrNoGamePartition = &Error{Code: CodePartitionTableCorrupted, Err: errors.New("no Game Partition found")}
