package rvth

import (
	"errors"
	"testing"
)

func TestCodeStringKnownAndUnknown(t *testing.T) {
	if got := CodeBankEmpty.String(); got != "bank is empty" {
		t.Errorf("CodeBankEmpty.String() = %q, want %q", got, "bank is empty")
	}
	if got := Code(9999).String(); got != "unknown code 9999" {
		t.Errorf("unknown code String() = %q, want %q", got, "unknown code 9999")
	}
}

func TestNewErrorUsesCodeString(t *testing.T) {
	err := NewError(CodeBankAlreadyDeleted)
	if err.Error() != CodeBankAlreadyDeleted.String() {
		t.Errorf("Error() = %q, want %q", err.Error(), CodeBankAlreadyDeleted.String())
	}
	if err.Err != nil {
		t.Error("NewError should not set Err")
	}
}

func TestWrapErrorUsesWrappedMessage(t *testing.T) {
	inner := errors.New("boom")
	err := WrapError(inner)
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(wrapped, inner) = false, want true")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError(CodeBankEmpty)
	b := NewError(CodeBankEmpty)
	c := NewError(CodeBankUnknown)

	if !errors.Is(a, b) {
		t.Error("errors.Is with matching codes = false, want true")
	}
	if errors.Is(a, c) {
		t.Error("errors.Is with differing codes = true, want false")
	}
	if errors.Is(a, errors.New("not an *Error")) {
		t.Error("errors.Is against a non-*Error target = true, want false")
	}
}

func TestErrNoGamePartitionCarriesBothCodeAndErr(t *testing.T) {
	if ErrNoGamePartition.Code != CodePartitionTableCorrupted {
		t.Errorf("Code = %v, want CodePartitionTableCorrupted", ErrNoGamePartition.Code)
	}
	if ErrNoGamePartition.Err == nil {
		t.Error("Err should be set")
	}
}
