package rvth

import (
	"testing"

	"github.com/bodgit/rvth/wiicrypto"
)

func TestBankTypeString(t *testing.T) {
	tests := []struct {
		typ  BankType
		want string
	}{
		{BankEmpty, "Empty"},
		{BankGCN, "GCN"},
		{BankWiiSL, "Wii (Single-Layer)"},
		{BankWiiDL, "Wii (Dual-Layer)"},
		{BankUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestSigStatusFrom(t *testing.T) {
	if got := sigStatusFrom(wiicrypto.StatusOK, nil); got != SigStatusOK {
		t.Errorf("sigStatusFrom(OK) = %v, want SigStatusOK", got)
	}
	if got := sigStatusFrom(wiicrypto.Status(0), wiicrypto.ErrUnknownIssuer); got != SigStatusUnknown {
		t.Errorf("sigStatusFrom(err) = %v, want SigStatusUnknown", got)
	}
}

func TestBankEntryGameID(t *testing.T) {
	var e BankEntry
	copy(e.DiscHeader[0:6], "GALE01")
	if got := e.GameID(); got != "GALE01" {
		t.Errorf("GameID() = %q, want %q", got, "GALE01")
	}
}

func TestBankEntryIsUnencrypted(t *testing.T) {
	var e BankEntry
	if e.IsUnencrypted() {
		t.Error("zero-valued disc header should not report unencrypted")
	}
	e.DiscHeader[wiicrypto.DiscHeaderOffHashVerify] = 1
	e.DiscHeader[wiicrypto.DiscHeaderOffDiscNoCrypt] = 1
	if !e.IsUnencrypted() {
		t.Error("IsUnencrypted() = false when both flags are set")
	}
}

func TestBankEntryIsWiiAndIsGCN(t *testing.T) {
	var wii BankEntry
	putBE32(wii.DiscHeader[wiicrypto.DiscMagicWiiOff:], wiicrypto.DiscMagicWii)
	if !wii.IsWii() {
		t.Error("IsWii() = false for the Wii magic")
	}
	if wii.IsGCN() {
		t.Error("IsGCN() = true for a Wii disc header")
	}

	var gcn BankEntry
	putBE32(gcn.DiscHeader[wiicrypto.DiscMagicGCNOff:], wiicrypto.DiscMagicGCN)
	if !gcn.IsGCN() {
		t.Error("IsGCN() = false for the GCN magic")
	}
	if gcn.IsWii() {
		t.Error("IsWii() = true for a GCN disc header")
	}
}
