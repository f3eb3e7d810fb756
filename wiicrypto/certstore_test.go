package wiicrypto

import "testing"

func TestIssuerStringRoundTrip(t *testing.T) {
	issuers := []Issuer{
		IssuerRoot, IssuerRetailCA, IssuerRetailTicket, IssuerRetailTMD,
		IssuerDebugCA, IssuerDebugTicket, IssuerDebugTMD, IssuerDebugDev,
	}
	for _, i := range issuers {
		s := i.String()
		if s == "" {
			t.Errorf("Issuer(%d).String() is empty", i)
			continue
		}
		if got := IssuerFromString(s); got != i {
			t.Errorf("IssuerFromString(%q) = %v, want %v", s, got, i)
		}
	}
}

func TestIssuerFromStringUnknown(t *testing.T) {
	if got := IssuerFromString("not-a-real-issuer"); got != IssuerUnknown {
		t.Errorf("IssuerFromString(unknown) = %v, want IssuerUnknown", got)
	}
}

func TestIssuerClassification(t *testing.T) {
	tests := []struct {
		issuer       Issuer
		retail, debug bool
	}{
		{IssuerRoot, false, false},
		{IssuerRetailCA, true, false},
		{IssuerRetailTicket, true, false},
		{IssuerRetailTMD, true, false},
		{IssuerDebugCA, false, true},
		{IssuerDebugTicket, false, true},
		{IssuerDebugTMD, false, true},
		{IssuerDebugDev, false, true},
	}
	for _, tt := range tests {
		if got := tt.issuer.IsRetail(); got != tt.retail {
			t.Errorf("%v.IsRetail() = %v, want %v", tt.issuer, got, tt.retail)
		}
		if got := tt.issuer.IsDebug(); got != tt.debug {
			t.Errorf("%v.IsDebug() = %v, want %v", tt.issuer, got, tt.debug)
		}
	}
}

func TestCertAndStore(t *testing.T) {
	for _, issuer := range []Issuer{
		IssuerRoot, IssuerRetailCA, IssuerRetailTicket, IssuerRetailTMD,
		IssuerDebugCA, IssuerDebugTicket, IssuerDebugTMD, IssuerDebugDev,
	} {
		b, ok := Cert(issuer)
		if !ok {
			t.Errorf("Cert(%v) ok = false, want true", issuer)
			continue
		}
		if len(b) == 0 {
			t.Errorf("Cert(%v) returned empty bytes", issuer)
		}
	}

	if _, ok := Cert(IssuerUnknown); ok {
		t.Error("Cert(IssuerUnknown) ok = true, want false")
	}
}

// Every PKI-internal certificate must verify against its parent; the
// self-signed root is skipped, matching cert_verify's scope.
func TestStoreCertificatesVerify(t *testing.T) {
	for _, issuer := range []Issuer{
		IssuerRetailCA, IssuerRetailTicket, IssuerRetailTMD,
		IssuerDebugCA, IssuerDebugTicket, IssuerDebugTMD, IssuerDebugDev,
	} {
		b, ok := Cert(issuer)
		if !ok {
			t.Fatalf("Cert(%v) missing", issuer)
		}
		sigType := SignatureType(be32(b))
		sigLen, ok := sigType.SigLen()
		if !ok {
			t.Fatalf("cert %v carries unsupported signature type %#x", issuer, uint32(sigType))
		}
		issuerOff := 4 + sigLen + 60

		status, err := Verify(b, sigType, issuerOff)
		if err != nil {
			t.Errorf("Verify(%v): %v", issuer, err)
			continue
		}
		if !status.OK() {
			t.Errorf("Verify(%v) status = %#x, want OK", issuer, uint16(status))
		}
	}
}

func TestDebugSigningKeysPresent(t *testing.T) {
	if DebugTicketKey() == nil {
		t.Error("DebugTicketKey() = nil")
	}
	if DebugTMDKey() == nil {
		t.Error("DebugTMDKey() = nil")
	}
}
