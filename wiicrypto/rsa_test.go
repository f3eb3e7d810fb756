package wiicrypto

import (
	"bytes"
	"testing"
)

func TestRSAModExpSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateRSAPrivateKey(1024)
	if err != nil {
		t.Fatalf("GenerateRSAPrivateKey: %v", err)
	}
	pub := priv.Public()

	modLen := len(pub.Modulus)
	padded := make([]byte, modLen)
	padded[modLen-1] = 0x2A

	sig, err := priv.SignRaw(padded)
	if err != nil {
		t.Fatalf("SignRaw: %v", err)
	}

	decoded, err := pub.Decrypt(sig)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decoded, padded) {
		t.Errorf("verify mismatch: got %x, want %x", decoded, padded)
	}
}

func TestRSAModExpNoSpace(t *testing.T) {
	modulus := make([]byte, 8)
	modulus[len(modulus)-1] = 0x03 // n = 3
	sig := []byte{0x02}            // s = 2
	// 2^65537 mod 3 fits trivially; force a modulus that can't represent
	// the result width by choosing exponent 1 and a signature bigger than
	// the modulus so the remainder still fits. Instead exercise the
	// explicit overflow path: a modulus of zero bytes can never hold any
	// nonzero result.
	if _, err := RSAModExp(sig, []byte{}, 1); err != ErrNoSpace {
		t.Errorf("RSAModExp with empty modulus error = %v, want ErrNoSpace", err)
	}
}

func TestRSAPublicKeyDecryptIdentityExponentOne(t *testing.T) {
	modulus := make([]byte, 4)
	modulus[0] = 0xFF
	modulus[1] = 0xFF
	modulus[2] = 0xFF
	modulus[3] = 0xFF
	pub := RSAPublicKey{Modulus: modulus, Exponent: 1}

	sig := []byte{0x00, 0x00, 0x12, 0x34}
	out, err := pub.Decrypt(sig)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(out, sig) {
		t.Errorf("exponent-1 modexp should be identity mod large n: got %x, want %x", out, sig)
	}
}
