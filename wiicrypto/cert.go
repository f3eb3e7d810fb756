package wiicrypto

import (
	"bytes"
	"crypto/sha1" //nolint:gosec
	"errors"
)

// Status is the packed verification result: bits 0..7 carry the error
// kind, bits 8..15 carry "fail" flags. StatusOK is zero.
type Status uint16

const (
	StatusOK Status = 0

	// error kinds, bits 0..7
	errUnsupportedSignatureType Status = 1
	errUnknownIssuer            Status = 2

	// fail flags, bits 8..15
	flagBaseDataError  Status = 1 << 8
	flagHashInvalid    Status = 1 << 9
	flagHashFakesigned Status = 1 << 10
)

var (
	// ErrUnsupportedSignatureType is returned when the declared signature
	// type isn't RSA-4096 or RSA-2048.
	ErrUnsupportedSignatureType = errors.New("wiicrypto: unsupported signature type")
	// ErrUnknownIssuer is returned when the issuer string doesn't match
	// any certificate in the store.
	ErrUnknownIssuer = errors.New("wiicrypto: unknown certificate issuer")
	// ErrBadPaddingOffset is returned by Fakesign when the brute-force
	// counter region would fall outside the signed range or the buffer.
	ErrBadPaddingOffset = errors.New("wiicrypto: fakesign padding region out of range")
)

// OK reports whether the verify status indicates a valid signature.
func (s Status) OK() bool { return s == StatusOK }

// Fakesigned reports whether the verify status is the "hash differs but
// first byte is zero" condition.
func (s Status) Fakesigned() bool { return s&flagHashFakesigned != 0 }

// Invalid reports a genuine, non-fakesigned hash mismatch.
func (s Status) Invalid() bool { return s&flagHashInvalid != 0 }

var sigMagicRetail = [3]byte{0x00, 0x01, 0xFF}
var sigMagicDebug = [2]byte{0x00, 0x02}

// sigFixedDataRetail is the fixed 16-byte ASN.1 DigestInfo header (SHA-1
// OID) that precedes the hash in a retail PKCS#1-style signature.
var sigFixedDataRetail = [16]byte{
	0x00, 0x30, 0x21, 0x30, 0x09, 0x06, 0x05,
	0x2B, 0x0E, 0x03, 0x02, 0x1A, 0x05, 0x00, 0x04, 0x14,
}

// Verify looks up the parent certificate named by the issuer field at
// issuerOff, RSA-decrypts the signature with the parent's public key, and
// checks the PKCS#1-style padding and trailing SHA-1.
func Verify(raw []byte, sigType SignatureType, issuerOff int) (Status, error) {
	sigLen, ok := sigType.SigLen()
	if !ok {
		return errUnsupportedSignatureType, ErrUnsupportedSignatureType
	}

	issuer := trimIssuer(raw[issuerOff : issuerOff+IssuerLen])
	parentIssuer := IssuerFromString(issuer)
	if parentIssuer == IssuerUnknown {
		return errUnknownIssuer, ErrUnknownIssuer
	}

	parentCert, ok := Store()[parentIssuer]
	if !ok {
		return errUnknownIssuer, ErrUnknownIssuer
	}
	pub, err := parentPublicKey(parentCert.bytes)
	if err != nil {
		return flagBaseDataError, err
	}
	if len(pub.Modulus) != sigLen {
		return errUnsupportedSignatureType, ErrUnsupportedSignatureType
	}

	sig := raw[4 : 4+sigLen]
	decoded, err := pub.Decrypt(sig)
	if err != nil {
		return flagBaseDataError, err
	}

	// A magic/padding mismatch marks the base data bad but never short-
	// circuits: the SHA-1 comparison below must still run so a zeroed
	// (fakesigned) signature is reported as fakesigned, not merely
	// corrupt.
	var ret Status
	tailStart := sigLen - 20

	switch {
	case decoded[0] == sigMagicRetail[0] && decoded[1] == sigMagicRetail[1] && decoded[2] == sigMagicRetail[2]:
		asnStart := tailStart - 16
		for _, b := range decoded[2:asnStart] {
			if b != 0xFF {
				ret |= flagBaseDataError
				break
			}
		}
		if ret == 0 && !bytes.Equal(decoded[asnStart:tailStart], sigFixedDataRetail[:]) {
			ret |= flagBaseDataError
		}
	case decoded[0] == sigMagicDebug[0] && decoded[1] == sigMagicDebug[1]:
		// No fixed padding to check.
	default:
		ret |= flagBaseDataError
	}

	digest := sha1.Sum(raw[issuerOff:]) //nolint:gosec
	ret |= compareDigest(decoded[tailStart:], digest[:])
	return ret, nil
}

func compareDigest(decoded, computed []byte) Status {
	if bytes.Equal(decoded, computed) {
		return StatusOK
	}
	if computed[0] == 0x00 {
		return flagHashFakesigned
	}
	return flagHashInvalid
}

// parentPublicKey skips the parent's own signature block to reach its
// embedded public key.
func parentPublicKey(certBytes []byte) (RSAPublicKey, error) {
	sigType := SignatureType(be32(certBytes))
	sigLen, ok := sigType.SigLen()
	if !ok {
		return RSAPublicKey{}, ErrUnsupportedSignatureType
	}
	off := 4 + sigLen + 60 + IssuerLen + 4 // sig block + issuer + key type
	keyLen := publicKeyLen(certBytes, off)
	modulus := certBytes[off : off+keyLen]
	exponent := be32(certBytes[off+keyLen:])
	return RSAPublicKey{Modulus: modulus, Exponent: exponent}, nil
}

// publicKeyLen infers the embedded public key size (256 or 512 bytes) from
// how many bytes remain after the key-type field, matching this store's
// fixed cert shapes (RSA-2048 CA/leaf certs, RSA-4096 root).
func publicKeyLen(certBytes []byte, off int) int {
	remaining := len(certBytes) - off
	if remaining >= 512+4+52 {
		return 512
	}
	return 256
}

// Fakesign zeroes the signature, then brute-forces the 16-byte padding
// region at padOff until the SHA-1 of the signed range begins with 0x00,
// which the Wii's signature check accepts for an all-zero signature.
// padOff must name reserved bytes inside the signed range
// (TicketOffPadding2 for tickets, TMDOffReserved for TMDs) so the
// brute-force never disturbs meaningful fields.
func Fakesign(raw []byte, sigType SignatureType, issuerOff, padOff int) error {
	sigLen, ok := sigType.SigLen()
	if !ok {
		return ErrUnsupportedSignatureType
	}
	if padOff < issuerOff || padOff+16 > len(raw) {
		return ErrBadPaddingOffset
	}
	sig := raw[4 : 4+sigLen]
	for i := range sig {
		sig[i] = 0
	}

	pad := raw[padOff : padOff+16]
	for {
		h := sha1.Sum(raw[issuerOff:]) //nolint:gosec
		if h[0] == 0x00 {
			return nil
		}
		incrementCounter(pad)
	}
}

func incrementCounter(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// Realsign produces a full RSA signature using priv, writing the
// retail-style PKCS#1 padding (magic, 0xFF fill, fixed ASN.1 tail, SHA-1
// digest) into the signature field. Certificates always carry this
// layout, including those in the debug chain; debug tickets and TMDs use
// RealsignDebug instead.
func Realsign(raw []byte, sigType SignatureType, issuerOff int, priv *RSAPrivateKey) error {
	sigLen, ok := sigType.SigLen()
	if !ok {
		return ErrUnsupportedSignatureType
	}
	digest := sha1.Sum(raw[issuerOff:]) //nolint:gosec
	padded := buildRetailPadded(sigLen, digest)
	sig, err := priv.SignRaw(padded)
	if err != nil {
		return err
	}
	copy(raw[4:4+sigLen], sig)
	return nil
}

// RealsignDebug signs like Realsign but lays the decrypted signature out
// in the debug style: the 00 02 magic, zero fill, and the trailing SHA-1,
// with no 0xFF padding or ASN.1 tail. Debug-PKI tickets and TMDs carry
// this layout; certificates keep the retail layout even in the debug
// chain.
func RealsignDebug(raw []byte, sigType SignatureType, issuerOff int, priv *RSAPrivateKey) error {
	sigLen, ok := sigType.SigLen()
	if !ok {
		return ErrUnsupportedSignatureType
	}
	digest := sha1.Sum(raw[issuerOff:]) //nolint:gosec
	padded := make([]byte, sigLen)
	padded[0] = sigMagicDebug[0]
	padded[1] = sigMagicDebug[1]
	copy(padded[sigLen-20:], digest[:])
	sig, err := priv.SignRaw(padded)
	if err != nil {
		return err
	}
	copy(raw[4:4+sigLen], sig)
	return nil
}

func buildRetailPadded(sigLen int, digest [20]byte) []byte {
	buf := make([]byte, sigLen)
	buf[0] = 0x00
	buf[1] = 0x01
	tailStart := sigLen - 20
	asnStart := tailStart - 16
	for i := 2; i < asnStart; i++ {
		buf[i] = 0xFF
	}
	copy(buf[asnStart:tailStart], sigFixedDataRetail[:])
	copy(buf[tailStart:], digest[:])
	return buf
}

// newSelfSignedCert builds a certificate for selfIssuer signed by
// parentPriv (or self-signed when parentPriv is nil, for the root), in the
// exact byte shape cert_verify expects: sig block, issuer string, key
// type, public key, padding. It is used only to synthesize the
// placeholder PKI at package init; see certstore.go.
func newSelfSignedCert(selfIssuer, parentIssuer Issuer, bits int, parentPriv *RSAPrivateKey) ([]byte, *RSAPrivateKey, error) {
	selfPriv, err := GenerateRSAPrivateKey(bits)
	if err != nil {
		return nil, nil, err
	}

	signingBits := bits
	if parentPriv != nil {
		signingBits = parentPriv.N.BitLen()
	}
	sigLen := 256
	sigType := SigRSA2048SHA1
	if signingBits > 2048 {
		sigLen = 512
		sigType = SigRSA4096SHA1
	}

	keyLen := 256
	if bits > 2048 {
		keyLen = 512
	}

	total := 4 + sigLen + 60 + IssuerLen + 4 + keyLen + 4 + 52
	buf := make([]byte, total)
	putBE32(buf[0:], uint32(sigType))

	issuerOff := 4 + sigLen + 60
	if parentIssuer >= 0 {
		putIssuer(buf[issuerOff:issuerOff+IssuerLen], parentIssuer.String())
	}

	keyTypeOff := issuerOff + IssuerLen
	if bits > 2048 {
		buf[keyTypeOff+3] = 0
	} else {
		buf[keyTypeOff+3] = 1
	}

	pubOff := keyTypeOff + 4
	pub := selfPriv.Public()
	copy(buf[pubOff+keyLen-len(pub.Modulus):pubOff+keyLen], pub.Modulus)
	putBE32(buf[pubOff+keyLen:], pub.Exponent)

	signer := parentPriv
	if signer == nil {
		signer = selfPriv
	}
	if err := Realsign(buf, sigType, issuerOff, signer); err != nil {
		return nil, nil, err
	}

	return buf, selfPriv, nil
}
