package wiicrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
)

// ErrNoSpace is returned when a raw RSA operation's result would not fit
// in the modulus's byte width.
var ErrNoSpace = errors.New("wiicrypto: result does not fit in modulus width")

// ErrShortBlock is returned when a buffer length isn't a multiple of the
// AES block size.
var ErrShortBlock = errors.New("wiicrypto: buffer is not a multiple of the block size")

// RSAPublicKey is a bare (modulus, exponent) pair, big-endian, matching how
// certificates store public keys on disk (no ASN.1 wrapper).
type RSAPublicKey struct {
	Modulus  []byte // big-endian, 256 or 512 bytes
	Exponent uint32
}

// RSAModExp computes sig^e mod n over big-endian byte strings. The output
// is len(modulus) bytes, left-padded with zeros; a shorter sig (such as
// the identification blob's plaintext) yields a modulus-width result. If
// the result would need more bytes than len(modulus), ErrNoSpace is
// returned rather than silently truncating.
func RSAModExp(sig []byte, modulus []byte, exponent uint32) ([]byte, error) {
	n := new(big.Int).SetBytes(modulus)
	s := new(big.Int).SetBytes(sig)
	e := big.NewInt(int64(exponent))

	result := new(big.Int).Exp(s, e, n)

	out := make([]byte, len(modulus))
	rb := result.Bytes()
	if len(rb) > len(out) {
		return nil, ErrNoSpace
	}
	copy(out[len(out)-len(rb):], rb)
	return out, nil
}

// Decrypt applies RSAModExp using k's modulus and exponent; for RSA
// signature verification the "decrypt" and "encrypt" directions are the
// same modexp, distinguished only by which exponent is public.
func (k RSAPublicKey) Decrypt(sig []byte) ([]byte, error) {
	return RSAModExp(sig, k.Modulus, k.Exponent)
}

// RSAPrivateKey wraps a standard library key so cert_realsign can perform a
// full RSA-2048 signature while still exposing the raw (modulus, exponent)
// shape certificates store.
type RSAPrivateKey struct {
	*rsa.PrivateKey
}

// GenerateRSAPrivateKey creates a new RSA private key of the given bit
// size, used only to synthesize the placeholder debug signing keys at
// package init (see certstore.go) since genuine embedded private keys are
// not available to this toolkit.
func GenerateRSAPrivateKey(bits int) (*RSAPrivateKey, error) {
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSAPrivateKey{k}, nil
}

// Public returns the bare (modulus, exponent) view of the key.
func (k *RSAPrivateKey) Public() RSAPublicKey {
	return RSAPublicKey{
		Modulus:  k.N.Bytes(),
		Exponent: uint32(k.E),
	}
}

// SignRaw performs the raw private-key RSA operation (buf = data^d mod n),
// used by cert_realsign to produce a signature over a pre-padded digest
// block rather than through rsa.SignPKCS1v15's own padding (the Wii
// signature padding shape is fixed and constructed by cert.go directly).
func (k *RSAPrivateKey) SignRaw(padded []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(padded)
	m := new(big.Int).Exp(c, k.D, k.N)
	out := make([]byte, (k.N.BitLen()+7)/8)
	mb := m.Bytes()
	if len(mb) > len(out) {
		return nil, ErrNoSpace
	}
	copy(out[len(out)-len(mb):], mb)
	return out, nil
}
