package wiicrypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESContext holds a key and IV and performs AES-128-CBC encrypt/decrypt
// on whole multiples of the block size. It exists as a thin named type so
// call sites don't assemble cipher.Block and IV handling separately in
// half a dozen places.
type AESContext struct {
	block cipher.Block
	iv    [aes.BlockSize]byte
}

// NewAESContext builds a context from a 16-byte key and a 16-byte IV.
func NewAESContext(key, iv []byte) (*AESContext, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	c := &AESContext{block: block}
	copy(c.iv[:], iv)
	return c, nil
}

// Decrypt CBC-decrypts src into a new buffer the same length as src. len(src)
// must be a multiple of aes.BlockSize.
func (c *AESContext) Decrypt(src []byte) ([]byte, error) {
	if len(src)%aes.BlockSize != 0 {
		return nil, ErrShortBlock
	}
	dst := make([]byte, len(src))
	iv := c.iv
	cipher.NewCBCDecrypter(c.block, iv[:]).CryptBlocks(dst, src)
	return dst, nil
}

// Encrypt CBC-encrypts src into a new buffer the same length as src.
func (c *AESContext) Encrypt(src []byte) ([]byte, error) {
	if len(src)%aes.BlockSize != 0 {
		return nil, ErrShortBlock
	}
	dst := make([]byte, len(src))
	iv := c.iv
	cipher.NewCBCEncrypter(c.block, iv[:]).CryptBlocks(dst, src)
	return dst, nil
}

// DecryptTitleKey is the one-shot 16-byte title-key operation the recrypt
// engine performs: decrypt under the source PKI's common key.
func DecryptTitleKey(commonKey, iv, encrypted []byte) ([]byte, error) {
	ctx, err := NewAESContext(commonKey, iv)
	if err != nil {
		return nil, err
	}
	return ctx.Decrypt(encrypted)
}

// EncryptTitleKey is the matching re-encrypt under the destination PKI's
// common key.
func EncryptTitleKey(commonKey, iv, plain []byte) ([]byte, error) {
	ctx, err := NewAESContext(commonKey, iv)
	if err != nil {
		return nil, err
	}
	return ctx.Encrypt(plain)
}
