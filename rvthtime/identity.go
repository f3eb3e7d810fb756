package rvthtime

import (
	"fmt"
	"time"

	"github.com/bodgit/rvth/wiicrypto"
)

// idHeader is the fixed 10-byte obfuscated header (XORed with 0x69) that
// opens every identification blob.
var idHeader = [10]byte{0x1B, 0x1F, 0x1D, 0x01, 0x1D, 0x06, 0x06, 0x05, 0x53, 0x49}

const (
	idPlaintextSize = 256 - 16 // 16 bytes of headroom under the RSA-2048 modulus
	idFreeTextStart = 10
	idFreeTextEnd   = 0x40
	idDiscHeaderOff = 0x40
	idCipherSize    = 256
)

// idPublicExponent and idPublicModulus are the static RSA-2048 public key
// every identification blob is encrypted under.
const idPublicExponent = 0x00010001

var idPublicModulus = []byte{
	0xB5, 0xBC, 0x70, 0x4C, 0x75, 0x3D, 0xCF, 0x02, 0x67, 0x04, 0x1A, 0xAB, 0xC3, 0xC8, 0x20, 0xD6,
	0x51, 0xE8, 0xE2, 0xCC, 0x6A, 0x08, 0xCF, 0x70, 0xEE, 0xCF, 0x45, 0x20, 0x27, 0xCC, 0x81, 0x77,
	0x98, 0xBB, 0x22, 0x82, 0x61, 0xA4, 0x1B, 0x52, 0x19, 0xC0, 0x3F, 0x50, 0xAF, 0xCE, 0x6E, 0xAB,
	0x22, 0xF8, 0xC2, 0x23, 0xC0, 0xCF, 0x18, 0x82, 0x72, 0xDD, 0xFC, 0xF9, 0xB9, 0x7C, 0x73, 0x1E,
	0xBF, 0xAB, 0xDF, 0x49, 0x1F, 0xCC, 0x73, 0x53, 0xDF, 0xB9, 0x01, 0xDA, 0x13, 0x5C, 0x11, 0x9E,
	0xA0, 0x1E, 0x7B, 0xFA, 0x61, 0x2F, 0x50, 0xB1, 0xDA, 0x98, 0x8F, 0xB5, 0x29, 0x60, 0x30, 0x44,
	0x80, 0x01, 0x20, 0xE1, 0x03, 0x24, 0xFB, 0xBA, 0xDC, 0x07, 0xA0, 0xBB, 0x57, 0x6F, 0x37, 0x38,
	0xD2, 0xD2, 0x44, 0x81, 0x5C, 0xE5, 0xF4, 0xF6, 0xDC, 0x68, 0x58, 0x19, 0x3D, 0x8B, 0xD8, 0xEC,
	0x5D, 0x8F, 0x46, 0x11, 0x46, 0x0E, 0x2C, 0xDA, 0x00, 0x47, 0x0B, 0xD7, 0x24, 0x70, 0x7E, 0x5B,
	0x6E, 0xEF, 0x7B, 0xF0, 0x3C, 0x5A, 0x55, 0xD4, 0x42, 0xA2, 0x03, 0x88, 0x0C, 0x2C, 0xB2, 0xEB,
	0x98, 0x96, 0x15, 0xAD, 0xEE, 0x99, 0xAD, 0x9D, 0x1B, 0xD6, 0x16, 0xF8, 0x70, 0x55, 0xF1, 0x43,
	0x12, 0x5B, 0x2B, 0x51, 0x1C, 0x09, 0x05, 0xBC, 0xD3, 0xEA, 0xD9, 0x35, 0xEA, 0x20, 0x54, 0x1D,
	0x86, 0xF2, 0xC1, 0xD1, 0x60, 0xEE, 0x66, 0x39, 0xA2, 0x75, 0xCB, 0x65, 0xEC, 0x53, 0x24, 0x5C,
	0x8F, 0x06, 0x25, 0xD9, 0xC1, 0x88, 0x03, 0xEC, 0xC3, 0x0A, 0xC2, 0x72, 0x49, 0x4C, 0x45, 0xEF,
	0xAB, 0x2F, 0x66, 0xA1, 0x3C, 0xDC, 0x28, 0x39, 0xFD, 0x64, 0x33, 0xDF, 0x72, 0x43, 0xD9, 0x65,
	0x2B, 0xDF, 0x94, 0x14, 0x0A, 0x7B, 0xE0, 0xBA, 0x40, 0x29, 0xC5, 0x23, 0x30, 0x2C, 0x14, 0xC1,
}

// tzString formats a timezone offset as "[-]HHMM". t's offset is read
// directly from its Location via Zone(), which needs no thread-unsafe
// global timezone state.
func tzString(t time.Time) string {
	_, offsetSec := t.Zone()
	sign := ""
	if offsetSec < 0 {
		sign = "-"
		offsetSec = -offsetSec
	}
	return fmt.Sprintf("%s%02d%02d", sign, offsetSec/3600, (offsetSec/60)%60)
}

// CreateIdentificationBlob builds and RSA-encrypts an identification
// blob: a 10-byte obfuscated header, a free-text field mixing extra (e.g.
// "oldID -> newID") with a local timestamp and tz offset, then a
// disc-header copy, all emitted as 256-byte ciphertext.
func CreateIdentificationBlob(discHeader []byte, extra string, now time.Time) ([]byte, error) {
	if len(discHeader) != wiicrypto.DiscHeaderSize {
		return nil, fmt.Errorf("rvthtime: disc header must be %#x bytes, got %#x", wiicrypto.DiscHeaderSize, len(discHeader))
	}

	buf := make([]byte, idPlaintextSize)
	for i := range buf {
		buf[i] = 0xFF
	}

	for i, b := range idHeader {
		buf[i] = b ^ 0x69
	}

	local := now.Local()
	ts := local.Format("2006/01/02 15:04:05")
	tz := tzString(local)

	var freeText string
	if extra != "" {
		freeText = fmt.Sprintf("%s, %s %s", extra, ts, tz)
	} else {
		freeText = fmt.Sprintf("%s %s", ts, tz)
	}
	copy(buf[idFreeTextStart:idFreeTextEnd], freeText)
	// snprintf truncates at the buffer boundary and NUL-terminates; a Go
	// copy that overruns idFreeTextEnd is simply clipped by copy's
	// length semantics already, so no further truncation is needed here.

	copy(buf[idDiscHeaderOff:idDiscHeaderOff+wiicrypto.DiscHeaderSize], discHeader)

	return wiicrypto.RSAModExp(buf, idPublicModulus, idPublicExponent)
}
