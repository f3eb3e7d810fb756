package wad

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"

	"github.com/bodgit/rvth"
	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
	"github.com/connesc/cipherio"
	"github.com/spf13/afero"
)

// h3BlockSize is the content chunk size each 20-byte H3 table entry
// covers.
const h3BlockSize = 0x10000000

// WriteNUSDirectory lays a WAD out as an NUS-style directory: title.tik,
// title.tmd, title.cert and a per-content app file (plus an h3 file for
// hash-tree contents), decrypting each content stream under the WAD's own
// title key.
func WriteNUSDirectory(fs afero.Fs, dir string, w *WAD) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return rvth.WrapError(err)
	}

	if err := writeSection(fs, filepath.Join(dir, "title.tik"), w.ra, int64(w.Info.TicketAddress), int64(w.Info.TicketSize)); err != nil {
		return err
	}
	if err := writeSection(fs, filepath.Join(dir, "title.tmd"), w.ra, int64(w.Info.TMDAddress), int64(w.Info.TMDSize)); err != nil {
		return err
	}
	if err := writeSection(fs, filepath.Join(dir, "title.cert"), w.ra, int64(w.Info.CertChainAddress), int64(w.Info.CertChainSize)); err != nil {
		return err
	}

	srcKey, err := wiicrypto.ClassifySourceCommonKey(w.Ticket)
	if err != nil {
		return rvth.NewError(rvth.CodeCertIssuerUnknown)
	}
	titleKey, err := wiicrypto.DecryptTitleKey(wiicrypto.CommonKey(srcKey), w.Ticket.TitleKeyIV(), w.Ticket.EncryptedTitleKey())
	if err != nil {
		return rvth.WrapError(err)
	}
	block, err := aes.NewCipher(titleKey)
	if err != nil {
		return rvth.WrapError(err)
	}

	align := int64(64)
	if w.Info.Format == FormatBWF {
		align = 16
	}

	contents := w.TMD.Contents()
	addr := int64(w.Info.DataAddress)

	for i, c := range contents {
		size := int64(c.Size)
		padded := endian.AlignUp(size, int64(block.BlockSize()))

		iv := make([]byte, block.BlockSize())
		binary.BigEndian.PutUint16(iv[:2], c.Index)

		sr := io.NewSectionReader(w.ra, addr, padded)
		cbc := cipherio.NewBlockReader(sr, cipher.NewCBCDecrypter(block, iv))

		appName := filepath.Join(dir, fmt.Sprintf("%08x.app", c.ContentID))
		if err := writeStream(fs, appName, io.LimitReader(cbc, size)); err != nil {
			return err
		}
		addr += padded

		// Content type bit 0x2 marks a hash-tree (shared) content, which
		// carries a trailing plaintext H3 table, one SHA-1 per
		// h3BlockSize of content.
		if c.Type&0x2 != 0 {
			h3Size := int64(20) * (size/h3BlockSize + 1)
			h3Name := filepath.Join(dir, fmt.Sprintf("%08x.h3", c.ContentID))
			if err := writeSection(fs, h3Name, w.ra, addr, h3Size); err != nil {
				return err
			}
			addr += h3Size
		}

		if i < len(contents)-1 {
			addr = endian.AlignUp(addr, align)
		}
	}

	return nil
}

func writeSection(fs afero.Fs, path string, ra io.ReaderAt, off, size int64) error {
	buf := make([]byte, size)
	if _, err := ra.ReadAt(buf, off); err != nil {
		return rvth.WrapError(err)
	}
	return writeStream(fs, path, bytes.NewReader(buf))
}

func writeStream(fs afero.Fs, path string, r io.Reader) error {
	f, err := fs.Create(path)
	if err != nil {
		return rvth.WrapError(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return rvth.WrapError(err)
	}
	if err := f.Close(); err != nil {
		return rvth.WrapError(err)
	}
	return nil
}
