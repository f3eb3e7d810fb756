package rvth

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec

	"github.com/bodgit/rvth/internal/endian"
	"github.com/bodgit/rvth/wiicrypto"
)

// Wii hash-tree geometry: each 0x8000-byte cluster is a 0x400-byte hash
// block (itself AES-CBC encrypted under the partition's title key, IV
// zero) followed by 31 0x400-byte data subblocks, each independently
// AES-CBC encrypted under the title key using its own H0 hash entry as
// the IV.
const (
	clusterSize   = 0x8000
	hashBlockSize = 0x400
	h0EntrySize   = 20
	subBlockSize  = hashBlockSize
	// 31 data subblocks per cluster; the hash block's remaining bytes past
	// 31*20 are padding.
	h0EntriesPerHash = (clusterSize - hashBlockSize) / subBlockSize
)

// PartitionVerifyResult is one partition's H0 hash-tree check outcome.
type PartitionVerifyResult struct {
	ID         string
	H0Checked  int
	H0Mismatch int
}

// OK reports whether every H0 hash in this partition matched.
func (p PartitionVerifyResult) OK() bool { return p.H0Mismatch == 0 }

// VerifyResult is the outcome of Verify over every partition in a bank.
type VerifyResult struct {
	Bank       int
	Partitions []PartitionVerifyResult
}

// OK reports whether every partition's H0 hashes matched.
func (v VerifyResult) OK() bool {
	for _, p := range v.Partitions {
		if !p.OK() {
			return false
		}
	}
	return true
}

// commonKeyIndexForCrypto maps a bank's already-derived CryptoType back to
// the CommonKeyIndex needed to decrypt its title keys.
func commonKeyIndexForCrypto(c CryptoType) (wiicrypto.CommonKeyIndex, bool) {
	switch c {
	case CryptoRetail:
		return wiicrypto.CommonKeyRetail, true
	case CryptoKorean:
		return wiicrypto.CommonKeyKorean, true
	case CryptoVWii:
		return wiicrypto.CommonKeyVWii, true
	case CryptoDebug:
		return wiicrypto.CommonKeyDebug, true
	default:
		return 0, false
	}
}

// Verify recomputes, for every partition in a Wii bank, each 0x400-byte
// data subblock's SHA-1 under its decrypted H0 hash-tree entry and
// reports how many mismatched. Only the H0 level is checked; walking the
// upper hash levels or the filesystem is out of scope here. ctx is
// checked once per cluster, matching the granularity of the buffered copy
// loops elsewhere in this package.
func (r *RVTH) Verify(ctx context.Context, bank int, progress ProgressCallback) (VerifyResult, error) {
	var result VerifyResult
	result.Bank = bank

	entry, err := r.Bank(bank)
	if err != nil {
		return result, err
	}

	switch entry.Type {
	case BankWiiSL, BankWiiDL:
	case BankGCN:
		return result, NewError(CodeWiiOnlyOperation)
	case BankEmpty:
		return result, NewError(CodeBankEmpty)
	case BankWiiDLBank2:
		return result, NewError(CodeBankIsDLBank2)
	default:
		return result, NewError(CodeBankUnknown)
	}
	if entry.Deleted {
		return result, NewError(CodeBankAlreadyDeleted)
	}
	if entry.IsUnencrypted() {
		return result, NewError(CodeUnencrypted)
	}

	ckIdx, ok := commonKeyIndexForCrypto(entry.Crypto)
	if !ok {
		return result, NewError(CodeCertIssuerUnknown)
	}
	commonKey := wiicrypto.CommonKey(ckIdx)

	ptbl, err := parsePartitionTable(entry.reader, false)
	if err != nil {
		return result, WrapError(err)
	}
	if len(ptbl) == 0 {
		return result, NewError(CodePartitionTableCorrupted)
	}

	zeroIV := make([]byte, 16)

	for i, pte := range ptbl {
		if err := ctx.Err(); err != nil {
			return result, ErrCancelled
		}
		if !callProgress(progress, ProgressState{Type: ProgressVerify, Processed: uint32(i), Total: uint32(len(ptbl)), Bank: bank}) {
			return result, ErrCancelled
		}

		pr, err := verifyPartitionH0(ctx, entry.reader, pte, commonKey, zeroIV)
		if err != nil {
			return result, err
		}
		result.Partitions = append(result.Partitions, pr)
	}

	callProgress(progress, ProgressState{Type: ProgressVerify, Processed: uint32(len(ptbl)), Total: uint32(len(ptbl)), Bank: bank})

	return result, nil
}

// verifyPartitionH0 reads the partition header to find the title key and
// data region, then walks every cluster in the data region checking each
// subblock's SHA-1 against its decrypted H0 entry.
func verifyPartitionH0(ctx context.Context, rd bankReader, pte partitionTableEntry, commonKey, zeroIV []byte) (PartitionVerifyResult, error) {
	result := PartitionVerifyResult{ID: pte.ID}

	hdrBuf, err := readBytes(rd, endian.LBAToBytes(pte.LBAStart), wiicrypto.PartitionHeaderSize)
	if err != nil {
		return result, WrapError(err)
	}

	ticket := &wiicrypto.Ticket{}
	copy(ticket.Raw[:], hdrBuf[wiicrypto.PartitionHeaderOffTicket:wiicrypto.PartitionHeaderOffTicket+wiicrypto.TicketSize])

	titleKey, err := wiicrypto.DecryptTitleKey(commonKey, ticket.TitleKeyIV(), ticket.EncryptedTitleKey())
	if err != nil {
		return result, WrapError(err)
	}

	dataOffset := int64(be32(hdrBuf[wiicrypto.PartitionHeaderOffDataOffset:])) << 2
	dataSize := int64(be32(hdrBuf[wiicrypto.PartitionHeaderOffDataSize:])) << 2
	if dataSize <= 0 {
		return result, NewError(CodePartitionHeaderCorrupted)
	}

	partitionLBA := pte.LBAStart + uint32(dataOffset/endian.LBASize)
	nclusters := dataSize / clusterSize

	cluster := make([]byte, clusterSize)
	for c := int64(0); c < nclusters; c++ {
		if err := ctx.Err(); err != nil {
			return result, ErrCancelled
		}

		clusterLBA := partitionLBA + uint32(c*clusterSize/endian.LBASize)
		if _, err := rd.ReadLBA(cluster, clusterLBA, clusterSize/endian.LBASize); err != nil {
			return result, WrapError(err)
		}

		hashCtx, err := wiicrypto.NewAESContext(titleKey, zeroIV)
		if err != nil {
			return result, WrapError(err)
		}
		hashBlock, err := hashCtx.Decrypt(cluster[:hashBlockSize])
		if err != nil {
			return result, WrapError(err)
		}

		for j := 0; j < h0EntriesPerHash; j++ {
			stored := hashBlock[j*h0EntrySize : j*h0EntrySize+h0EntrySize]
			subEnc := cluster[hashBlockSize+j*subBlockSize : hashBlockSize+(j+1)*subBlockSize]

			iv := make([]byte, 16)
			copy(iv, stored[:16])
			subCtx, err := wiicrypto.NewAESContext(titleKey, iv)
			if err != nil {
				return result, WrapError(err)
			}
			sub, err := subCtx.Decrypt(subEnc)
			if err != nil {
				return result, WrapError(err)
			}

			got := sha1.Sum(sub) //nolint:gosec
			result.H0Checked++
			if !bytes.Equal(got[:], stored) {
				result.H0Mismatch++
			}
		}
	}

	return result, nil
}
