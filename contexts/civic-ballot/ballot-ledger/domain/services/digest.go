package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

// ChainDigest covers the previous digest, the position and the signed token
// content. The mutable active flag is not covered.
func ChainDigest(prev string, position int64, token votetoken.Token) string {
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.FormatInt(position, 10)))
	h.Write([]byte{'\n'})
	h.Write(token.SigningPayload())
	h.Write([]byte{'\n'})
	h.Write([]byte(token.KeyID))
	h.Write([]byte{'\n'})
	h.Write([]byte(token.Signature))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks that entries, ordered by position, start at zero, have no
// gaps, and that every digest links to its predecessor. It returns the index
// of the first bad entry, or -1.
func VerifyChain(entries []entities.LedgerEntry) int {
	prev := ""
	for i, entry := range entries {
		if entry.Position != int64(i) || entry.PrevDigest != prev {
			return i
		}
		if ChainDigest(prev, entry.Position, entry.Token) != entry.Digest {
			return i
		}
		prev = entry.Digest
	}
	return -1
}

// Fingerprint is a sha256 over the ordered digest list.
func Fingerprint(digests []entities.EntryDigest) string {
	var b strings.Builder
	for _, item := range digests {
		b.WriteString(strconv.FormatInt(item.Position, 10))
		b.WriteByte(':')
		b.WriteString(item.TokenID)
		b.WriteByte(':')
		b.WriteString(item.Digest)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
