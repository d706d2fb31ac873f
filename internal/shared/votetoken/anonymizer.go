package votetoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"github.com/mr-tron/base58"
)

// Anonymizer derives a per-ballot pseudonym for an identity digest. The same
// (ballot, identity) pair always maps to the same value; the same identity on
// two ballots maps to unrelated values unless the key is known.
type Anonymizer struct {
	key []byte
}

func NewAnonymizer(key []byte) (*Anonymizer, error) {
	if len(key) < 32 {
		return nil, ErrWeakKey
	}
	return &Anonymizer{key: append([]byte(nil), key...)}, nil
}

func (a *Anonymizer) Anonymize(ballotID string, identityDigest string) string {
	ballotID = strings.TrimSpace(ballotID)
	identityDigest = strings.TrimSpace(identityDigest)

	mac := hmac.New(sha256.New, a.key)
	// Length prefixes keep ("ab","c") and ("a","bc") apart.
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(ballotID)))
	mac.Write(size[:])
	mac.Write([]byte(ballotID))
	binary.BigEndian.PutUint32(size[:], uint32(len(identityDigest)))
	mac.Write(size[:])
	mac.Write([]byte(identityDigest))
	return base58.Encode(mac.Sum(nil))
}
