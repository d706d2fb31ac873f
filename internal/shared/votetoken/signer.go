package votetoken

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

var ErrWeakKey = errors.New("signing key is too short")

// Signer produces detached signatures over a token's signing payload.
type Signer interface {
	KeyID() string
	Sign(payload []byte) (string, error)
}

// Verifier checks detached signatures. Implementations must compare in
// constant time.
type Verifier interface {
	Verify(keyID string, payload []byte, signature string) bool
}

func SignToken(signer Signer, token Token) (Token, error) {
	token.KeyID = signer.KeyID()
	token.Signature = ""
	signature, err := signer.Sign(token.SigningPayload())
	if err != nil {
		return Token{}, failures.Processing("sign token", err)
	}
	token.Signature = signature
	return token, nil
}

func VerifyToken(verifier Verifier, token Token) error {
	if verifier == nil || !verifier.Verify(token.KeyID, token.SigningPayload(), token.Signature) {
		return &failures.SignatureError{TokenID: token.TokenID}
	}
	return nil
}

// HMACKey signs and verifies with HMAC-SHA256 under a shared secret.
type HMACKey struct {
	id     string
	secret []byte
}

func NewHMACKey(id string, secret []byte) (*HMACKey, error) {
	if len(secret) < 32 {
		return nil, ErrWeakKey
	}
	return &HMACKey{
		id:     strings.TrimSpace(id),
		secret: append([]byte(nil), secret...),
	}, nil
}

func (k *HMACKey) KeyID() string {
	return k.id
}

func (k *HMACKey) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, k.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (k *HMACKey) Verify(keyID string, payload []byte, signature string) bool {
	if keyID != k.id {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, k.secret)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// Ed25519Key signs with a private key. Verification needs only the public half,
// so a ledger can hold an Ed25519Verifier without signing ability.
type Ed25519Key struct {
	id         string
	privateKey ed25519.PrivateKey
}

func NewEd25519Key(id string, seed []byte) (*Ed25519Key, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrWeakKey
	}
	return &Ed25519Key{
		id:         strings.TrimSpace(id),
		privateKey: ed25519.NewKeyFromSeed(seed),
	}, nil
}

func (k *Ed25519Key) KeyID() string {
	return k.id
}

func (k *Ed25519Key) Sign(payload []byte) (string, error) {
	return base64.RawURLEncoding.EncodeToString(ed25519.Sign(k.privateKey, payload)), nil
}

func (k *Ed25519Key) Public() Ed25519Verifier {
	return Ed25519Verifier{
		keys: map[string]ed25519.PublicKey{
			k.id: k.privateKey.Public().(ed25519.PublicKey),
		},
	}
}

type Ed25519Verifier struct {
	keys map[string]ed25519.PublicKey
}

func NewEd25519Verifier(keys map[string]ed25519.PublicKey) Ed25519Verifier {
	copied := make(map[string]ed25519.PublicKey, len(keys))
	for id, key := range keys {
		copied[strings.TrimSpace(id)] = key
	}
	return Ed25519Verifier{keys: copied}
}

func (v Ed25519Verifier) Verify(keyID string, payload []byte, signature string) bool {
	key, ok := v.keys[keyID]
	if !ok || len(key) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(key, payload, sig)
}
