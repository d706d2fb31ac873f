package votetoken

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/stretchr/testify/require"
)

func testSecret(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func sampleToken() Token {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Token{
		TokenID:            "tok-1",
		BallotID:           "B1",
		AnonymizedIdentity: "anon",
		Ciphertext:         SealEnvelope([]byte("choice:yes")),
		Weight:             1.5,
		IssuedAt:           issued,
		ExpiresAt:          issued.Add(DefaultTTL),
	}
}

func TestHMACSignAndVerify(t *testing.T) {
	key, err := NewHMACKey("k1", testSecret(7))
	require.NoError(t, err)

	signed, err := SignToken(key, sampleToken())
	require.NoError(t, err)
	require.Equal(t, "k1", signed.KeyID)
	require.NoError(t, VerifyToken(key, signed))

	tampered := signed
	tampered.Weight = 3.0
	require.Equal(t, failures.KindSignature, failures.KindOf(VerifyToken(key, tampered)))

	other, err := NewHMACKey("k1", testSecret(8))
	require.NoError(t, err)
	require.Error(t, VerifyToken(other, signed))

	_, err = NewHMACKey("short", []byte("abc"))
	require.ErrorIs(t, err, ErrWeakKey)
}

func TestEd25519SignAndVerify(t *testing.T) {
	key, err := NewEd25519Key("ed-1", testSecret(3))
	require.NoError(t, err)

	signed, err := SignToken(key, sampleToken())
	require.NoError(t, err)
	require.NoError(t, VerifyToken(key.Public(), signed))

	signed.KeyID = "ed-2"
	require.Error(t, VerifyToken(key.Public(), signed))
	require.Error(t, VerifyToken(nil, signed))
}

func TestSigningPayloadIsCanonical(t *testing.T) {
	a := sampleToken()
	b := sampleToken()
	b.Signature = "ignored"
	b.KeyID = "ignored"
	require.Equal(t, a.SigningPayload(), b.SigningPayload())

	b.IssuedAt = b.IssuedAt.In(time.FixedZone("x", 3600))
	require.Equal(t, a.SigningPayload(), b.SigningPayload())
}

func TestSignatureDoesNotTransferBetweenNaNTokens(t *testing.T) {
	key, err := NewHMACKey("k1", testSecret(7))
	require.NoError(t, err)

	original := sampleToken()
	original.Weight = math.NaN()
	require.NotEmpty(t, original.SigningPayload())
	signed, err := SignToken(key, original)
	require.NoError(t, err)

	forged := signed
	forged.TokenID = "tok-2"
	forged.BallotID = "B2"
	forged.Ciphertext = SealEnvelope([]byte("choice:no"))
	require.NotEqual(t, signed.SigningPayload(), forged.SigningPayload())
	require.Error(t, VerifyToken(key, forged))
}

func TestSigningPayloadSeparatesFields(t *testing.T) {
	a := sampleToken()
	b := sampleToken()
	a.TokenID, a.BallotID = "ab", "c"
	b.TokenID, b.BallotID = "a", "bc"
	require.NotEqual(t, a.SigningPayload(), b.SigningPayload())

	b = a
	b.Weight = 1.25
	require.NotEqual(t, a.SigningPayload(), b.SigningPayload())
}

func TestCheckBounds(t *testing.T) {
	token := sampleToken()
	token.Signature = "sig"
	require.NoError(t, token.CheckBounds())

	cases := map[string]func(*Token){
		"zero weight":     func(tk *Token) { tk.Weight = 0 },
		"weight too high": func(tk *Token) { tk.Weight = 5.01 },
		"nan weight":      func(tk *Token) { tk.Weight = math.NaN() },
		"inf weight":      func(tk *Token) { tk.Weight = math.Inf(1) },
		"expiry order":    func(tk *Token) { tk.ExpiresAt = tk.IssuedAt },
		"missing ballot":  func(tk *Token) { tk.BallotID = " " },
		"bad envelope":    func(tk *Token) { tk.Ciphertext = "plain-text" },
		"no signature":    func(tk *Token) { tk.Signature = "" },
	}
	for name, mutate := range cases {
		candidate := token
		mutate(&candidate)
		require.Equal(t, failures.KindInvalidPayload, failures.KindOf(candidate.CheckBounds()), name)
	}

	token.Weight = 5
	require.NoError(t, token.CheckBounds())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	sealed := SealEnvelope([]byte("choice:no"))
	body, err := OpenEnvelope(sealed)
	require.NoError(t, err)
	require.Equal(t, "choice:no", string(body))

	require.Error(t, ValidateCiphertext("v1:"))
	require.Error(t, ValidateCiphertext("v2:abcd"))
	require.Error(t, ValidateCiphertext("v1:***"))
	require.Error(t, ValidateCiphertext("v1:"+string(bytes.Repeat([]byte("a"), MaxCiphertextBytes))))
}

func TestAnonymizerIsStablePerBallotAndUnlinkableAcross(t *testing.T) {
	anon, err := NewAnonymizer(testSecret(1))
	require.NoError(t, err)

	first := anon.Anonymize("B1", "alice")
	require.Equal(t, first, anon.Anonymize("B1", "alice"))
	require.NotEqual(t, first, anon.Anonymize("B2", "alice"))
	require.NotEqual(t, first, anon.Anonymize("B1", "bob"))
	require.NotEqual(t, anon.Anonymize("ab", "c"), anon.Anonymize("a", "bc"))
	require.NotContains(t, first, "alice")
}

func TestExpiredBoundary(t *testing.T) {
	token := sampleToken()
	require.False(t, token.Expired(token.ExpiresAt))
	require.True(t, token.Expired(token.ExpiresAt.Add(time.Millisecond)))
}
