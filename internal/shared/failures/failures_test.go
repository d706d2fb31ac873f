package failures

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfFollowsWrapChain(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Invalid("ciphertext", "empty"), KindInvalidPayload},
		{fmt.Errorf("issue: %w", &DuplicateError{ExistingID: "tok-1"}), KindDuplicateVote},
		{&ExpiredError{Subject: "ballot B1"}, KindExpiredBallot},
		{&SignatureError{TokenID: "tok-2"}, KindSignature},
		{&InsufficientResponsesError{Have: 3, Need: 25}, KindInsufficientResponses},
		{&AccessDeniedError{Subject: "x", Required: "moderator"}, KindAccessDenied},
		{&SourceUnavailableError{Source: "registry", Err: errors.New("timeout")}, KindSourceUnavailable},
		{&ProcessingError{Op: "append", Err: errors.New("disk full")}, KindProcessing},
		{errors.New("plain"), KindUnknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err), tc.err.Error())
	}
}

func TestProcessingKeepsExistingKind(t *testing.T) {
	dup := &DuplicateError{ExistingID: "tok-1"}
	require.Same(t, dup, Processing("claim", dup))

	cause := errors.New("connection reset")
	wrapped := Processing("append", cause)
	require.Equal(t, KindProcessing, KindOf(wrapped))
	require.ErrorIs(t, wrapped, cause)
	require.NoError(t, Processing("noop", nil))
}

func TestDuplicateErrorCarriesExistingID(t *testing.T) {
	var dup *DuplicateError
	err := fmt.Errorf("wrapped: %w", &DuplicateError{ExistingID: "tok-9"})
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "tok-9", dup.ExistingID)
}
