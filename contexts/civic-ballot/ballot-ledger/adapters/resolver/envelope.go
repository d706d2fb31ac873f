// Package resolver holds choice resolvers for the ledger tally.
package resolver

import (
	"context"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const choicePrefix = "choice:"

// EnvelopeResolver reads the choice straight out of a "v1:" envelope whose
// body is the plaintext label, optionally prefixed with "choice:". It does
// no decryption and is for development and tests only.
type EnvelopeResolver struct{}

func (EnvelopeResolver) ResolveChoice(ctx context.Context, ciphertext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := votetoken.OpenEnvelope(ciphertext)
	if err != nil {
		return "", err
	}
	choice := strings.TrimSpace(strings.TrimPrefix(string(body), choicePrefix))
	if choice == "" {
		return "", failures.Invalid("ciphertext", "envelope carries no choice")
	}
	return choice, nil
}

var _ ports.ChoiceResolver = EnvelopeResolver{}
