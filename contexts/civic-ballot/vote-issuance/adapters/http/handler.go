package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application/commands"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	httptransport "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type Handler struct {
	Issuer commands.IssueUseCase
	Logger *slog.Logger
}

// IssueTokenHandler godoc
// @Summary Issue a vote token
// @Description Validates the encrypted ballot, enforces one token per identity per ballot and returns a signed, weighted token.
// @Tags vote-issuance
// @Accept json
// @Produce json
// @Param X-Identity-Digest header string true "Caller identity digest"
// @Param ballot_id path string true "Ballot id"
// @Param request body httptransport.IssueTokenRequest true "Encrypted ballot"
// @Success 201 {object} httptransport.VoteTokenResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 410 {object} httptransport.ErrorResponse
// @Router /v1/ballots/{ballot_id}/tokens [post]
func (h Handler) IssueTokenHandler(
	ctx context.Context,
	ballotID string,
	identityDigest string,
	req httptransport.IssueTokenRequest,
) (httptransport.VoteTokenResponse, error) {
	eligibility, err := eligibilityFromRequest(req)
	if err != nil {
		return httptransport.VoteTokenResponse{}, err
	}
	result, err := h.Issuer.Issue(ctx, commands.IssueCommand{
		BallotID:       ballotID,
		IdentityDigest: identityDigest,
		Ciphertext:     req.Ciphertext,
		Eligibility:    eligibility,
	})
	if err != nil {
		return httptransport.VoteTokenResponse{}, err
	}
	token := result.Token
	return httptransport.VoteTokenResponse{
		TokenID:            token.TokenID,
		BallotID:           token.BallotID,
		AnonymizedIdentity: token.AnonymizedIdentity,
		Ciphertext:         token.Ciphertext,
		Weight:             token.Weight,
		Tier:               string(result.Tier),
		IssuedAt:           token.IssuedAt.Format(time.RFC3339Nano),
		ExpiresAt:          token.ExpiresAt.Format(time.RFC3339Nano),
		KeyID:              token.KeyID,
		Signature:          token.Signature,
	}, nil
}

func eligibilityFromRequest(req httptransport.IssueTokenRequest) (entities.Eligibility, error) {
	var eligibility entities.Eligibility
	if raw := strings.TrimSpace(req.OpensAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entities.Eligibility{}, failures.Invalid("opens_at", "must be RFC3339")
		}
		eligibility.OpensAt = parsed.UTC()
	}
	if raw := strings.TrimSpace(req.ClosesAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entities.Eligibility{}, failures.Invalid("closes_at", "must be RFC3339")
		}
		eligibility.ClosesAt = parsed.UTC()
	}
	if raw := strings.TrimSpace(req.MinimumTier); raw != "" {
		level, ok := tiers.ParseLevel(raw)
		if !ok {
			return entities.Eligibility{}, failures.Invalid("minimum_tier", "unknown level")
		}
		eligibility.MinimumTier = level
	}
	return eligibility, nil
}
