package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/application/queries"
	httptransport "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/transport/http"
)

type Handler struct {
	Resolver *queries.TierResolver
	Logger   *slog.Logger
}

// GetReputationHandler godoc
// @Summary Get decayed reputation score
// @Tags reputation-engine
// @Produce json
// @Param X-Identity-Digest header string true "Caller identity digest"
// @Param identity path string true "Identity digest"
// @Success 200 {object} httptransport.ReputationResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 424 {object} httptransport.ErrorResponse
// @Router /v1/reputation/{identity} [get]
func (h Handler) GetReputationHandler(ctx context.Context, identity string) (httptransport.ReputationResponse, error) {
	score, err := h.Resolver.Score(ctx, identity)
	if err != nil {
		return httptransport.ReputationResponse{}, err
	}
	weight, err := h.Resolver.ResolveWeight(score.Tier)
	if err != nil {
		return httptransport.ReputationResponse{}, err
	}

	items := make([]httptransport.ContributionItem, 0, len(score.Contributions))
	for _, item := range score.Contributions {
		items = append(items, httptransport.ContributionItem{
			CredentialID:  item.CredentialID,
			Source:        item.Source,
			Category:      item.Category,
			BasePoints:    item.BasePoints,
			AgeDays:       item.AgeDays,
			DecayFactor:   item.DecayFactor,
			DecayedPoints: item.DecayedPoints,
		})
	}
	return httptransport.ReputationResponse{
		Identity:       score.Identity,
		Score:          score.Score,
		BaseScore:      score.BaseScore,
		Tier:           string(score.Tier),
		Weight:         weight,
		TierProgress:   score.TierProgress,
		TableVersion:   score.TableVersion,
		SkippedSources: score.SkippedSources,
		Contributions:  items,
		ComputedAt:     score.ComputedAt.Format(time.RFC3339),
	}, nil
}
