package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application/commands"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application/queries"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	httptransport "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type Handler struct {
	Polls     commands.PollUseCase
	Analytics queries.Service
	Logger    *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	capability access.Capability,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	closesAt, err := parseOptionalTime("closes_at", req.ClosesAt)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	poll, err := h.Polls.CreatePoll(ctx, capability, commands.CreatePollCommand{
		PollID:      req.PollID,
		Title:       req.Title,
		Options:     req.Options,
		MultiSelect: req.MultiSelect,
		Baseline:    req.Baseline,
		ClosesAt:    closesAt,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	resp := httptransport.PollResponse{
		PollID:      poll.PollID,
		Title:       poll.Title,
		Options:     poll.Options,
		MultiSelect: poll.MultiSelect,
		Baseline:    poll.Baseline,
		CreatedAt:   poll.CreatedAt.Format(time.RFC3339Nano),
	}
	if !poll.ClosesAt.IsZero() {
		resp.ClosesAt = poll.ClosesAt.Format(time.RFC3339Nano)
	}
	return resp, nil
}

// SubmitResponseHandler godoc
// @Summary Record a poll response
// @Tags response-aggregator
// @Accept json
// @Produce json
// @Param X-Identity-Digest header string true "Caller identity digest"
// @Param poll_id path string true "Poll id"
// @Param request body httptransport.SubmitResponseRequest true "Selected options"
// @Success 201 {object} httptransport.SubmittedResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/responses [post]
func (h Handler) SubmitResponseHandler(
	ctx context.Context,
	pollID string,
	identityDigest string,
	req httptransport.SubmitResponseRequest,
) (httptransport.SubmittedResponse, error) {
	response, err := h.Polls.RecordResponse(ctx, commands.RecordResponseCommand{
		PollID:         pollID,
		IdentityDigest: identityDigest,
		Selected:       req.Selected,
		Comment:        req.Comment,
	})
	if err != nil {
		return httptransport.SubmittedResponse{}, err
	}
	return httptransport.SubmittedResponse{
		ResponseID:    response.ResponseID,
		PollID:        response.PollID,
		ResponderHash: response.ResponderHash,
		Tier:          string(response.Tier),
		Weight:        response.Weight,
		Selected:      response.Selected,
		SubmittedAt:   response.SubmittedAt.Format(time.RFC3339Nano),
	}, nil
}

func (h Handler) AggregateHandler(ctx context.Context, capability access.Capability, pollID string) (httptransport.AggregateResponse, error) {
	aggregate, err := h.Analytics.Aggregate(ctx, capability, pollID)
	if err != nil {
		return httptransport.AggregateResponse{}, err
	}
	options := make([]httptransport.OptionResultResponse, 0, len(aggregate.Options))
	for _, option := range aggregate.Options {
		shares := make([]httptransport.TierOptionShareResponse, 0, len(option.Tiers))
		for _, item := range option.Tiers {
			shares = append(shares, httptransport.TierOptionShareResponse{
				Tier:    string(item.Tier),
				Count:   item.Count,
				Percent: item.Percent,
			})
		}
		options = append(options, httptransport.OptionResultResponse{
			Option:   option.Option,
			Raw:      option.Raw,
			Weighted: option.Weighted,
			Tiers:    shares,
		})
	}
	participation := make([]httptransport.TierParticipationResponse, 0, len(aggregate.Participation))
	for _, item := range aggregate.Participation {
		participation = append(participation, httptransport.TierParticipationResponse{
			Tier:       string(item.Tier),
			Responses:  item.Responses,
			Share:      item.Share,
			MeanWeight: item.MeanWeight,
		})
	}
	return httptransport.AggregateResponse{
		PollID:        aggregate.PollID,
		ResponseCount: aggregate.ResponseCount,
		WeightedTotal: aggregate.WeightedTotal,
		Options:       options,
		Participation: participation,
	}, nil
}

func (h Handler) ImpactHandler(ctx context.Context, capability access.Capability, pollID string) (httptransport.ImpactResponse, error) {
	impact, err := h.Analytics.Impact(ctx, capability, pollID)
	if err != nil {
		return httptransport.ImpactResponse{}, err
	}
	return httptransport.ImpactResponse{
		PollID:                impact.PollID,
		ResponseCount:         impact.ResponseCount,
		Baseline:              impact.Baseline,
		Engagement:            impact.Engagement,
		WeightedInfluence:     impact.WeightedInfluence,
		PublicOpinionStrength: impact.PublicOpinionStrength,
		DominantTier:          string(impact.DominantTier),
	}, nil
}

func (h Handler) AlignmentHandler(ctx context.Context, capability access.Capability, pollID string) (httptransport.AlignmentResponse, error) {
	alignment, err := h.Analytics.Alignment(ctx, capability, pollID)
	if err != nil {
		return httptransport.AlignmentResponse{}, err
	}
	pairs := make([]httptransport.TierDivergenceResponse, 0, len(alignment.Pairs))
	for _, pair := range alignment.Pairs {
		pairs = append(pairs, httptransport.TierDivergenceResponse{
			TierA:      string(pair.A),
			TierB:      string(pair.B),
			Divergence: pair.Divergence,
		})
	}
	options := make([]httptransport.OptionAlignmentResponse, 0, len(alignment.Options))
	for _, option := range alignment.Options {
		options = append(options, httptransport.OptionAlignmentResponse{
			Option:     option.Option,
			Divergence: option.Divergence,
			Status:     option.Status,
		})
	}
	return httptransport.AlignmentResponse{
		PollID:           alignment.PollID,
		Pairs:            pairs,
		Options:          options,
		OverallConsensus: alignment.OverallConsensus,
		Polarization:     alignment.Polarization,
		Agreement:        alignment.Agreement,
		Conflict:         alignment.Conflict,
		MinorityConcerns: levelNames(alignment.MinorityConcerns),
	}, nil
}

func (h Handler) PushbackHandler(ctx context.Context, capability access.Capability, pollID string) (httptransport.PushbackResponse, error) {
	pushback, err := h.Analytics.Pushback(ctx, capability, pollID)
	if err != nil {
		return httptransport.PushbackResponse{}, err
	}
	items := make([]httptransport.TierOppositionResponse, 0, len(pushback.Tiers))
	for _, item := range pushback.Tiers {
		items = append(items, httptransport.TierOppositionResponse{
			Tier:       string(item.Tier),
			Responses:  item.Responses,
			Opposed:    item.Opposed,
			Percent:    item.Percent,
			Weight:     item.Weight,
			IsOpposing: item.IsOpposing,
		})
	}
	return httptransport.PushbackResponse{
		PollID:           pushback.PollID,
		Tiers:            items,
		OpposingTiers:    levelNames(pushback.OpposingTiers),
		Severity:         pushback.Severity,
		IsActionRequired: pushback.IsActionRequired,
		Recommendation:   pushback.Recommendation,
	}, nil
}

// ReportHandler godoc
// @Summary Export a poll report
// @Description JSON or CSV report with a sha256 fingerprint. Needs at least 25 responses.
// @Tags response-aggregator
// @Produce json
// @Produce text/csv
// @Param X-Identity-Digest header string true "Caller identity digest"
// @Param poll_id path string true "Poll id"
// @Param format query string false "json or csv"
// @Success 200 {string} string "report body"
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/polls/{poll_id}/report [get]
func (h Handler) ReportHandler(ctx context.Context, capability access.Capability, pollID string, format string) (httptransport.ReportResponse, error) {
	exported, err := h.Analytics.ExportReport(ctx, capability, pollID, entities.ReportFormat(format))
	if err != nil {
		return httptransport.ReportResponse{}, err
	}
	return httptransport.ReportResponse{
		ContentType: exported.ContentType,
		Fingerprint: exported.Fingerprint,
		Body:        exported.Body,
	}, nil
}

func parseOptionalTime(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, failures.Invalid(field, "must be RFC3339")
	}
	return value.UTC(), nil
}

func levelNames(levels []tiers.Level) []string {
	out := make([]string, 0, len(levels))
	for _, level := range levels {
		out = append(out, string(level))
	}
	return out
}
