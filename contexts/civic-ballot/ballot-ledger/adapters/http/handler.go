package httpadapter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/application/ledger"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	httptransport "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

type Handler struct {
	Ledger  *ledger.Ledger
	Choices ports.ChoiceResolver
	Logger  *slog.Logger
}

func (h Handler) QueryEntriesHandler(ctx context.Context, req httptransport.QueryEntriesRequest) (httptransport.QueryEntriesResponse, error) {
	filter, err := filterFromRequest(req)
	if err != nil {
		return httptransport.QueryEntriesResponse{}, err
	}
	result, err := h.Ledger.Query(ctx, filter)
	if err != nil {
		return httptransport.QueryEntriesResponse{}, err
	}
	items := make([]httptransport.LedgerEntryResponse, 0, len(result.Entries))
	for _, entry := range result.Entries {
		items = append(items, mapEntry(entry))
	}
	return httptransport.QueryEntriesResponse{
		Items:  items,
		Total:  result.Total,
		Offset: result.Offset,
		Limit:  result.Limit,
	}, nil
}

// TallyHandler godoc
// @Summary Get ballot tally
// @Tags ballot-ledger
// @Produce json
// @Param X-Identity-Digest header string true "Caller identity digest"
// @Param ballot_id path string true "Ballot id"
// @Success 200 {object} httptransport.TallyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/ballots/{ballot_id}/tally [get]
func (h Handler) TallyHandler(ctx context.Context, ballotID string) (httptransport.TallyResponse, error) {
	tally, err := h.Ledger.GetTally(ctx, ballotID, h.Choices)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return mapTally(tally), nil
}

func (h Handler) BundleHandler(ctx context.Context, ballotID string) (httptransport.BundleResponse, error) {
	bundle, err := h.Ledger.ExportBundle(ctx, ballotID, h.Choices)
	if err != nil {
		return httptransport.BundleResponse{}, err
	}
	digests := make([]httptransport.EntryDigestResponse, 0, len(bundle.Verification.Digests))
	for _, item := range bundle.Verification.Digests {
		digests = append(digests, httptransport.EntryDigestResponse{
			Position: item.Position,
			TokenID:  item.TokenID,
			Digest:   item.Digest,
			Active:   item.Active,
		})
	}
	counts := make(map[string]int, len(bundle.Audit.RejectCounts))
	for cause, count := range bundle.Audit.RejectCounts {
		counts[string(cause)] = count
	}
	return httptransport.BundleResponse{
		BallotID:    bundle.BallotID,
		GeneratedAt: bundle.GeneratedAt.Format(time.RFC3339Nano),
		Tally:       mapTally(bundle.Tally),
		Verification: httptransport.VerificationResponse{
			EntryCount:  bundle.Verification.EntryCount,
			Digests:     digests,
			Fingerprint: bundle.Verification.Fingerprint,
		},
		Audit: httptransport.AuditResponse{
			RejectCounts: counts,
			Positions:    bundle.Audit.Positions,
		},
	}, nil
}

func (h Handler) ExpireTokenHandler(
	ctx context.Context,
	capability access.Capability,
	tokenID string,
	req httptransport.ExpireTokenRequest,
) (httptransport.LedgerEntryResponse, error) {
	entry, err := h.Ledger.Expire(ctx, capability, tokenID, req.Reason)
	if err != nil {
		return httptransport.LedgerEntryResponse{}, err
	}
	return mapEntry(entry), nil
}

func (h Handler) ClearHandler(ctx context.Context, capability access.Capability) error {
	return h.Ledger.Clear(ctx, capability)
}

func filterFromRequest(req httptransport.QueryEntriesRequest) (entities.Filter, error) {
	filter := entities.Filter{
		BallotID: req.BallotID,
		SortBy:   entities.SortField(req.SortBy),
	}
	var err error
	if filter.From, err = parseTime("from", req.From); err != nil {
		return entities.Filter{}, err
	}
	if filter.To, err = parseTime("to", req.To); err != nil {
		return entities.Filter{}, err
	}
	if filter.MinWeight, err = parseFloat("min_weight", req.MinWeight); err != nil {
		return entities.Filter{}, err
	}
	if filter.MaxWeight, err = parseFloat("max_weight", req.MaxWeight); err != nil {
		return entities.Filter{}, err
	}
	if filter.Offset, err = parseInt("offset", req.Offset); err != nil {
		return entities.Filter{}, err
	}
	if filter.Limit, err = parseInt("limit", req.Limit); err != nil {
		return entities.Filter{}, err
	}
	switch strings.ToLower(strings.TrimSpace(req.Order)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return entities.Filter{}, failures.Invalid("order", "must be asc or desc")
	}
	if raw := strings.TrimSpace(req.IncludeInactive); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return entities.Filter{}, failures.Invalid("include_inactive", "must be a boolean")
		}
		filter.IncludeInactive = include
	}
	return filter, nil
}

func parseTime(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, failures.Invalid(field, "must be RFC3339")
	}
	return parsed.UTC(), nil
}

func parseFloat(field string, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, failures.Invalid(field, "must be a number")
	}
	return value, nil
}

func parseInt(field string, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failures.Invalid(field, "must be an integer")
	}
	return value, nil
}

func mapEntry(entry entities.LedgerEntry) httptransport.LedgerEntryResponse {
	return httptransport.LedgerEntryResponse{
		Position:           entry.Position,
		TokenID:            entry.Token.TokenID,
		BallotID:           entry.Token.BallotID,
		AnonymizedIdentity: entry.Token.AnonymizedIdentity,
		Weight:             entry.Token.Weight,
		IssuedAt:           entry.Token.IssuedAt.Format(time.RFC3339Nano),
		ExpiresAt:          entry.Token.ExpiresAt.Format(time.RFC3339Nano),
		RecordedAt:         entry.RecordedAt.Format(time.RFC3339Nano),
		Active:             entry.Active,
		InactiveReason:     entry.InactiveReason,
		Digest:             entry.Digest,
	}
}

func mapTally(tally entities.Tally) httptransport.TallyResponse {
	choices := make([]httptransport.ChoiceTotalResponse, 0, len(tally.Choices))
	for _, item := range tally.Choices {
		choices = append(choices, httptransport.ChoiceTotalResponse{
			Choice:   item.Choice,
			Raw:      item.Raw,
			Weighted: item.Weighted,
		})
	}
	histogram := make([]httptransport.HistogramBinResponse, 0, len(tally.Histogram))
	for _, bin := range tally.Histogram {
		histogram = append(histogram, httptransport.HistogramBinResponse{Bucket: bin.Bucket, Count: bin.Count})
	}
	response := httptransport.TallyResponse{
		BallotID:        tally.BallotID,
		EntryCount:      tally.EntryCount,
		Choices:         choices,
		MeanWeight:      tally.MeanWeight,
		MedianWeight:    tally.MedianWeight,
		DistinctWeights: tally.DistinctWeights,
		Histogram:       histogram,
	}
	if !tally.FirstAt.IsZero() {
		response.FirstAt = tally.FirstAt.Format(time.RFC3339Nano)
		response.LastAt = tally.LastAt.Format(time.RFC3339Nano)
	}
	return response
}
