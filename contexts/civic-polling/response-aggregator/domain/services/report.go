package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
)

// MinReportResponses is the smallest response count a report may be built on.
const MinReportResponses = 25

// CSV section names, in output order.
const (
	SectionMetadata          = "metadata"
	SectionOptionResults     = "option_results"
	SectionTierParticipation = "tier_participation"
	SectionImpact            = "impact"
	SectionAlignment         = "alignment"
	SectionPushback          = "pushback"
)

func ParseFormat(raw string) (entities.ReportFormat, error) {
	switch entities.ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", entities.FormatJSON:
		return entities.FormatJSON, nil
	case entities.FormatCSV:
		return entities.FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", domainerrors.ErrUnsupportedFormat, raw)
	}
}

func Encode(report entities.Report, format entities.ReportFormat) (entities.ExportedReport, error) {
	switch format {
	case entities.FormatJSON:
		return EncodeJSON(report)
	case entities.FormatCSV:
		return EncodeCSV(report)
	default:
		return entities.ExportedReport{}, fmt.Errorf("%w: %q", domainerrors.ErrUnsupportedFormat, format)
	}
}

// EncodeJSON writes {"fingerprint": ..., "report": {...}} where the
// fingerprint is the sha256 of the report member's bytes.
func EncodeJSON(report entities.Report) (entities.ExportedReport, error) {
	payload, err := json.Marshal(reportDocumentFrom(report))
	if err != nil {
		return entities.ExportedReport{}, err
	}
	fingerprint := Fingerprint(payload)
	body, err := json.Marshal(struct {
		Fingerprint string          `json:"fingerprint"`
		Report      json.RawMessage `json:"report"`
	}{
		Fingerprint: fingerprint,
		Report:      payload,
	})
	if err != nil {
		return entities.ExportedReport{}, err
	}
	return entities.ExportedReport{
		Format:      entities.FormatJSON,
		ContentType: "application/json",
		Body:        body,
		Fingerprint: fingerprint,
	}, nil
}

// EncodeCSV writes the fixed sections separated by blank lines. The last
// record is "fingerprint,<sha256>" over every byte before it.
func EncodeCSV(report entities.Report) (entities.ExportedReport, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"section", SectionMetadata},
		{"poll_id", report.Metadata.PollID},
		{"title", report.Metadata.Title},
		{"response_count", strconv.Itoa(report.Metadata.ResponseCount)},
		{"table_version", report.Metadata.TableVersion},
		{"generated_at", report.Metadata.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"section", SectionOptionResults},
		{"option", "raw", "weighted"},
	}
	for _, option := range report.Aggregate.Options {
		records = append(records, []string{option.Option, strconv.Itoa(option.Raw), formatFloat(option.Weighted)})
	}
	records = append(records, []string{"option", "tier", "count", "percent"})
	for _, option := range report.Aggregate.Options {
		for _, share := range option.Tiers {
			records = append(records, []string{option.Option, string(share.Tier), strconv.Itoa(share.Count), formatFloat(share.Percent)})
		}
	}

	records = append(records, []string{}, []string{"section", SectionTierParticipation}, []string{"tier", "responses", "share", "mean_weight"})
	for _, item := range report.Aggregate.Participation {
		records = append(records, []string{string(item.Tier), strconv.Itoa(item.Responses), formatFloat(item.Share), formatFloat(item.MeanWeight)})
	}

	records = append(records,
		[]string{},
		[]string{"section", SectionImpact},
		[]string{"engagement", formatFloat(report.Impact.Engagement)},
		[]string{"weighted_influence", formatFloat(report.Impact.WeightedInfluence)},
		[]string{"public_opinion_strength", formatFloat(report.Impact.PublicOpinionStrength)},
		[]string{"dominant_tier", string(report.Impact.DominantTier)},
		[]string{},
		[]string{"section", SectionAlignment},
		[]string{"overall_consensus", formatFloat(report.Alignment.OverallConsensus)},
		[]string{"polarization", formatFloat(report.Alignment.Polarization)},
		[]string{"tier_a", "tier_b", "divergence"},
	)
	for _, pair := range report.Alignment.Pairs {
		records = append(records, []string{string(pair.A), string(pair.B), formatFloat(pair.Divergence)})
	}
	records = append(records, []string{"option", "divergence", "status"})
	for _, item := range report.Alignment.Options {
		records = append(records, []string{item.Option, formatFloat(item.Divergence), item.Status})
	}

	records = append(records,
		[]string{},
		[]string{"section", SectionPushback},
		[]string{"severity", formatFloat(report.Pushback.Severity)},
		[]string{"action_required", strconv.FormatBool(report.Pushback.IsActionRequired)},
		[]string{"recommendation", report.Pushback.Recommendation},
		[]string{"tier", "responses", "opposed", "percent", "opposing"},
	)
	for _, item := range report.Pushback.Tiers {
		records = append(records, []string{
			string(item.Tier),
			strconv.Itoa(item.Responses),
			strconv.Itoa(item.Opposed),
			formatFloat(item.Percent),
			strconv.FormatBool(item.IsOpposing),
		})
	}
	records = append(records, []string{})

	if err := w.WriteAll(records); err != nil {
		return entities.ExportedReport{}, err
	}
	fingerprint := Fingerprint(buf.Bytes())
	if err := w.WriteAll([][]string{{"fingerprint", fingerprint}}); err != nil {
		return entities.ExportedReport{}, err
	}
	return entities.ExportedReport{
		Format:      entities.FormatCSV,
		ContentType: "text/csv",
		Body:        buf.Bytes(),
		Fingerprint: fingerprint,
	}, nil
}

func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

type reportDocument struct {
	Metadata struct {
		PollID        string `json:"poll_id"`
		Title         string `json:"title"`
		ResponseCount int    `json:"response_count"`
		TableVersion  string `json:"table_version"`
		GeneratedAt   string `json:"generated_at"`
	} `json:"metadata"`
	OptionResults     []optionDocument    `json:"option_results"`
	TierParticipation []tierShareDocument `json:"tier_participation"`
	Impact            struct {
		Engagement            float64 `json:"engagement"`
		WeightedInfluence     float64 `json:"weighted_influence"`
		PublicOpinionStrength float64 `json:"public_opinion_strength"`
		DominantTier          string  `json:"dominant_tier"`
	} `json:"impact"`
	Alignment struct {
		OverallConsensus float64        `json:"overall_consensus"`
		Polarization     float64        `json:"polarization"`
		Pairs            []pairDocument            `json:"pairs"`
		Options          []optionAlignmentDocument `json:"options"`
		Agreement        []string                  `json:"agreement"`
		Conflict         []string                  `json:"conflict"`
		MinorityConcerns []string                  `json:"minority_concerns"`
	} `json:"alignment"`
	Pushback struct {
		Severity         float64              `json:"severity"`
		IsActionRequired bool                 `json:"is_action_required"`
		Recommendation   string               `json:"recommendation"`
		OpposingTiers    []string             `json:"opposing_tiers"`
		Tiers            []oppositionDocument `json:"tiers"`
	} `json:"pushback"`
}

type optionDocument struct {
	Option   string               `json:"option"`
	Raw      int                  `json:"raw"`
	Weighted float64              `json:"weighted"`
	Tiers    []optionTierDocument `json:"tiers"`
}

type optionTierDocument struct {
	Tier    string  `json:"tier"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type optionAlignmentDocument struct {
	Option     string  `json:"option"`
	Divergence float64 `json:"divergence"`
	Status     string  `json:"status"`
}

type tierShareDocument struct {
	Tier       string  `json:"tier"`
	Responses  int     `json:"responses"`
	Share      float64 `json:"share"`
	MeanWeight float64 `json:"mean_weight"`
}

type pairDocument struct {
	A          string  `json:"tier_a"`
	B          string  `json:"tier_b"`
	Divergence float64 `json:"divergence"`
}

type oppositionDocument struct {
	Tier      string  `json:"tier"`
	Responses int     `json:"responses"`
	Opposed   int     `json:"opposed"`
	Percent   float64 `json:"percent"`
	Opposing  bool    `json:"opposing"`
}

func reportDocumentFrom(report entities.Report) reportDocument {
	var doc reportDocument
	doc.Metadata.PollID = report.Metadata.PollID
	doc.Metadata.Title = report.Metadata.Title
	doc.Metadata.ResponseCount = report.Metadata.ResponseCount
	doc.Metadata.TableVersion = report.Metadata.TableVersion
	doc.Metadata.GeneratedAt = report.Metadata.GeneratedAt.UTC().Format(time.RFC3339)

	doc.OptionResults = make([]optionDocument, 0, len(report.Aggregate.Options))
	for _, option := range report.Aggregate.Options {
		item := optionDocument{
			Option:   option.Option,
			Raw:      option.Raw,
			Weighted: option.Weighted,
			Tiers:    make([]optionTierDocument, 0, len(option.Tiers)),
		}
		for _, share := range option.Tiers {
			item.Tiers = append(item.Tiers, optionTierDocument{Tier: string(share.Tier), Count: share.Count, Percent: share.Percent})
		}
		doc.OptionResults = append(doc.OptionResults, item)
	}
	doc.TierParticipation = make([]tierShareDocument, 0, len(report.Aggregate.Participation))
	for _, item := range report.Aggregate.Participation {
		doc.TierParticipation = append(doc.TierParticipation, tierShareDocument{
			Tier:       string(item.Tier),
			Responses:  item.Responses,
			Share:      item.Share,
			MeanWeight: item.MeanWeight,
		})
	}

	doc.Impact.Engagement = report.Impact.Engagement
	doc.Impact.WeightedInfluence = report.Impact.WeightedInfluence
	doc.Impact.PublicOpinionStrength = report.Impact.PublicOpinionStrength
	doc.Impact.DominantTier = string(report.Impact.DominantTier)

	doc.Alignment.OverallConsensus = report.Alignment.OverallConsensus
	doc.Alignment.Polarization = report.Alignment.Polarization
	doc.Alignment.Pairs = make([]pairDocument, 0, len(report.Alignment.Pairs))
	for _, pair := range report.Alignment.Pairs {
		doc.Alignment.Pairs = append(doc.Alignment.Pairs, pairDocument{A: string(pair.A), B: string(pair.B), Divergence: pair.Divergence})
	}
	doc.Alignment.Options = make([]optionAlignmentDocument, 0, len(report.Alignment.Options))
	for _, item := range report.Alignment.Options {
		doc.Alignment.Options = append(doc.Alignment.Options, optionAlignmentDocument{
			Option:     item.Option,
			Divergence: item.Divergence,
			Status:     item.Status,
		})
	}
	doc.Alignment.Agreement = append([]string{}, report.Alignment.Agreement...)
	doc.Alignment.Conflict = append([]string{}, report.Alignment.Conflict...)
	doc.Alignment.MinorityConcerns = make([]string, 0, len(report.Alignment.MinorityConcerns))
	for _, level := range report.Alignment.MinorityConcerns {
		doc.Alignment.MinorityConcerns = append(doc.Alignment.MinorityConcerns, string(level))
	}

	doc.Pushback.Severity = report.Pushback.Severity
	doc.Pushback.IsActionRequired = report.Pushback.IsActionRequired
	doc.Pushback.Recommendation = report.Pushback.Recommendation
	doc.Pushback.OpposingTiers = make([]string, 0, len(report.Pushback.OpposingTiers))
	for _, level := range report.Pushback.OpposingTiers {
		doc.Pushback.OpposingTiers = append(doc.Pushback.OpposingTiers, string(level))
	}
	doc.Pushback.Tiers = make([]oppositionDocument, 0, len(report.Pushback.Tiers))
	for _, item := range report.Pushback.Tiers {
		doc.Pushback.Tiers = append(doc.Pushback.Tiers, oppositionDocument{
			Tier:      string(item.Tier),
			Responses: item.Responses,
			Opposed:   item.Opposed,
			Percent:   item.Percent,
			Opposing:  item.IsOpposing,
		})
	}
	return doc
}
