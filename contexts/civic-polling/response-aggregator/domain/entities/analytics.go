package entities

import (
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type TierOptionShare struct {
	Tier    tiers.Level
	Count   int
	Percent float64
}

type OptionResult struct {
	Option   string
	Raw      int
	Weighted float64
	Tiers    []TierOptionShare
}

type TierParticipation struct {
	Tier       tiers.Level
	Responses  int
	Share      float64
	MeanWeight float64
}

type Aggregate struct {
	PollID        string
	ResponseCount int
	WeightedTotal float64
	Options       []OptionResult
	Participation []TierParticipation
}

type Impact struct {
	PollID                string
	ResponseCount         int
	Baseline              int
	Engagement            float64
	WeightedInfluence     float64
	PublicOpinionStrength float64
	DominantTier          tiers.Level
}

type TierDivergence struct {
	A          tiers.Level
	B          tiers.Level
	Divergence float64
}

type OptionAlignment struct {
	Option     string
	Divergence float64
	Status     string
}

const (
	AlignmentAgreement = "agreement"
	AlignmentConflict  = "conflict"
	AlignmentMixed     = "mixed"
)

type Alignment struct {
	PollID           string
	Pairs            []TierDivergence
	Options          []OptionAlignment
	OverallConsensus float64
	Polarization     float64
	Agreement        []string
	Conflict         []string
	MinorityConcerns []tiers.Level
}

type TierOpposition struct {
	Tier       tiers.Level
	Responses  int
	Opposed    int
	Percent    float64
	Weight     float64
	IsOpposing bool
}

const (
	RecommendationNone     = "no_action"
	RecommendationMonitor  = "monitor"
	RecommendationRespond  = "formal_response"
	RecommendationEscalate = "escalate"
)

type Pushback struct {
	PollID           string
	Tiers            []TierOpposition
	OpposingTiers    []tiers.Level
	Severity         float64
	IsActionRequired bool
	Recommendation   string
}

type ReportMetadata struct {
	PollID        string
	Title         string
	ResponseCount int
	TableVersion  string
	GeneratedAt   time.Time
}

type Report struct {
	Metadata  ReportMetadata
	Aggregate Aggregate
	Impact    Impact
	Alignment Alignment
	Pushback  Pushback
}

type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
)

// ExportedReport is a serialized report. Fingerprint is the sha256 embedded
// in Body.
type ExportedReport struct {
	Format      ReportFormat
	ContentType string
	Body        []byte
	Fingerprint string
}
