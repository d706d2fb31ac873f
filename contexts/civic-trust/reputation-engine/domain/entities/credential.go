package entities

import (
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

// CredentialEntry is transient: it lives only for one score computation.
type CredentialEntry struct {
	CredentialID string
	Source       string
	Category     string
	BasePoints   float64
	IssuedAt     time.Time
}

type Contribution struct {
	CredentialID  string
	Source        string
	Category      string
	BasePoints    float64
	AgeDays       float64
	CategoryRate  float64
	DecayFactor   float64
	DecayedPoints float64
}

type ReputationScore struct {
	Identity       string
	Score          float64
	BaseScore      float64
	Tier           tiers.Level
	TierProgress   float64
	TableVersion   string
	Contributions  []Contribution
	SkippedSources []string
	ComputedAt     time.Time
	Elapsed        time.Duration
}

// Degraded reports whether at least one source was skipped.
func (s ReputationScore) Degraded() bool {
	return len(s.SkippedSources) > 0
}
