package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ContributionItem struct {
	CredentialID  string  `json:"credential_id"`
	Source        string  `json:"source"`
	Category      string  `json:"category"`
	BasePoints    float64 `json:"base_points"`
	AgeDays       float64 `json:"age_days"`
	DecayFactor   float64 `json:"decay_factor"`
	DecayedPoints float64 `json:"decayed_points"`
}

type ReputationResponse struct {
	Identity       string             `json:"identity"`
	Score          float64            `json:"score"`
	BaseScore      float64            `json:"base_score"`
	Tier           string             `json:"tier"`
	Weight         float64            `json:"weight"`
	TierProgress   float64            `json:"tier_progress"`
	TableVersion   string             `json:"table_version"`
	SkippedSources []string           `json:"skipped_sources,omitempty"`
	Contributions  []ContributionItem `json:"contributions"`
	ComputedAt     string             `json:"computed_at"`
}
