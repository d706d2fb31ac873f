package http

type ErrorResponse struct {
	Code               string `json:"code"`
	Message            string `json:"message"`
	ExistingResponseID string `json:"existing_response_id,omitempty"`
	Have               int    `json:"have,omitempty"`
	Need               int    `json:"need,omitempty"`
}

type CreatePollRequest struct {
	PollID      string   `json:"poll_id,omitempty"`
	Title       string   `json:"title"`
	Options     []string `json:"options"`
	MultiSelect bool     `json:"multi_select"`
	Baseline    int      `json:"baseline,omitempty"`
	ClosesAt    string   `json:"closes_at,omitempty"`
}

type PollResponse struct {
	PollID      string   `json:"poll_id"`
	Title       string   `json:"title"`
	Options     []string `json:"options"`
	MultiSelect bool     `json:"multi_select"`
	Baseline    int      `json:"baseline"`
	ClosesAt    string   `json:"closes_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type SubmitResponseRequest struct {
	Selected []string `json:"selected"`
	Comment  string   `json:"comment,omitempty"`
}

type SubmittedResponse struct {
	ResponseID    string   `json:"response_id"`
	PollID        string   `json:"poll_id"`
	ResponderHash string   `json:"responder_hash"`
	Tier          string   `json:"tier"`
	Weight        float64  `json:"weight"`
	Selected      []string `json:"selected"`
	SubmittedAt   string   `json:"submitted_at"`
}

type TierOptionShareResponse struct {
	Tier    string  `json:"tier"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type OptionResultResponse struct {
	Option   string                    `json:"option"`
	Raw      int                       `json:"raw"`
	Weighted float64                   `json:"weighted"`
	Tiers    []TierOptionShareResponse `json:"tiers"`
}

type TierParticipationResponse struct {
	Tier       string  `json:"tier"`
	Responses  int     `json:"responses"`
	Share      float64 `json:"share"`
	MeanWeight float64 `json:"mean_weight"`
}

type AggregateResponse struct {
	PollID        string                      `json:"poll_id"`
	ResponseCount int                         `json:"response_count"`
	WeightedTotal float64                     `json:"weighted_total"`
	Options       []OptionResultResponse      `json:"options"`
	Participation []TierParticipationResponse `json:"participation"`
}

type ImpactResponse struct {
	PollID                string  `json:"poll_id"`
	ResponseCount         int     `json:"response_count"`
	Baseline              int     `json:"baseline"`
	Engagement            float64 `json:"engagement"`
	WeightedInfluence     float64 `json:"weighted_influence"`
	PublicOpinionStrength float64 `json:"public_opinion_strength"`
	DominantTier          string  `json:"dominant_tier,omitempty"`
}

type TierDivergenceResponse struct {
	TierA      string  `json:"tier_a"`
	TierB      string  `json:"tier_b"`
	Divergence float64 `json:"divergence"`
}

type OptionAlignmentResponse struct {
	Option     string  `json:"option"`
	Divergence float64 `json:"divergence"`
	Status     string  `json:"status"`
}

type AlignmentResponse struct {
	PollID           string                    `json:"poll_id"`
	Pairs            []TierDivergenceResponse  `json:"pairs"`
	Options          []OptionAlignmentResponse `json:"options"`
	OverallConsensus float64                   `json:"overall_consensus"`
	Polarization     float64                   `json:"polarization"`
	Agreement        []string                  `json:"agreement"`
	Conflict         []string                  `json:"conflict"`
	MinorityConcerns []string                  `json:"minority_concerns"`
}

type TierOppositionResponse struct {
	Tier       string  `json:"tier"`
	Responses  int     `json:"responses"`
	Opposed    int     `json:"opposed"`
	Percent    float64 `json:"percent"`
	Weight     float64 `json:"weight"`
	IsOpposing bool    `json:"is_opposing"`
}

type PushbackResponse struct {
	PollID           string                   `json:"poll_id"`
	Tiers            []TierOppositionResponse `json:"tiers"`
	OpposingTiers    []string                 `json:"opposing_tiers"`
	Severity         float64                  `json:"severity"`
	IsActionRequired bool                     `json:"is_action_required"`
	Recommendation   string                   `json:"recommendation"`
}

// ReportResponse is an already-encoded report; Body is written verbatim.
type ReportResponse struct {
	ContentType string
	Fingerprint string
	Body        []byte
}
