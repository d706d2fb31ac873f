package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QueryEntriesRequest carries the raw query-string values of an entry search.
type QueryEntriesRequest struct {
	BallotID        string
	From            string
	To              string
	MinWeight       string
	MaxWeight       string
	SortBy          string
	Order           string
	Offset          string
	Limit           string
	IncludeInactive string
}

type LedgerEntryResponse struct {
	Position           int64   `json:"position"`
	TokenID            string  `json:"token_id"`
	BallotID           string  `json:"ballot_id"`
	AnonymizedIdentity string  `json:"anonymized_identity"`
	Weight             float64 `json:"weight"`
	IssuedAt           string  `json:"issued_at"`
	ExpiresAt          string  `json:"expires_at"`
	RecordedAt         string  `json:"recorded_at"`
	Active             bool    `json:"active"`
	InactiveReason     string  `json:"inactive_reason,omitempty"`
	Digest             string  `json:"digest"`
}

type QueryEntriesResponse struct {
	Items  []LedgerEntryResponse `json:"items"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

type ChoiceTotalResponse struct {
	Choice   string  `json:"choice"`
	Raw      int     `json:"raw"`
	Weighted float64 `json:"weighted"`
}

type HistogramBinResponse struct {
	Bucket float64 `json:"bucket"`
	Count  int     `json:"count"`
}

type TallyResponse struct {
	BallotID        string                 `json:"ballot_id"`
	EntryCount      int                    `json:"entry_count"`
	Choices         []ChoiceTotalResponse  `json:"choices"`
	MeanWeight      float64                `json:"mean_weight"`
	MedianWeight    float64                `json:"median_weight"`
	DistinctWeights []float64              `json:"distinct_weights"`
	Histogram       []HistogramBinResponse `json:"histogram"`
	FirstAt         string                 `json:"first_at,omitempty"`
	LastAt          string                 `json:"last_at,omitempty"`
}

type EntryDigestResponse struct {
	Position int64  `json:"position"`
	TokenID  string `json:"token_id"`
	Digest   string `json:"digest"`
	Active   bool   `json:"active"`
}

type VerificationResponse struct {
	EntryCount  int                   `json:"entry_count"`
	Digests     []EntryDigestResponse `json:"digests"`
	Fingerprint string                `json:"fingerprint"`
}

type AuditResponse struct {
	RejectCounts map[string]int `json:"reject_counts"`
	Positions    []int64        `json:"positions"`
}

type BundleResponse struct {
	BallotID     string               `json:"ballot_id"`
	GeneratedAt  string               `json:"generated_at"`
	Tally        TallyResponse        `json:"tally"`
	Verification VerificationResponse `json:"verification"`
	Audit        AuditResponse        `json:"audit"`
}

type ExpireTokenRequest struct {
	Reason string `json:"reason"`
}
