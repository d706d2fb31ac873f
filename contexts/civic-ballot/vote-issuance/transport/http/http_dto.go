package http

type ErrorResponse struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	ExistingTokenID string `json:"existing_token_id,omitempty"`
}

type IssueTokenRequest struct {
	Ciphertext  string `json:"ciphertext"`
	OpensAt     string `json:"opens_at,omitempty"`
	ClosesAt    string `json:"closes_at,omitempty"`
	MinimumTier string `json:"minimum_tier,omitempty"`
}

type VoteTokenResponse struct {
	TokenID            string  `json:"token_id"`
	BallotID           string  `json:"ballot_id"`
	AnonymizedIdentity string  `json:"anonymized_identity"`
	Ciphertext         string  `json:"ciphertext"`
	Weight             float64 `json:"weight"`
	Tier               string  `json:"tier"`
	IssuedAt           string  `json:"issued_at"`
	ExpiresAt          string  `json:"expires_at"`
	KeyID              string  `json:"key_id"`
	Signature          string  `json:"signature"`
}
