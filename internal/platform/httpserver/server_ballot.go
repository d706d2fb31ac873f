package httpserver

import (
	"errors"
	"net/http"
	"strings"

	issuancehttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

func writeIssuanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, issuancehttp.ErrorResponse{Code: code, Message: message})
}

func writeIssuanceDomainError(w http.ResponseWriter, err error) {
	status, code, message := failureStatus(err)
	resp := issuancehttp.ErrorResponse{Code: code, Message: message}
	var duplicate *failures.DuplicateError
	if errors.As(err, &duplicate) {
		resp.ExistingTokenID = duplicate.ExistingID
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, writeIssuanceError)
	if !ok {
		return
	}
	ballotID := strings.TrimSpace(r.PathValue("ballot_id"))
	if ballotID == "" {
		writeIssuanceError(w, http.StatusBadRequest, "invalid_payload", "ballot_id is required")
		return
	}

	var req issuancehttp.IssueTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeIssuanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.issuance.Handler.IssueTokenHandler(r.Context(), ballotID, identity, req)
	if err != nil {
		writeIssuanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
