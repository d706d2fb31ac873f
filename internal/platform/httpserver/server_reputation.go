package httpserver

import (
	"errors"
	"net/http"
	"strings"

	reputationerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/errors"
	reputationhttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

func writeReputationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, reputationhttp.ErrorResponse{Code: code, Message: message})
}

func writeReputationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reputationerrors.ErrInvalidRequest):
		writeReputationError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, reputationerrors.ErrNoSources):
		writeReputationError(w, http.StatusFailedDependency, "source_unavailable", err.Error())
	default:
		status, code, message := failureStatus(err)
		writeReputationError(w, status, code, message)
	}
}

// handleGetReputation serves a score to its owner, or to moderators and above.
func (s *Server) handleGetReputation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r, writeReputationError)
	if !ok {
		return
	}
	identity := strings.TrimSpace(r.PathValue("identity"))
	if identity == "" {
		writeReputationError(w, http.StatusBadRequest, "invalid_request", "identity is required")
		return
	}
	if identity != caller {
		capability, err := s.callerCapability(r, caller)
		if err != nil {
			writeReputationDomainError(w, err)
			return
		}
		if err := capability.RequireTier(tiers.LevelModerator); err != nil {
			writeReputationDomainError(w, err)
			return
		}
	}

	resp, err := s.reputation.Handler.GetReputationHandler(r.Context(), identity)
	if err != nil {
		writeReputationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
