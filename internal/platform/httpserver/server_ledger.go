package httpserver

import (
	"errors"
	"net/http"
	"strings"

	ledgererrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	ledgerhttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/transport/http"
)

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{Code: code, Message: message})
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrNotFound):
		writeLedgerError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidFilter):
		writeLedgerError(w, http.StatusBadRequest, "invalid_filter", err.Error())
	default:
		status, code, message := failureStatus(err)
		writeLedgerError(w, status, code, message)
	}
}

func (s *Server) handleQueryEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := s.ledger.Handler.QueryEntriesHandler(r.Context(), ledgerhttp.QueryEntriesRequest{
		BallotID:        query.Get("ballot_id"),
		From:            query.Get("from"),
		To:              query.Get("to"),
		MinWeight:       query.Get("min_weight"),
		MaxWeight:       query.Get("max_weight"),
		SortBy:          query.Get("sort_by"),
		Order:           query.Get("order"),
		Offset:          query.Get("offset"),
		Limit:           query.Get("limit"),
		IncludeInactive: query.Get("include_inactive"),
	})
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.TallyHandler(r.Context(), strings.TrimSpace(r.PathValue("ballot_id")))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.BundleHandler(r.Context(), strings.TrimSpace(r.PathValue("ballot_id")))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExpireToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, writeLedgerError)
	if !ok {
		return
	}
	var req ledgerhttp.ExpireTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	capability, err := s.callerCapability(r, identity)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	resp, err := s.ledger.Handler.ExpireTokenHandler(r.Context(), capability, strings.TrimSpace(r.PathValue("token_id")), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearLedger(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, writeLedgerError)
	if !ok {
		return
	}
	capability, err := s.callerCapability(r, identity)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	if err := s.ledger.Handler.ClearHandler(r.Context(), capability); err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
