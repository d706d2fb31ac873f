package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	pollerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
	pollhttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{Code: code, Message: message})
}

func writePollDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, pollerrors.ErrNotFound) {
		writePollError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	status, code, message := failureStatus(err)
	resp := pollhttp.ErrorResponse{Code: code, Message: message}
	var (
		duplicate    *failures.DuplicateError
		insufficient *failures.InsufficientResponsesError
	)
	switch {
	case errors.As(err, &duplicate):
		resp.ExistingResponseID = duplicate.ExistingID
	case errors.As(err, &insufficient):
		resp.Have = insufficient.Have
		resp.Need = insufficient.Need
	}
	writeJSON(w, status, resp)
}

// pollCaller resolves the capability for analytics and poll creation routes.
func (s *Server) pollCaller(w http.ResponseWriter, r *http.Request) (access.Capability, bool) {
	identity, ok := requireIdentity(w, r, writePollError)
	if !ok {
		return access.Capability{}, false
	}
	capability, err := s.callerCapability(r, identity)
	if err != nil {
		writePollDomainError(w, err)
		return access.Capability{}, false
	}
	return capability, true
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	capability, ok := s.pollCaller(w, r)
	if !ok {
		return
	}
	var req pollhttp.CreatePollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polling.Handler.CreatePollHandler(r.Context(), capability, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, writePollError)
	if !ok {
		return
	}
	var req pollhttp.SubmitResponseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polling.Handler.SubmitResponseHandler(r.Context(), strings.TrimSpace(r.PathValue("poll_id")), identity, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePollAggregate(w http.ResponseWriter, r *http.Request) {
	servePollView(s, w, r, s.polling.Handler.AggregateHandler)
}

func (s *Server) handlePollImpact(w http.ResponseWriter, r *http.Request) {
	servePollView(s, w, r, s.polling.Handler.ImpactHandler)
}

func (s *Server) handlePollAlignment(w http.ResponseWriter, r *http.Request) {
	servePollView(s, w, r, s.polling.Handler.AlignmentHandler)
}

func (s *Server) handlePollPushback(w http.ResponseWriter, r *http.Request) {
	servePollView(s, w, r, s.polling.Handler.PushbackHandler)
}

func servePollView[T any](
	s *Server,
	w http.ResponseWriter,
	r *http.Request,
	view func(ctx context.Context, capability access.Capability, pollID string) (T, error),
) {
	capability, ok := s.pollCaller(w, r)
	if !ok {
		return
	}
	resp, err := view(r.Context(), capability, strings.TrimSpace(r.PathValue("poll_id")))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollReport(w http.ResponseWriter, r *http.Request) {
	capability, ok := s.pollCaller(w, r)
	if !ok {
		return
	}
	pollID := strings.TrimSpace(r.PathValue("poll_id"))
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	resp, err := s.polling.Handler.ReportHandler(r.Context(), capability, pollID, format)
	if err != nil {
		writePollDomainError(w, err)
		return
	}

	extension := "json"
	if format == "csv" {
		extension = "csv"
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="poll-report.`+extension+`"`)
	w.Header().Set("X-Report-Fingerprint", resp.Fingerprint)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}
