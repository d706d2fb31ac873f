package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ballotledger "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger"
	voteissuance "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance"
	responseaggregator "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator"
	reputationengine "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	_ "github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	identityHeader  = "X-Identity-Digest"
	maxRequestBytes = 1 << 20
)

// Modules is everything the HTTP surface serves. Metrics and Subjects are
// optional.
type Modules struct {
	Reputation reputationengine.Module
	Issuance   voteissuance.Module
	Ledger     ballotledger.Module
	Polling    responseaggregator.Module
	Metrics    http.Handler
	// Grants decides which permissions a resolved tier carries. Nil means
	// access.DefaultGrants.
	Grants access.Grants
	// Subjects pseudonymizes caller identities before they reach capability
	// subjects and logs.
	Subjects *votetoken.Anonymizer
}

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	http       *http.Server
	reputation reputationengine.Module
	issuance   voteissuance.Module
	ledger     ballotledger.Module
	polling    responseaggregator.Module
	metrics    http.Handler
	grants     access.Grants
	subjects   *votetoken.Anonymizer
}

func New(modules Modules, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		reputation: modules.Reputation,
		issuance:   modules.Issuance,
		ledger:     modules.Ledger,
		polling:    modules.Polling,
		metrics:    modules.Metrics,
		grants:     modules.Grants,
		subjects:   modules.Subjects,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Start blocks until the server stops. A graceful Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /v1/reputation/{identity}", s.handleGetReputation)

	s.mux.HandleFunc("POST /v1/ballots/{ballot_id}/tokens", s.handleIssueToken)

	s.mux.HandleFunc("GET /v1/ledger/entries", s.handleQueryEntries)
	s.mux.HandleFunc("DELETE /v1/ledger/entries", s.handleClearLedger)
	s.mux.HandleFunc("POST /v1/ledger/tokens/{token_id}/expire", s.handleExpireToken)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /v1/ballots/{ballot_id}/bundle", s.handleBundle)

	s.mux.HandleFunc("POST /v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/responses", s.handleSubmitResponse)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/aggregate", s.handlePollAggregate)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/impact", s.handlePollImpact)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/alignment", s.handlePollAlignment)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/pushback", s.handlePollPushback)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/report", s.handlePollReport)
}

type healthResponse struct {
	Status        string `json:"status"`
	LedgerEntries int    `json:"ledger_entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	entries := 0
	if s.ledger.Ledger != nil {
		entries = s.ledger.Ledger.Len()
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LedgerEntries: entries})
}

// requireIdentity returns the caller's identity digest, or writes 401.
func requireIdentity(w http.ResponseWriter, r *http.Request, writeError errorWriter) (string, bool) {
	identity := strings.TrimSpace(r.Header.Get(identityHeader))
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", identityHeader+" header is required")
		return "", false
	}
	return identity, true
}

// callerCapability derives the caller's capability from the tier the
// reputation engine resolves for it. Client-supplied tiers are never read.
func (s *Server) callerCapability(r *http.Request, identity string) (access.Capability, error) {
	if s.reputation.Resolver == nil {
		return access.Capability{}, failures.Processing("resolve caller tier", errors.New("reputation resolver is not configured"))
	}
	level, err := s.reputation.Resolver.ResolveTier(r.Context(), identity)
	if err != nil {
		return access.Capability{}, err
	}
	return s.grants.For(s.subject(identity), level), nil
}

func (s *Server) subject(identity string) string {
	if s.subjects == nil {
		return identity
	}
	return s.subjects.Anonymize("caller", identity)
}

type errorWriter func(w http.ResponseWriter, status int, code string, message string)

// failureStatus maps the shared failure taxonomy onto HTTP. Unknown kinds are
// reported as internal errors without their message.
func failureStatus(err error) (int, string, string) {
	switch failures.KindOf(err) {
	case failures.KindInvalidPayload:
		return http.StatusBadRequest, string(failures.KindInvalidPayload), err.Error()
	case failures.KindDuplicateVote:
		return http.StatusConflict, string(failures.KindDuplicateVote), err.Error()
	case failures.KindExpiredBallot:
		return http.StatusGone, string(failures.KindExpiredBallot), err.Error()
	case failures.KindSignature:
		return http.StatusUnprocessableEntity, string(failures.KindSignature), err.Error()
	case failures.KindInsufficientResponses:
		return http.StatusUnprocessableEntity, string(failures.KindInsufficientResponses), err.Error()
	case failures.KindAccessDenied:
		return http.StatusForbidden, string(failures.KindAccessDenied), err.Error()
	case failures.KindSourceUnavailable:
		return http.StatusFailedDependency, string(failures.KindSourceUnavailable), "credential source unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
