package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	pollhttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

func createPoll(t *testing.T, server *Server) string {
	t.Helper()
	rr := serve(server, http.MethodPost, "/v1/polls", "mod-1", pollhttp.CreatePollRequest{
		PollID:  "P1",
		Title:   "Library hours",
		Options: []string{"Extend", "Keep"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var poll pollhttp.PollResponse
	decodeBody(t, rr, &poll)
	return poll.PollID
}

func TestCreatePollRequiresModerator(t *testing.T) {
	server := newTestServer()
	request := pollhttp.CreatePollRequest{Title: "t", Options: []string{"a", "b"}}

	rr := serve(server, http.MethodPost, "/v1/polls", "", request)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodPost, "/v1/polls", "alice", request)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitResponseDuplicateReferencesFirst(t *testing.T) {
	server := newTestServer()
	pollID := createPoll(t, server)
	target := "/v1/polls/" + pollID + "/responses"

	rr := serve(server, http.MethodPost, target, "alice", pollhttp.SubmitResponseRequest{Selected: []string{"Extend"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var first pollhttp.SubmittedResponse
	decodeBody(t, rr, &first)

	rr = serve(server, http.MethodPost, target, "alice", pollhttp.SubmitResponseRequest{Selected: []string{"Keep"}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure pollhttp.ErrorResponse
	decodeBody(t, rr, &failure)
	if failure.ExistingResponseID != first.ResponseID {
		t.Fatalf("expected duplicate to reference %s, got %+v", first.ResponseID, failure)
	}
}

func TestSubmitResponseUnknownPollIsNotFound(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/polls/nope/responses", "alice", pollhttp.SubmitResponseRequest{Selected: []string{"x"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPollAnalyticsRequireCapability(t *testing.T) {
	server := newTestServer()
	pollID := createPoll(t, server)

	for _, view := range []string{"aggregate", "impact", "alignment", "pushback"} {
		target := "/v1/polls/" + pollID + "/" + view
		rr := serve(server, http.MethodGet, target, "alice", nil)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for citizen, got %d body=%s", view, rr.Code, rr.Body.String())
		}
		rr = serve(server, http.MethodGet, target, "mod-2", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 for moderator, got %d body=%s", view, rr.Code, rr.Body.String())
		}
	}
}

func TestPollReportNeedsTwentyFiveResponses(t *testing.T) {
	server := newTestServer()
	pollID := createPoll(t, server)
	submit := func(i int) {
		rr := serve(server, http.MethodPost, "/v1/polls/"+pollID+"/responses", fmt.Sprintf("voter-%d", i),
			pollhttp.SubmitResponseRequest{Selected: []string{"Keep"}, Comment: "against change"})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
		}
	}
	for i := 0; i < 24; i++ {
		submit(i)
	}

	rr := serve(server, http.MethodGet, "/v1/polls/"+pollID+"/report", "mod-1", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure pollhttp.ErrorResponse
	decodeBody(t, rr, &failure)
	if failure.Code != "insufficient_responses" || failure.Have != 24 || failure.Need != 25 {
		t.Fatalf("unexpected failure body: %+v", failure)
	}

	submit(24)
	rr = serve(server, http.MethodGet, "/v1/polls/"+pollID+"/report?format=csv", "mod-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	fingerprint := rr.Header().Get("X-Report-Fingerprint")
	if fingerprint == "" || !strings.Contains(rr.Body.String(), "fingerprint,"+fingerprint) {
		t.Fatalf("expected fingerprint header to match body trailer, header=%q", fingerprint)
	}

	rr = serve(server, http.MethodGet, "/v1/polls/"+pollID+"/report?format=xml", "mod-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d body=%s", rr.Code, rr.Body.String())
	}
}

// serverWithPollMinimum rebuilds the test server with analytics opened to
// minimum, as bootstrap does from the tier economics.
func serverWithPollMinimum(env testEnv, minimum tiers.Level) *Server {
	polling := env.polling
	polling.Analytics.MinimumTier = minimum
	polling.Handler.Analytics = polling.Analytics
	return New(Modules{
		Reputation: env.reputation,
		Issuance:   env.issuance,
		Ledger:     env.ledger,
		Polling:    polling,
		Grants:     access.DefaultGrants().WithPollMinimum(minimum),
	}, nil, "")
}

func TestPollAnalyticsFollowConfiguredMinimumTier(t *testing.T) {
	env := newTestEnv()
	env.reputation.Store.SetTierHint("ver-1", "verified")
	server := serverWithPollMinimum(env, tiers.LevelVerified)
	pollID := createPoll(t, server)

	for _, view := range []string{"aggregate", "impact", "alignment", "pushback"} {
		target := "/v1/polls/" + pollID + "/" + view
		if rr := serve(server, http.MethodGet, target, "ver-1", nil); rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 for verified caller, got %d body=%s", view, rr.Code, rr.Body.String())
		}
		if rr := serve(server, http.MethodGet, target, "alice", nil); rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for citizen, got %d body=%s", view, rr.Code, rr.Body.String())
		}
	}

	strict := serverWithPollMinimum(env, tiers.LevelCommander)
	if rr := serve(strict, http.MethodGet, "/v1/polls/"+pollID+"/aggregate", "mod-1", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator under commander minimum, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := serve(strict, http.MethodGet, "/v1/polls/"+pollID+"/aggregate", "cmd-1", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for commander, got %d body=%s", rr.Code, rr.Body.String())
	}
}
