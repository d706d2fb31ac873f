package httpserver

import (
	"context"
	"net/http"
	"testing"

	ledgerhttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/transport/http"
	issuancehttp "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/transport/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

func issueRequest() issuancehttp.IssueTokenRequest {
	return issuancehttp.IssueTokenRequest{Ciphertext: votetoken.SealEnvelope([]byte("yes"))}
}

func TestIssueTokenRequiresIdentity(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/ballots/B1/tokens", "", issueRequest())
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestIssueTokenDuplicateReturnsExistingToken(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/ballots/B1/tokens", "alice", issueRequest())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var token issuancehttp.VoteTokenResponse
	decodeBody(t, rr, &token)
	if token.AnonymizedIdentity == "alice" || token.Tier != "citizen" {
		t.Fatalf("unexpected token: %+v", token)
	}

	rr = serve(server, http.MethodPost, "/v1/ballots/B1/tokens", "alice", issueRequest())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure issuancehttp.ErrorResponse
	decodeBody(t, rr, &failure)
	if failure.Code != "duplicate_vote" || failure.ExistingTokenID != token.TokenID {
		t.Fatalf("expected duplicate referencing %s, got %+v", token.TokenID, failure)
	}
}

func TestIssueTokenRejectsMalformedCiphertext(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/ballots/B1/tokens", "bob", issuancehttp.IssueTokenRequest{Ciphertext: "plain vote"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRelayedTokenAppearsInTallyAndExpireNeedsAdmin(t *testing.T) {
	env := newTestEnv()
	rr := serve(env.server, http.MethodPost, "/v1/ballots/B1/tokens", "carol", issueRequest())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var token issuancehttp.VoteTokenResponse
	decodeBody(t, rr, &token)

	if _, err := env.issuance.Relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected relay to deliver, got %v", err)
	}

	rr = serve(env.server, http.MethodGet, "/v1/ballots/B1/tally", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tally ledgerhttp.TallyResponse
	decodeBody(t, rr, &tally)
	if tally.EntryCount != 1 {
		t.Fatalf("expected one tallied entry, got %+v", tally)
	}

	target := "/v1/ledger/tokens/" + token.TokenID + "/expire"
	rr = serve(env.server, http.MethodPost, target, "mod-1", ledgerhttp.ExpireTokenRequest{Reason: "revoked"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(env.server, http.MethodPost, target, "cmd-1", ledgerhttp.ExpireTokenRequest{Reason: "revoked"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for commander, got %d body=%s", rr.Code, rr.Body.String())
	}
	var entry ledgerhttp.LedgerEntryResponse
	decodeBody(t, rr, &entry)
	if entry.Active {
		t.Fatalf("expected entry to be inactive after expiry")
	}

	rr = serve(env.server, http.MethodGet, "/v1/ledger/entries?ballot_id=B1&include_inactive=true", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var page ledgerhttp.QueryEntriesResponse
	decodeBody(t, rr, &page)
	if page.Total != 1 {
		t.Fatalf("expected inactive entry in query, got %+v", page)
	}
}

func TestExpireUnknownTokenIsNotFound(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodPost, "/v1/ledger/tokens/missing/expire", "cmd-1", ledgerhttp.ExpireTokenRequest{Reason: "x"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestQueryEntriesRejectsBadFilter(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodGet, "/v1/ledger/entries?order=sideways", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestClearLedgerRequiresAdmin(t *testing.T) {
	server := newTestServer()
	rr := serve(server, http.MethodDelete, "/v1/ledger/entries", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodDelete, "/v1/ledger/entries", "alice", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = serve(server, http.MethodDelete, "/v1/ledger/entries", "cmd-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}
}
