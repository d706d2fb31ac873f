package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ledgerports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	issuanceports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	aggregatorports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"
	reputationports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	_ reputationports.Observer = (*Recorder)(nil)
	_ issuanceports.Observer   = (*Recorder)(nil)
	_ ledgerports.Observer     = (*Recorder)(nil)
	_ aggregatorports.Observer = (*Recorder)(nil)
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveIssue("issued")
	r.ObserveIssue("issued")
	r.ObserveIssue("duplicate_vote")
	require.Equal(t, 2.0, testutil.ToFloat64(r.issued.WithLabelValues("issued")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.issued.WithLabelValues("duplicate_vote")))

	r.ObserveSweep(0)
	r.ObserveSweep(4)
	require.Equal(t, 4.0, testutil.ToFloat64(r.swept))

	r.ObserveEntries(10)
	r.ObserveEntries(7)
	require.Equal(t, 7.0, testutil.ToFloat64(r.ledgerEntries))

	r.ObserveAdmin("expire", false)
	require.Equal(t, 1.0, testutil.ToFloat64(r.ledgerAdmin.WithLabelValues("expire", "false")))

	r.ObserveScoreCache(true)
	r.ObserveScoreCache(false)
	r.ObserveScoreCache(false)
	require.Equal(t, 2.0, testutil.ToFloat64(r.scoreCache.WithLabelValues("miss")))

	r.ObserveScoreComputed(30*time.Millisecond, 2)
	require.Equal(t, 2.0, testutil.ToFloat64(r.skippedSources))

	r.ObserveInvalidResponses(3)
	r.ObserveAnalytics("report", "ok")
	require.Equal(t, 3.0, testutil.ToFloat64(r.invalidResponse))
	require.Equal(t, 1.0, testutil.ToFloat64(r.pollAnalytics.WithLabelValues("report", "ok")))
}

func TestHandlerServesTextFormat(t *testing.T) {
	r := NewRecorder()
	r.ObserveRecord("recorded")
	r.ObserveResponse("recorded")

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.True(t, strings.Contains(body, `civic_ledger_record_total{outcome="recorded"} 1`), body)
	require.Contains(t, body, "civic_polling_responses_total")
	require.Contains(t, body, "go_goroutines")
}
