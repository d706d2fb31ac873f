package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/resolver"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger *Ledger
	store  *memory.Store
	clock  *clock.Mock
	key    *votetoken.HMACKey
	seq    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := votetoken.NewHMACKey("issuer-1", bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore()
	l, err := New(context.Background(), Config{Store: store, Verifier: key, Clock: mock})
	require.NoError(t, err)
	return &fixture{ledger: l, store: store, clock: mock, key: key}
}

func (f *fixture) token(t *testing.T, ballotID string, pseudonym string, choice string, weight float64) votetoken.Token {
	t.Helper()
	f.seq++
	issued := votetoken.NormalizeTime(f.clock.Now())
	token, err := votetoken.SignToken(f.key, votetoken.Token{
		TokenID:            fmt.Sprintf("tok-%03d", f.seq),
		BallotID:           ballotID,
		AnonymizedIdentity: pseudonym,
		Ciphertext:         votetoken.SealEnvelope([]byte("choice:" + choice)),
		Weight:             weight,
		IssuedAt:           issued,
		ExpiresAt:          issued.Add(votetoken.DefaultTTL),
	})
	require.NoError(t, err)
	return token
}

func commander() access.Capability {
	return access.ForTier("ops", tiers.LevelCommander)
}

func TestRecordAssignsFirstPositionAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.token(t, "B1", "alice-b1", "yes", 1.5)

	entry, err := f.ledger.Record(ctx, first)
	require.NoError(t, err)
	require.Equal(t, int64(0), entry.Position)
	require.True(t, entry.Active)
	require.Equal(t, "", entry.PrevDigest)

	_, err = f.ledger.Record(ctx, first)
	var dup *failures.DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, first.TokenID, dup.ExistingID)

	second := f.token(t, "B1", "alice-b1", "no", 1.5)
	_, err = f.ledger.Record(ctx, second)
	require.True(t, errors.As(err, &dup))
	require.Equal(t, first.TokenID, dup.ExistingID)

	require.Equal(t, 1, f.ledger.Len())
}

func TestRecordRejectsInvalidTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	forged := f.token(t, "B1", "p1", "yes", 1.0)
	forged.Weight = 3.0
	_, err := f.ledger.Record(ctx, forged)
	require.Equal(t, failures.KindSignature, failures.KindOf(err))

	heavy := f.token(t, "B1", "p2", "yes", 1.0)
	heavy.Weight = 6
	_, err = f.ledger.Record(ctx, heavy)
	require.Equal(t, failures.KindInvalidPayload, failures.KindOf(err))

	// signed with a NaN weight, so only the bound check can stop it
	undefined := f.token(t, "B1", "p5", "yes", math.NaN())
	_, err = f.ledger.Record(ctx, undefined)
	require.Equal(t, failures.KindInvalidPayload, failures.KindOf(err))

	late := f.token(t, "B1", "p3", "yes", 1.0)
	f.clock.Add(votetoken.DefaultTTL + time.Millisecond)
	_, err = f.ledger.Record(ctx, late)
	require.Equal(t, failures.KindExpiredBallot, failures.KindOf(err))

	atExpiry := f.token(t, "B1", "p4", "yes", 1.0)
	f.clock.Add(votetoken.DefaultTTL)
	_, err = f.ledger.Record(ctx, atExpiry)
	require.NoError(t, err)

	rejections, err := f.store.LoadRejections(ctx)
	require.NoError(t, err)
	require.Len(t, rejections, 4)
}

func TestConcurrentRecordsGetGapFreePositions(t *testing.T) {
	f := newFixture(t)
	const writers = 64

	tokens := make([]votetoken.Token, writers)
	for i := range tokens {
		tokens[i] = f.token(t, "B1", fmt.Sprintf("p-%02d", i), "yes", 1.0)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		positions []int64
	)
	start := make(chan struct{})
	for _, token := range tokens {
		wg.Add(1)
		go func(token votetoken.Token) {
			defer wg.Done()
			<-start
			entry, err := f.ledger.Record(context.Background(), token)
			if err != nil {
				t.Errorf("expected record, got error: %v", err)
				return
			}
			mu.Lock()
			positions = append(positions, entry.Position)
			mu.Unlock()
		}(token)
	}
	close(start)
	wg.Wait()

	require.Len(t, positions, writers)
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	for i, position := range positions {
		require.Equal(t, int64(i), position)
	}

	entries, err := f.store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, -1, services.VerifyChain(entries))
}

func TestGetTallyMatchesEntryWeights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	votes := []struct {
		choice string
		weight float64
	}{
		{"yes", 1.0}, {"no", 1.25}, {"yes", 2.0}, {"yes", 3.0}, {"no", 1.5}, {"abstain", 1.0},
	}
	expectedWeighted := map[string]float64{}
	expectedRaw := map[string]int{}
	for i, vote := range votes {
		_, err := f.ledger.Record(ctx, f.token(t, "B1", fmt.Sprintf("p-%d", i), vote.choice, vote.weight))
		require.NoError(t, err)
		expectedWeighted[vote.choice] += vote.weight
		expectedRaw[vote.choice]++
		f.clock.Add(time.Second)
	}
	_, err := f.ledger.Record(ctx, f.token(t, "B2", "p-x", "yes", 5.0))
	require.NoError(t, err)

	tally, err := f.ledger.GetTally(ctx, "B1", resolver.EnvelopeResolver{})
	require.NoError(t, err)
	require.Equal(t, len(votes), tally.EntryCount)
	require.Len(t, tally.Choices, 3)
	for _, item := range tally.Choices {
		require.Equal(t, expectedRaw[item.Choice], item.Raw, item.Choice)
		require.Equal(t, expectedWeighted[item.Choice], item.Weighted, item.Choice)
	}
	require.InDelta(t, 9.75/6, tally.MeanWeight, 1e-9)
	require.Equal(t, 1.375, tally.MedianWeight)
	require.Equal(t, []float64{1.0, 1.25, 1.5, 2.0, 3.0}, tally.DistinctWeights)
	require.Equal(t, time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), tally.FirstAt)
	require.Equal(t, time.Date(2026, 6, 1, 10, 0, 5, 0, time.UTC), tally.LastAt)

	_, err = f.ledger.GetTally(ctx, "missing", resolver.EnvelopeResolver{})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.ledger.GetTally(ctx, "B1", nil)
	require.Equal(t, failures.KindInvalidPayload, failures.KindOf(err))
}

func TestExpiredEntriesLeaveTallyButKeepPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.token(t, "B1", "p1", "yes", 2.0)
	_, err := f.ledger.Record(ctx, first)
	require.NoError(t, err)
	_, err = f.ledger.Record(ctx, f.token(t, "B1", "p2", "no", 1.0))
	require.NoError(t, err)

	entry, err := f.ledger.Expire(ctx, commander(), first.TokenID, "fraud review")
	require.NoError(t, err)
	require.False(t, entry.Active)
	require.Equal(t, "fraud review", entry.InactiveReason)

	tally, err := f.ledger.GetTally(ctx, "B1", resolver.EnvelopeResolver{})
	require.NoError(t, err)
	require.Equal(t, 1, tally.EntryCount)

	next, err := f.ledger.Record(ctx, f.token(t, "B1", "p3", "yes", 1.0))
	require.NoError(t, err)
	require.Equal(t, int64(2), next.Position)

	bundle, err := f.ledger.ExportBundle(ctx, "B1", resolver.EnvelopeResolver{})
	require.NoError(t, err)
	require.Equal(t, 3, bundle.Verification.EntryCount)
	require.Equal(t, []int64{0, 1, 2}, bundle.Audit.Positions)
	require.Equal(t, services.Fingerprint(bundle.Verification.Digests), bundle.Verification.Fingerprint)
	require.False(t, bundle.Verification.Digests[0].Active)
}

func TestAdminOperationsRequireCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.token(t, "B1", "p1", "yes", 1.0)
	_, err := f.ledger.Record(ctx, token)
	require.NoError(t, err)

	moderator := access.ForTier("mod", tiers.LevelModerator)
	_, err = f.ledger.Expire(ctx, moderator, token.TokenID, "")
	require.Equal(t, failures.KindAccessDenied, failures.KindOf(err))
	require.Equal(t, failures.KindAccessDenied, failures.KindOf(f.ledger.Clear(ctx, moderator)))
	require.Equal(t, 1, f.ledger.Len())

	_, err = f.ledger.Expire(ctx, commander(), "missing", "")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, f.ledger.Clear(ctx, commander()))
	require.Equal(t, 0, f.ledger.Len())
	entries, err := f.store.LoadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestQuerySortsByWeightWithPositionTieBreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	weights := []float64{1.0, 2.0, 1.0, 3.0, 2.0}
	for i, weight := range weights {
		_, err := f.ledger.Record(ctx, f.token(t, "B1", fmt.Sprintf("p-%d", i), "yes", weight))
		require.NoError(t, err)
	}

	result, err := f.ledger.Query(ctx, entities.Filter{BallotID: "B1", SortBy: entities.SortByWeight})
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
	var order []int64
	for _, entry := range result.Entries {
		order = append(order, entry.Position)
	}
	require.Equal(t, []int64{0, 2, 1, 4, 3}, order)

	page, err := f.ledger.Query(ctx, entities.Filter{MinWeight: 1.5, MaxWeight: 2.5, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Entries, 1)
	require.Equal(t, int64(4), page.Entries[0].Position)

	_, err = f.ledger.Query(ctx, entities.Filter{SortBy: "color"})
	require.Equal(t, failures.KindInvalidPayload, failures.KindOf(err))
}

func TestRebuildRestoresStateAndDetectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Record(ctx, f.token(t, "B1", fmt.Sprintf("p-%d", i), "yes", 1.25))
		require.NoError(t, err)
	}

	reopened, err := New(ctx, Config{Store: f.store, Verifier: f.key, Clock: f.clock})
	require.NoError(t, err)
	require.Equal(t, 3, reopened.Len())
	next, err := reopened.Record(ctx, f.token(t, "B1", "p-new", "no", 1.0))
	require.NoError(t, err)
	require.Equal(t, int64(3), next.Position)

	entries, err := f.store.LoadAll(ctx)
	require.NoError(t, err)
	tampered := entries[1]
	tampered.Token.Weight = 5.0
	f.store.Tamper(tampered)

	_, err = New(ctx, Config{Store: f.store, Verifier: f.key, Clock: f.clock})
	require.ErrorIs(t, err, domainerrors.ErrCorruptLog)
	require.Equal(t, failures.KindProcessing, failures.KindOf(err))
}

// recordAt records one token for ballot B1 issued at the given instant.
func (f *fixture) recordAt(t *testing.T, at time.Time, pseudonym string, weight float64) {
	t.Helper()
	f.clock.Set(at)
	_, err := f.ledger.Record(context.Background(), f.token(t, "B1", pseudonym, "yes", weight))
	require.NoError(t, err)
}

func positions(result entities.QueryResult) []int64 {
	out := make([]int64, 0, len(result.Entries))
	for _, entry := range result.Entries {
		out = append(out, entry.Position)
	}
	return out
}

func TestQueryTimestampRangeAcrossUTCDays(t *testing.T) {
	f := newFixture(t)
	day := func(d int, h int, m int) time.Time {
		return time.Date(2026, 6, d, h, m, 0, 0, time.UTC)
	}
	f.recordAt(t, day(1, 23, 30), "p0", 1.0)
	f.recordAt(t, day(2, 0, 15), "p1", 1.0)
	f.recordAt(t, day(2, 12, 0), "p2", 1.0)
	f.recordAt(t, day(3, 0, 0), "p3", 1.0)
	f.recordAt(t, day(4, 8, 0), "p4", 1.0)
	ctx := context.Background()

	eastern := time.FixedZone("UTC+5", 5*3600)
	cases := []struct {
		name   string
		filter entities.Filter
		want   []int64
	}{
		{
			name:   "day index across midnight, inclusive upper bound",
			filter: entities.Filter{From: day(1, 23, 45), To: day(3, 0, 0)},
			want:   []int64{1, 2, 3},
		},
		{
			name:   "same range through the ballot index",
			filter: entities.Filter{BallotID: "B1", From: day(1, 23, 45), To: day(3, 0, 0)},
			want:   []int64{1, 2, 3},
		},
		{
			name:   "bounds given in another zone are compared as instants",
			filter: entities.Filter{From: day(2, 0, 15).In(eastern), To: day(2, 12, 0).In(eastern)},
			want:   []int64{1, 2},
		},
		{
			name:   "single day",
			filter: entities.Filter{From: day(2, 0, 0), To: day(2, 23, 59)},
			want:   []int64{1, 2},
		},
		{
			name:   "open upper bound scans the log",
			filter: entities.Filter{From: day(2, 12, 0)},
			want:   []int64{2, 3, 4},
		},
		{
			name:   "open lower bound",
			filter: entities.Filter{To: day(2, 0, 14)},
			want:   []int64{0},
		},
		{
			name:   "span wider than the day index",
			filter: entities.Filter{From: day(1, 0, 0).AddDate(0, -2, 0), To: day(4, 8, 0).AddDate(0, 1, 0)},
			want:   []int64{0, 1, 2, 3, 4},
		},
		{
			name:   "empty window",
			filter: entities.Filter{From: day(5, 0, 0), To: day(6, 0, 0)},
			want:   []int64{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.ledger.Query(ctx, tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.want, positions(result))
			require.Equal(t, len(tc.want), result.Total)
		})
	}
}

func TestQuerySortOrdersAndDescendingTieBreak(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	f.recordAt(t, base, "p0", 2.0)
	f.recordAt(t, base.Add(time.Minute), "p1", 1.0)
	f.recordAt(t, base.Add(time.Minute), "p2", 2.0)
	f.recordAt(t, base.Add(2*time.Minute), "p3", 1.0)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter entities.Filter
		want   []int64
	}{
		{"timestamp ascending", entities.Filter{SortBy: entities.SortByTimestamp}, []int64{0, 1, 2, 3}},
		{"timestamp descending", entities.Filter{SortBy: entities.SortByTimestamp, Descending: true}, []int64{3, 2, 1, 0}},
		{"weight descending ties by position", entities.Filter{SortBy: entities.SortByWeight, Descending: true}, []int64{2, 0, 3, 1}},
		{"position descending", entities.Filter{SortBy: entities.SortByPosition, Descending: true}, []int64{3, 2, 1, 0}},
		{"timestamp descending paged", entities.Filter{SortBy: entities.SortByTimestamp, Descending: true, Offset: 1, Limit: 2}, []int64{2, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.ledger.Query(ctx, tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.want, positions(result))
			require.Equal(t, 4, result.Total)
		})
	}
}
