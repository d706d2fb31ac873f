package commands

import (
	"bytes"
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/keylock"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type fixedResolver struct {
	mu     sync.Mutex
	levels map[string]tiers.Level
}

func (r *fixedResolver) set(identity string, level tiers.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[identity] = level
}

func (r *fixedResolver) ResolveTierWeight(_ context.Context, identity string) (tiers.Level, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[identity]
	if !ok {
		level = tiers.LevelCitizen
	}
	weight, _ := tiers.DefaultTable().Weight(level)
	return level, weight, nil
}

type fixture struct {
	uc       IssueUseCase
	store    *memory.Store
	clock    *clock.Mock
	resolver *fixedResolver
	key      *votetoken.HMACKey
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	key, err := votetoken.NewHMACKey("issuer-1", bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	anonymizer, err := votetoken.NewAnonymizer(bytes.Repeat([]byte{4}, 32))
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore()
	resolver := &fixedResolver{levels: map[string]tiers.Level{"alice": tiers.LevelModerator}}

	return fixture{
		uc: IssueUseCase{
			Registry:   store,
			Outbox:     store,
			Resolver:   resolver,
			Signer:     key,
			Anonymizer: anonymizer,
			Locks:      keylock.New(),
			Clock:      mock,
			IDGen:      store,
		},
		store:    store,
		clock:    mock,
		resolver: resolver,
		key:      key,
	}
}

func ballotCommand(ballotID string, identity string) IssueCommand {
	return IssueCommand{
		BallotID:       ballotID,
		IdentityDigest: identity,
		Ciphertext:     votetoken.SealEnvelope([]byte("choice:yes")),
	}
}

func TestIssueSecondSubmissionIsDuplicate(t *testing.T) {
	f := newFixture(t)

	first, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.NoError(t, err)
	require.Equal(t, 1.5, first.Token.Weight)
	require.Equal(t, tiers.LevelModerator, first.Tier)
	require.Equal(t, first.Token.IssuedAt.Add(votetoken.DefaultTTL), first.Token.ExpiresAt)
	require.NoError(t, votetoken.VerifyToken(f.key, first.Token))
	require.NotContains(t, first.Token.AnonymizedIdentity, "alice")

	f.clock.Add(30 * time.Second)
	_, err = f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.Equal(t, failures.KindDuplicateVote, failures.KindOf(err))
	existing, ok := IsDuplicate(err)
	require.True(t, ok)
	require.Equal(t, first.Token.TokenID, existing)

	other, err := f.uc.Issue(context.Background(), ballotCommand("B2", "alice"))
	require.NoError(t, err)
	require.NotEqual(t, first.Token.AnonymizedIdentity, other.Token.AnonymizedIdentity)

	row, ok := f.store.OutboxMessage(first.Token.TokenID)
	require.True(t, ok)
	require.Contains(t, string(row.Payload), first.Token.TokenID)
}

func TestIssueRacingSubmissionsYieldExactlyOneToken(t *testing.T) {
	f := newFixture(t)
	const racers = 48

	var (
		wg         sync.WaitGroup
		accepted   atomic.Int32
		duplicates atomic.Int32
		mu         sync.Mutex
		winner     string
		referenced = make(map[string]struct{})
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted.Add(1)
				winner = result.Token.TokenID
				return
			}
			if id, ok := IsDuplicate(err); ok {
				duplicates.Add(1)
				referenced[id] = struct{}{}
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), accepted.Load())
	require.Equal(t, int32(racers-1), duplicates.Load())
	require.Len(t, referenced, 1)
	_, ok := referenced[winner]
	require.True(t, ok, "duplicates must reference the accepted token")
}

func TestIssueFreesSlotAfterUnrecordedExpiry(t *testing.T) {
	f := newFixture(t)
	first, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.NoError(t, err)

	f.clock.Add(votetoken.DefaultTTL + time.Millisecond)
	second, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.NoError(t, err)
	require.NotEqual(t, first.Token.TokenID, second.Token.TokenID)
}

func TestIssueCommittedSlotBlocksForever(t *testing.T) {
	f := newFixture(t)
	first, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.NoError(t, err)
	require.NoError(t, f.store.Commit(context.Background(), "B1", first.Token.AnonymizedIdentity, first.Token.TokenID))

	f.clock.Add(24 * time.Hour)
	_, err = f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	existing, ok := IsDuplicate(err)
	require.True(t, ok)
	require.Equal(t, first.Token.TokenID, existing)
}

func TestIssueWeightIsFrozenAtSubmission(t *testing.T) {
	f := newFixture(t)
	result, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.NoError(t, err)

	f.resolver.set("alice", tiers.LevelCommander)
	row, ok := f.store.OutboxMessage(result.Token.TokenID)
	require.True(t, ok)
	require.Contains(t, string(row.Payload), `"weight":1.5`)
	require.Equal(t, 1.5, result.Token.Weight)
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	cases := map[string]struct {
		cmd  IssueCommand
		kind failures.Kind
	}{
		"empty ballot":     {IssueCommand{IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x"))}, failures.KindInvalidPayload},
		"empty identity":   {IssueCommand{BallotID: "B1", Ciphertext: votetoken.SealEnvelope([]byte("x"))}, failures.KindInvalidPayload},
		"plain ciphertext": {IssueCommand{BallotID: "B1", IdentityDigest: "alice", Ciphertext: "yes"}, failures.KindInvalidPayload},
		"reserved chars":   {IssueCommand{BallotID: "B|1", IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x"))}, failures.KindInvalidPayload},
		"closed ballot": {IssueCommand{
			BallotID: "B1", IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x")),
			Eligibility: entities.Eligibility{ClosesAt: now.Add(-time.Second)},
		}, failures.KindExpiredBallot},
		"not open yet": {IssueCommand{
			BallotID: "B1", IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x")),
			Eligibility: entities.Eligibility{OpensAt: now.Add(time.Hour)},
		}, failures.KindInvalidPayload},
		"tier too low": {IssueCommand{
			BallotID: "B1", IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x")),
			Eligibility: entities.Eligibility{MinimumTier: tiers.LevelGovernor},
		}, failures.KindAccessDenied},
		"unknown minimum tier": {IssueCommand{
			BallotID: "B1", IdentityDigest: "alice", Ciphertext: votetoken.SealEnvelope([]byte("x")),
			Eligibility: entities.Eligibility{MinimumTier: "overlord"},
		}, failures.KindInvalidPayload},
	}
	for name, tc := range cases {
		_, err := f.uc.Issue(context.Background(), tc.cmd)
		require.Equal(t, tc.kind, failures.KindOf(err), name)
	}

	_, ok := f.store.Reservation("B1", "")
	require.False(t, ok)
}

type weightResolver float64

func (w weightResolver) ResolveTierWeight(context.Context, string) (tiers.Level, float64, error) {
	return tiers.LevelCitizen, float64(w), nil
}

func TestIssueRejectsUnboundedResolvedWeight(t *testing.T) {
	for _, weight := range []float64{math.NaN(), math.Inf(1), 0, tiers.MaxWeight + 1} {
		f := newFixture(t)
		f.uc.Resolver = weightResolver(weight)
		_, err := f.uc.Issue(context.Background(), ballotCommand("B1", "alice"))
		require.Equal(t, failures.KindInvalidPayload, failures.KindOf(err), "weight %v", weight)

		pending, err := f.store.ListPendingOutbox(context.Background(), 10)
		require.NoError(t, err)
		require.Empty(t, pending)
	}
}

func TestIssueMisconfiguredIsProcessingError(t *testing.T) {
	_, err := IssueUseCase{}.Issue(context.Background(), ballotCommand("B1", "alice"))
	require.Equal(t, failures.KindProcessing, failures.KindOf(err))
}
