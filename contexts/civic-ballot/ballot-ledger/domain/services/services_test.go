package services

import (
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	"github.com/stretchr/testify/require"
)

func TestMedianAveragesMiddlePair(t *testing.T) {
	require.Equal(t, 0.0, Median(nil))
	require.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	require.Equal(t, 1.75, Median([]float64{3, 1, 2, 1.5}))

	values := []float64{3, 1}
	Median(values)
	require.Equal(t, []float64{3, 1}, values)
}

func TestWeightBucketAndDayKey(t *testing.T) {
	require.Equal(t, 1.0, WeightBucket(1.0))
	require.Equal(t, 1.25, WeightBucket(1.49))
	require.Equal(t, 2.75, WeightBucket(2.99))
	require.Equal(t, 5.0, WeightBucket(5.0))

	late := time.Date(2026, 6, 1, 23, 30, 0, 0, time.FixedZone("east", -3*3600))
	require.Equal(t, "2026-06-02", DayKey(late))
}

func TestChainDigestLinksEntries(t *testing.T) {
	issued := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	token := votetoken.Token{TokenID: "t1", BallotID: "B1", Weight: 1, IssuedAt: issued, ExpiresAt: issued.Add(time.Minute), Signature: "sig"}
	first := entities.LedgerEntry{Position: 0, Token: token, Digest: ChainDigest("", 0, token)}
	token.TokenID = "t2"
	second := entities.LedgerEntry{Position: 1, Token: token, PrevDigest: first.Digest, Digest: ChainDigest(first.Digest, 1, token)}

	require.Equal(t, -1, VerifyChain([]entities.LedgerEntry{first, second}))
	require.NotEqual(t, ChainDigest("", 1, token), second.Digest)

	gap := second
	gap.Position = 2
	require.Equal(t, 1, VerifyChain([]entities.LedgerEntry{first, gap}))
}

func TestFingerprintDependsOnOrder(t *testing.T) {
	a := entities.EntryDigest{Position: 0, TokenID: "t1", Digest: "aa"}
	b := entities.EntryDigest{Position: 1, TokenID: "t2", Digest: "bb"}
	require.Equal(t, Fingerprint([]entities.EntryDigest{a, b}), Fingerprint([]entities.EntryDigest{a, b}))
	require.NotEqual(t, Fingerprint([]entities.EntryDigest{a, b}), Fingerprint([]entities.EntryDigest{b, a}))
	require.Len(t, Fingerprint(nil), 64)
}

func TestNormalizeFilter(t *testing.T) {
	filter, err := NormalizeFilter(entities.Filter{})
	require.NoError(t, err)
	require.Equal(t, entities.SortByPosition, filter.SortBy)
	require.Equal(t, DefaultPageSize, filter.Limit)

	filter, err = NormalizeFilter(entities.Filter{SortBy: "Weight", Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, entities.SortByWeight, filter.SortBy)
	require.Equal(t, MaxPageSize, filter.Limit)

	now := time.Now()
	for _, bad := range []entities.Filter{
		{Offset: -1},
		{MinWeight: 3, MaxWeight: 2},
		{From: now, To: now.Add(-time.Hour)},
		{SortBy: "random"},
	} {
		_, err := NormalizeFilter(bad)
		require.ErrorIs(t, err, domainerrors.ErrInvalidFilter)
	}
}

func TestBuildTallyEmpty(t *testing.T) {
	tally := BuildTally("B1", nil, nil)
	require.Equal(t, 0, tally.EntryCount)
	require.Empty(t, tally.Choices)
	require.True(t, tally.FirstAt.IsZero())
}
