package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"

	"github.com/stretchr/testify/require"
)

func TestClaimBlocksUntilExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	first := entities.Reservation{BallotID: "B1", AnonymizedIdentity: "p1", TokenID: "t1", ExpiresAt: now.Add(time.Minute)}

	_, claimed, err := store.Claim(ctx, first, now)
	require.NoError(t, err)
	require.True(t, claimed)

	second := first
	second.TokenID = "t2"
	existing, claimed, err := store.Claim(ctx, second, now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, claimed, "expiry instant still blocks")
	require.Equal(t, "t1", existing.TokenID)

	_, claimed, err = store.Claim(ctx, second, now.Add(time.Minute+time.Millisecond))
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestReleaseIgnoresCommittedAndForeignTokens(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	_, _, err := store.Claim(ctx, entities.Reservation{BallotID: "B1", AnonymizedIdentity: "p1", TokenID: "t1", ExpiresAt: now.Add(time.Minute)}, now)
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "B1", "p1", "other"))
	_, ok := store.Reservation("B1", "p1")
	require.True(t, ok)

	require.NoError(t, store.Commit(ctx, "B1", "p1", "t1"))
	require.NoError(t, store.Release(ctx, "B1", "p1", "t1"))
	_, ok = store.Reservation("B1", "p1")
	require.True(t, ok)

	require.ErrorIs(t, store.Commit(ctx, "B1", "p2", "t1"), domainerrors.ErrReservationNotFound)
}

func TestOutboxAppendIsIdempotentAndOrdered(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendOutbox(ctx, outbox.Message{ID: "b", Payload: []byte("2"), CreatedAt: at}))
	require.NoError(t, store.AppendOutbox(ctx, outbox.Message{ID: "a", Payload: []byte("1"), CreatedAt: at}))
	require.NoError(t, store.AppendOutbox(ctx, outbox.Message{ID: "b", Payload: []byte("2"), CreatedAt: at}))
	require.ErrorIs(t, store.AppendOutbox(ctx, outbox.Message{ID: "b", Payload: []byte("x"), CreatedAt: at}), domainerrors.ErrConflict)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "b", pending[0].ID)
	require.Equal(t, "a", pending[1].ID)

	require.NoError(t, store.SettleOutbox(ctx, "b", outbox.StatusDelivered, "", at))
	require.NoError(t, store.SettleOutbox(ctx, "b", outbox.StatusRejected, "late", at))
	row, _ := store.OutboxMessage("b")
	require.Equal(t, outbox.StatusDelivered, row.Status)

	pending, err = store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
