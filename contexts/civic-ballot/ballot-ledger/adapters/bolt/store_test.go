package boltadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	bolt "go.etcd.io/bbolt"
)

func openStore(t *testing.T, path string) (*Store, *bolt.DB) {
	t.Helper()
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("expected bolt db, got error: %v", err)
	}
	store, err := NewStore(db, nil)
	if err != nil {
		t.Fatalf("expected store, got error: %v", err)
	}
	return store, db
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	store, db := openStore(t, path)

	issued := time.Date(2026, 6, 1, 10, 0, 0, 123_000_000, time.UTC)
	token := votetoken.Token{
		TokenID:            "t1",
		BallotID:           "B1",
		AnonymizedIdentity: "p1",
		Ciphertext:         votetoken.SealEnvelope([]byte("yes")),
		Weight:             1.25,
		IssuedAt:           issued,
		ExpiresAt:          issued.Add(votetoken.DefaultTTL),
		KeyID:              "k1",
		Signature:          "sig",
	}
	entry := entities.LedgerEntry{
		Position:   0,
		Token:      token,
		Active:     true,
		RecordedAt: issued,
		Digest:     services.ChainDigest("", 0, token),
	}
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("expected append, got error: %v", err)
	}
	if err := store.Append(ctx, entry); err != domainerrors.ErrConflict {
		t.Fatalf("expected position conflict, got %v", err)
	}
	if err := store.SetActive(ctx, 0, false, "manual"); err != nil {
		t.Fatalf("expected set active, got error: %v", err)
	}
	if err := store.RecordRejection(ctx, entities.Rejection{TokenID: "t9", BallotID: "B1", Cause: entities.CauseExpired, At: issued}); err != nil {
		t.Fatalf("expected rejection, got error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("expected close, got error: %v", err)
	}

	reopened, db := openStore(t, path)
	defer db.Close()
	entries, err := reopened.LoadAll(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry, got %d err=%v", len(entries), err)
	}
	got := entries[0]
	if got.Active || got.InactiveReason != "manual" {
		t.Fatalf("expected inactive entry, got %+v", got)
	}
	if services.VerifyChain(entries) != -1 {
		t.Fatalf("expected digest to survive the round trip")
	}
	rejections, err := reopened.LoadRejections(ctx)
	if err != nil || len(rejections) != 1 || rejections[0].Cause != entities.CauseExpired {
		t.Fatalf("expected persisted rejection, got %+v err=%v", rejections, err)
	}

	if err := reopened.Reset(ctx); err != nil {
		t.Fatalf("expected reset, got error: %v", err)
	}
	entries, _ = reopened.LoadAll(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected empty log after reset, got %d", len(entries))
	}
}
