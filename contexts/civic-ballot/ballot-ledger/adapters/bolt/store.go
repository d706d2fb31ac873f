// Package boltadapter keeps the ledger log in a bbolt file, one bucket for
// entries keyed by big-endian position and one for rejections.
package boltadapter

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	bolt "go.etcd.io/bbolt"
)

var (
	entriesBucket    = []byte("ledger_entries")
	rejectionsBucket = []byte("ledger_rejections")
)

type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewStore creates the buckets if they are missing.
func NewStore(db *bolt.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(rejectionsBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("init ledger buckets: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Append(_ context.Context, entry entities.LedgerEntry) error {
	payload, err := json.Marshal(entryRecordFromEntity(entry))
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		key := positionKey(entry.Position)
		if bucket.Get(key) != nil {
			return domainerrors.ErrConflict
		}
		return bucket.Put(key, payload)
	})
	if err != nil && !errors.Is(err, domainerrors.ErrConflict) {
		return s.logError("ledger_bolt_append_failed", err, "position", entry.Position)
	}
	return err
}

func (s *Store) LoadAll(_ context.Context) ([]entities.LedgerEntry, error) {
	var items []entities.LedgerEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(_, value []byte) error {
			var record entryRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return err
			}
			items = append(items, record.toEntity())
			return nil
		})
	})
	if err != nil {
		return nil, s.logError("ledger_bolt_load_failed", err)
	}
	return items, nil
}

func (s *Store) SetActive(_ context.Context, position int64, active bool, reason string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		key := positionKey(position)
		raw := bucket.Get(key)
		if raw == nil {
			return domainerrors.ErrNotFound
		}
		var record entryRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		record.Active = active
		record.InactiveReason = reason
		if active {
			record.InactiveReason = ""
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return bucket.Put(key, payload)
	})
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return s.logError("ledger_bolt_set_active_failed", err, "position", position)
	}
	return err
}

func (s *Store) RecordRejection(_ context.Context, rejection entities.Rejection) error {
	payload, err := json.Marshal(rejectionRecord{
		TokenID:  rejection.TokenID,
		BallotID: rejection.BallotID,
		Cause:    string(rejection.Cause),
		At:       rejection.At.UTC(),
	})
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rejectionsBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(positionKey(int64(seq)), payload)
	})
	if err != nil {
		return s.logError("ledger_bolt_record_rejection_failed", err, "token_id", rejection.TokenID)
	}
	return nil
}

func (s *Store) LoadRejections(_ context.Context) ([]entities.Rejection, error) {
	var items []entities.Rejection
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(rejectionsBucket).ForEach(func(_, value []byte) error {
			var record rejectionRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return err
			}
			items = append(items, entities.Rejection{
				TokenID:  record.TokenID,
				BallotID: record.BallotID,
				Cause:    entities.RejectCause(record.Cause),
				At:       record.At.UTC(),
			})
			return nil
		})
	})
	if err != nil {
		return nil, s.logError("ledger_bolt_load_rejections_failed", err)
	}
	return items, nil
}

func (s *Store) Reset(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, rejectionsBucket} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.logError("ledger_bolt_reset_failed", err)
	}
	return nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "civic-ballot/ballot-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("ledger bolt operation failed", fields...)
	return err
}

func positionKey(position int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(position))
	return key
}

type entryRecord struct {
	Position       int64           `json:"position"`
	Token          votetoken.Token `json:"token"`
	Active         bool            `json:"active"`
	InactiveReason string          `json:"inactive_reason,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
	PrevDigest     string          `json:"prev_digest"`
	Digest         string          `json:"digest"`
}

func entryRecordFromEntity(entry entities.LedgerEntry) entryRecord {
	return entryRecord{
		Position:       entry.Position,
		Token:          entry.Token,
		Active:         entry.Active,
		InactiveReason: entry.InactiveReason,
		RecordedAt:     entry.RecordedAt.UTC(),
		PrevDigest:     entry.PrevDigest,
		Digest:         entry.Digest,
	}
}

func (r entryRecord) toEntity() entities.LedgerEntry {
	token := r.Token
	token.IssuedAt = token.IssuedAt.UTC()
	token.ExpiresAt = token.ExpiresAt.UTC()
	return entities.LedgerEntry{
		Position:       r.Position,
		Token:          token,
		Active:         r.Active,
		InactiveReason: r.InactiveReason,
		RecordedAt:     r.RecordedAt.UTC(),
		PrevDigest:     r.PrevDigest,
		Digest:         r.Digest,
	}
}

type rejectionRecord struct {
	TokenID  string    `json:"token_id"`
	BallotID string    `json:"ballot_id"`
	Cause    string    `json:"cause"`
	At       time.Time `json:"at"`
}

var _ ports.LogStore = (*Store)(nil)
