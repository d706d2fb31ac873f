package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Append(ctx context.Context, entry entities.LedgerEntry) error {
	row := entryModelFromEntity(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ledger_repo_append_failed", err,
			"position", entry.Position,
			"token_id", entry.Token.TokenID,
		)
	}
	return nil
}

func (r *Repository) LoadAll(ctx context.Context) ([]entities.LedgerEntry, error) {
	var rows []entryModel
	if err := r.db.WithContext(ctx).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_load_failed", err)
	}
	items := make([]entities.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SetActive(ctx context.Context, position int64, active bool, reason string) error {
	if active {
		reason = ""
	}
	result := r.db.WithContext(ctx).
		Model(&entryModel{}).
		Where("position = ?", position).
		Updates(map[string]any{
			"active":          active,
			"inactive_reason": reason,
		})
	if result.Error != nil {
		return r.logError("ledger_repo_set_active_failed", result.Error, "position", position)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) RecordRejection(ctx context.Context, rejection entities.Rejection) error {
	row := rejectionModel{
		TokenID:  rejection.TokenID,
		BallotID: rejection.BallotID,
		Cause:    string(rejection.Cause),
		At:       rejection.At.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ledger_repo_record_rejection_failed", err, "token_id", rejection.TokenID)
	}
	return nil
}

func (r *Repository) LoadRejections(ctx context.Context) ([]entities.Rejection, error) {
	var rows []rejectionModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_load_rejections_failed", err)
	}
	items := make([]entities.Rejection, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Rejection{
			TokenID:  row.TokenID,
			BallotID: row.BallotID,
			Cause:    entities.RejectCause(row.Cause),
			At:       row.At.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) Reset(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entryModel{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rejectionModel{}).Error
	})
	if err != nil {
		return r.logError("ledger_repo_reset_failed", err)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "civic-ballot/ballot-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

type entryModel struct {
	Position           int64     `gorm:"column:position;primaryKey;autoIncrement:false"`
	TokenID            string    `gorm:"column:token_id"`
	BallotID           string    `gorm:"column:ballot_id"`
	AnonymizedIdentity string    `gorm:"column:anonymized_identity"`
	Ciphertext         string    `gorm:"column:ciphertext"`
	Weight             float64   `gorm:"column:weight"`
	IssuedAt           time.Time `gorm:"column:issued_at"`
	ExpiresAt          time.Time `gorm:"column:expires_at"`
	KeyID              string    `gorm:"column:key_id"`
	Signature          string    `gorm:"column:signature"`
	Active             bool      `gorm:"column:active"`
	InactiveReason     string    `gorm:"column:inactive_reason"`
	RecordedAt         time.Time `gorm:"column:recorded_at"`
	PrevDigest         string    `gorm:"column:prev_digest"`
	Digest             string    `gorm:"column:digest"`
}

func (entryModel) TableName() string {
	return "ballot_ledger_entries"
}

func entryModelFromEntity(entry entities.LedgerEntry) entryModel {
	return entryModel{
		Position:           entry.Position,
		TokenID:            entry.Token.TokenID,
		BallotID:           entry.Token.BallotID,
		AnonymizedIdentity: entry.Token.AnonymizedIdentity,
		Ciphertext:         entry.Token.Ciphertext,
		Weight:             entry.Token.Weight,
		IssuedAt:           entry.Token.IssuedAt.UTC(),
		ExpiresAt:          entry.Token.ExpiresAt.UTC(),
		KeyID:              entry.Token.KeyID,
		Signature:          entry.Token.Signature,
		Active:             entry.Active,
		InactiveReason:     entry.InactiveReason,
		RecordedAt:         entry.RecordedAt.UTC(),
		PrevDigest:         entry.PrevDigest,
		Digest:             entry.Digest,
	}
}

func (m entryModel) toEntity() entities.LedgerEntry {
	return entities.LedgerEntry{
		Position: m.Position,
		Token: votetoken.Token{
			TokenID:            m.TokenID,
			BallotID:           m.BallotID,
			AnonymizedIdentity: m.AnonymizedIdentity,
			Ciphertext:         m.Ciphertext,
			Weight:             m.Weight,
			IssuedAt:           votetoken.NormalizeTime(m.IssuedAt),
			ExpiresAt:          votetoken.NormalizeTime(m.ExpiresAt),
			KeyID:              m.KeyID,
			Signature:          m.Signature,
		},
		Active:         m.Active,
		InactiveReason: m.InactiveReason,
		RecordedAt:     m.RecordedAt.UTC(),
		PrevDigest:     m.PrevDigest,
		Digest:         m.Digest,
	}
}

type rejectionModel struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TokenID  string    `gorm:"column:token_id"`
	BallotID string    `gorm:"column:ballot_id"`
	Cause    string    `gorm:"column:cause"`
	At       time.Time `gorm:"column:rejected_at"`
}

func (rejectionModel) TableName() string {
	return "ballot_ledger_rejections"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.LogStore = (*Repository)(nil)
