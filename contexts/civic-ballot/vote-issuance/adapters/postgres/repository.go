package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *Repository) Claim(ctx context.Context, candidate entities.Reservation, now time.Time) (entities.Reservation, bool, error) {
	ballotID := strings.TrimSpace(candidate.BallotID)
	anonymized := strings.TrimSpace(candidate.AnonymizedIdentity)
	row := reservationModelFromEntity(candidate)
	row.BallotID = ballotID
	row.AnonymizedIdentity = anonymized
	row.Committed = false

	var existing reservationModel
	blocked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ballot_id = ? AND anonymized_identity = ?", ballotID, anonymized).
			First(&existing).
			Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&row).Error
		case err != nil:
			return err
		}
		if existing.toEntity().Blocks(now) {
			blocked = true
			return nil
		}
		return tx.Model(&reservationModel{}).
			Where("ballot_id = ? AND anonymized_identity = ?", ballotID, anonymized).
			Updates(map[string]any{
				"token_id":   row.TokenID,
				"expires_at": row.ExpiresAt,
				"committed":  false,
				"created_at": row.CreatedAt,
			}).
			Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent claim inserted the slot first.
			var winner reservationModel
			if readErr := r.db.WithContext(ctx).
				Where("ballot_id = ? AND anonymized_identity = ?", ballotID, anonymized).
				First(&winner).
				Error; readErr == nil {
				return winner.toEntity(), false, nil
			}
		}
		return entities.Reservation{}, false, r.logError("issuance_repo_claim_failed", err,
			"ballot_id", ballotID,
			"token_id", row.TokenID,
		)
	}
	if blocked {
		return existing.toEntity(), false, nil
	}
	return row.toEntity(), true, nil
}

func (r *Repository) Commit(ctx context.Context, ballotID string, anonymizedIdentity string, tokenID string) error {
	result := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("ballot_id = ? AND anonymized_identity = ? AND token_id = ?",
			strings.TrimSpace(ballotID), strings.TrimSpace(anonymizedIdentity), strings.TrimSpace(tokenID)).
		Update("committed", true)
	if result.Error != nil {
		return r.logError("issuance_repo_commit_failed", result.Error,
			"ballot_id", strings.TrimSpace(ballotID),
			"token_id", strings.TrimSpace(tokenID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrReservationNotFound
	}
	return nil
}

func (r *Repository) Release(ctx context.Context, ballotID string, anonymizedIdentity string, tokenID string) error {
	if err := r.db.WithContext(ctx).
		Where("ballot_id = ? AND anonymized_identity = ? AND token_id = ? AND committed = ?",
			strings.TrimSpace(ballotID), strings.TrimSpace(anonymizedIdentity), strings.TrimSpace(tokenID), false).
		Delete(&reservationModel{}).
		Error; err != nil {
		return r.logError("issuance_repo_release_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
			"token_id", strings.TrimSpace(tokenID),
		)
	}
	return nil
}

func (r *Repository) PruneExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	expired := r.db.Model(&reservationModel{}).
		Select("token_id").
		Where("committed = ? AND expires_at < ?", false, now.UTC()).
		Limit(limit)
	result := r.db.WithContext(ctx).
		Where("token_id IN (?)", expired).
		Delete(&reservationModel{})
	if result.Error != nil {
		return 0, r.logError("issuance_repo_prune_failed", result.Error, "limit", limit)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, message outbox.Message) error {
	row := outboxModelFromMessage(message)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.Status = string(outbox.StatusPending)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "outbox_id"}}, DoNothing: true}).
		Create(&row).
		Error; err != nil {
		return r.logError("issuance_repo_append_outbox_failed", err, "outbox_id", row.ID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(outbox.StatusPending)).
		Order("created_at ASC").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("issuance_repo_list_outbox_failed", err, "limit", limit)
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toMessage())
	}
	return items, nil
}

func (r *Repository) MarkOutboxAttempt(ctx context.Context, id string, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(id)).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		})
	if result.Error != nil {
		return r.logError("issuance_repo_mark_outbox_failed", result.Error, "outbox_id", strings.TrimSpace(id))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}

func (r *Repository) SettleOutbox(ctx context.Context, id string, status outbox.Status, reason string, at time.Time) error {
	settled := at.UTC()
	if err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ? AND status = ?", strings.TrimSpace(id), string(outbox.StatusPending)).
		Updates(map[string]any{
			"status":     string(status),
			"last_error": reason,
			"settled_at": &settled,
		}).Error; err != nil {
		return r.logError("issuance_repo_settle_outbox_failed", err,
			"outbox_id", strings.TrimSpace(id),
			"status", string(status),
		)
	}
	return nil
}

func (r *Repository) Now() time.Time {
	return time.Now().UTC()
}

func (r *Repository) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "civic-ballot/vote-issuance",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("issuance repository operation failed", fields...)
	return err
}

type reservationModel struct {
	BallotID           string    `gorm:"column:ballot_id;primaryKey"`
	AnonymizedIdentity string    `gorm:"column:anonymized_identity;primaryKey"`
	TokenID            string    `gorm:"column:token_id"`
	ExpiresAt          time.Time `gorm:"column:expires_at"`
	Committed          bool      `gorm:"column:committed"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (reservationModel) TableName() string {
	return "vote_reservations"
}

func reservationModelFromEntity(item entities.Reservation) reservationModel {
	return reservationModel{
		BallotID:           item.BallotID,
		AnonymizedIdentity: item.AnonymizedIdentity,
		TokenID:            strings.TrimSpace(item.TokenID),
		ExpiresAt:          item.ExpiresAt.UTC(),
		Committed:          item.Committed,
		CreatedAt:          item.CreatedAt.UTC(),
	}
}

func (m reservationModel) toEntity() entities.Reservation {
	return entities.Reservation{
		BallotID:           m.BallotID,
		AnonymizedIdentity: m.AnonymizedIdentity,
		TokenID:            m.TokenID,
		ExpiresAt:          m.ExpiresAt.UTC(),
		Committed:          m.Committed,
		CreatedAt:          m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	ID        string     `gorm:"column:outbox_id;primaryKey"`
	Seq       int64      `gorm:"column:seq;autoIncrement;->"`
	EventType string     `gorm:"column:event_type"`
	Payload   []byte     `gorm:"column:payload"`
	Status    string     `gorm:"column:status"`
	Attempts  int        `gorm:"column:attempts"`
	LastError string     `gorm:"column:last_error"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	SettledAt *time.Time `gorm:"column:settled_at"`
}

func (outboxModel) TableName() string {
	return "vote_issuance_outbox"
}

func outboxModelFromMessage(message outbox.Message) outboxModel {
	return outboxModel{
		ID:        strings.TrimSpace(message.ID),
		EventType: message.EventType,
		Payload:   message.Payload,
		Status:    string(message.Status),
		Attempts:  message.Attempts,
		LastError: message.LastError,
		CreatedAt: message.CreatedAt.UTC(),
		SettledAt: message.SettledAt,
	}
}

func (m outboxModel) toMessage() outbox.Message {
	return outbox.Message{
		ID:        m.ID,
		EventType: m.EventType,
		Payload:   m.Payload,
		Status:    outbox.Status(m.Status),
		Attempts:  m.Attempts,
		LastError: m.LastError,
		CreatedAt: m.CreatedAt.UTC(),
		SettledAt: m.SettledAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ReservationRegistry = (*Repository)(nil)
var _ ports.Outbox = (*Repository)(nil)
var _ ports.Clock = (*Repository)(nil)
var _ ports.IDGenerator = (*Repository)(nil)
