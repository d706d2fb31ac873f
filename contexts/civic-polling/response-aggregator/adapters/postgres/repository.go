package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"

	"github.com/google/uuid"
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

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll) error {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return err
	}
	row := pollModel{
		PollID:      strings.TrimSpace(poll.PollID),
		Title:       poll.Title,
		Options:     options,
		MultiSelect: poll.MultiSelect,
		Baseline:    poll.Baseline,
		ClosesAt:    normalizeOptionalTime(poll.ClosesAt),
		CreatedBy:   poll.CreatedBy,
		CreatedAt:   poll.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("poll_repo_create_failed", err, "poll_id", row.PollID)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrNotFound
		}
		return entities.Poll{}, r.logError("poll_repo_get_failed", err, "poll_id", pollID)
	}
	return row.toEntity()
}

func (r *Repository) AppendResponse(ctx context.Context, response entities.PollResponse) error {
	selected, err := json.Marshal(response.Selected)
	if err != nil {
		return err
	}
	row := responseModel{
		ResponseID:    response.ResponseID,
		PollID:        response.PollID,
		ResponderHash: response.ResponderHash,
		Tier:          string(response.Tier),
		Weight:        response.Weight,
		Selected:      selected,
		Comment:       response.Comment,
		SubmittedAt:   response.SubmittedAt.UTC(),
		KeyID:         response.KeyID,
		Signature:     response.Signature,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("poll_repo_append_response_failed", err,
			"poll_id", response.PollID,
			"response_id", response.ResponseID,
		)
	}
	return nil
}

func (r *Repository) FindResponse(ctx context.Context, pollID string, responderHash string) (entities.PollResponse, error) {
	var row responseModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND responder_hash = ?", strings.TrimSpace(pollID), strings.TrimSpace(responderHash)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PollResponse{}, domainerrors.ErrNotFound
		}
		return entities.PollResponse{}, r.logError("poll_repo_find_response_failed", err, "poll_id", pollID)
	}
	return row.toEntity()
}

func (r *Repository) ListResponses(ctx context.Context, pollID string) ([]entities.PollResponse, error) {
	var rows []responseModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("submitted_at ASC, response_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_responses_failed", err, "poll_id", pollID)
	}
	items := make([]entities.PollResponse, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("poll_repo_decode_response_failed", err, "response_id", row.ResponseID)
		}
		items = append(items, item)
	}
	return items, nil
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
		"module", "civic-polling/response-aggregator",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

type pollModel struct {
	PollID      string     `gorm:"column:poll_id;primaryKey"`
	Title       string     `gorm:"column:title"`
	Options     []byte     `gorm:"column:options"`
	MultiSelect bool       `gorm:"column:multi_select"`
	Baseline    int        `gorm:"column:baseline"`
	ClosesAt    *time.Time `gorm:"column:closes_at"`
	CreatedBy   string     `gorm:"column:created_by"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func (m pollModel) toEntity() (entities.Poll, error) {
	var options []string
	if err := json.Unmarshal(m.Options, &options); err != nil {
		return entities.Poll{}, err
	}
	poll := entities.Poll{
		PollID:      m.PollID,
		Title:       m.Title,
		Options:     options,
		MultiSelect: m.MultiSelect,
		Baseline:    m.Baseline,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.ClosesAt != nil {
		poll.ClosesAt = m.ClosesAt.UTC()
	}
	return poll, nil
}

type responseModel struct {
	ResponseID    string    `gorm:"column:response_id;primaryKey"`
	PollID        string    `gorm:"column:poll_id"`
	ResponderHash string    `gorm:"column:responder_hash"`
	Tier          string    `gorm:"column:tier"`
	Weight        float64   `gorm:"column:weight"`
	Selected      []byte    `gorm:"column:selected"`
	Comment       string    `gorm:"column:comment"`
	SubmittedAt   time.Time `gorm:"column:submitted_at"`
	KeyID         string    `gorm:"column:key_id"`
	Signature     string    `gorm:"column:signature"`
}

func (responseModel) TableName() string {
	return "poll_responses"
}

func (m responseModel) toEntity() (entities.PollResponse, error) {
	var selected []string
	if err := json.Unmarshal(m.Selected, &selected); err != nil {
		return entities.PollResponse{}, err
	}
	return entities.PollResponse{
		ResponseID:    m.ResponseID,
		PollID:        m.PollID,
		ResponderHash: m.ResponderHash,
		Tier:          tiers.Level(m.Tier),
		Weight:        m.Weight,
		Selected:      selected,
		Comment:       m.Comment,
		SubmittedAt:   m.SubmittedAt.UTC(),
		KeyID:         m.KeyID,
		Signature:     m.Signature,
	}, nil
}

func normalizeOptionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ ports.PollRepository = (*Repository)(nil)
	_ ports.Clock          = (*Repository)(nil)
	_ ports.IDGenerator    = (*Repository)(nil)
)
