package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"

	"gorm.io/gorm"
)

const SourceName = "civic-registry-db"

// Repository reads credential history and operator tier overrides from the
// civic registry tables.
type Repository struct {
	db     *gorm.DB
	name   string
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		name:   SourceName,
		logger: logger,
	}
}

func (r *Repository) Name() string {
	return r.name
}

func (r *Repository) Fetch(ctx context.Context, identity string) ([]entities.CredentialEntry, error) {
	var rows []credentialModel
	if err := r.db.WithContext(ctx).
		Where("identity_digest = ? AND revoked_at IS NULL", strings.TrimSpace(identity)).
		Order("issued_at ASC, credential_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("credential_repo_fetch_failed", err)
	}
	items := make([]entities.CredentialEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.CredentialEntry{
			CredentialID: row.CredentialID,
			Source:       r.name,
			Category:     row.Category,
			BasePoints:   row.BasePoints,
			IssuedAt:     row.IssuedAt.UTC(),
		})
	}
	return items, nil
}

// LookupTier returns the raw override value. Validation is the caller's job.
func (r *Repository) LookupTier(ctx context.Context, identity string) (string, bool, error) {
	var row tierOverrideModel
	err := r.db.WithContext(ctx).
		Where("identity_digest = ?", strings.TrimSpace(identity)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, r.logError("credential_repo_lookup_tier_failed", err)
	}
	return row.Tier, true, nil
}

func (r *Repository) Now() time.Time {
	return time.Now().UTC()
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "civic-trust/reputation-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("credential repository operation failed", fields...)
	return err
}

type credentialModel struct {
	CredentialID   string     `gorm:"column:credential_id;primaryKey"`
	IdentityDigest string     `gorm:"column:identity_digest"`
	Category       string     `gorm:"column:category"`
	BasePoints     float64    `gorm:"column:base_points"`
	IssuedAt       time.Time  `gorm:"column:issued_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
}

func (credentialModel) TableName() string {
	return "civic_credentials"
}

type tierOverrideModel struct {
	IdentityDigest string    `gorm:"column:identity_digest;primaryKey"`
	Tier           string    `gorm:"column:tier"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (tierOverrideModel) TableName() string {
	return "civic_tier_overrides"
}

var (
	_ ports.CredentialSource = (*Repository)(nil)
	_ ports.TierLookup       = (*Repository)(nil)
	_ ports.Clock            = (*Repository)(nil)
)
