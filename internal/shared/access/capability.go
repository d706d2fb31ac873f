// Package access models capabilities: what a caller may do, derived from its
// resolved tier rather than from a role string the caller supplies.
package access

import (
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type Permission string

const (
	PermissionLedgerAdmin   Permission = "ledger:admin"
	PermissionPollAnalytics Permission = "poll:analytics"
	PermissionPollExport    Permission = "poll:export"
)

type Capability struct {
	Subject     string
	Tier        tiers.Level
	Permissions map[Permission]struct{}
}

func NewCapability(subject string, tier tiers.Level, permissions ...Permission) Capability {
	granted := make(map[Permission]struct{}, len(permissions))
	for _, permission := range permissions {
		granted[permission] = struct{}{}
	}
	return Capability{
		Subject:     strings.TrimSpace(subject),
		Tier:        tier,
		Permissions: granted,
	}
}

// Grants maps each permission to the lowest tier that holds it.
type Grants map[Permission]tiers.Level

func DefaultGrants() Grants {
	return Grants{
		PermissionPollAnalytics: tiers.LevelModerator,
		PermissionPollExport:    tiers.LevelModerator,
		PermissionLedgerAdmin:   tiers.LevelCommander,
	}
}

// WithPollMinimum returns a copy in which both poll permissions start at
// minimum. An empty minimum leaves the grants unchanged.
func (g Grants) WithPollMinimum(minimum tiers.Level) Grants {
	out := make(Grants, len(g)+2)
	for permission, level := range g.orDefault() {
		out[permission] = level
	}
	if minimum != "" {
		out[PermissionPollAnalytics] = minimum
		out[PermissionPollExport] = minimum
	}
	return out
}

// For builds the capability a caller at tier holds. Nil grants fall back to
// DefaultGrants.
func (g Grants) For(subject string, tier tiers.Level) Capability {
	var permissions []Permission
	for permission, minimum := range g.orDefault() {
		if tier.AtLeast(minimum) {
			permissions = append(permissions, permission)
		}
	}
	return NewCapability(subject, tier, permissions...)
}

func (g Grants) orDefault() Grants {
	if len(g) == 0 {
		return DefaultGrants()
	}
	return g
}

// ForTier grants the default permissions for the tier.
func ForTier(subject string, tier tiers.Level) Capability {
	return DefaultGrants().For(subject, tier)
}

func (c Capability) Has(permission Permission) bool {
	_, ok := c.Permissions[permission]
	return ok
}

func (c Capability) RequireTier(minimum tiers.Level) error {
	if !c.Tier.AtLeast(minimum) {
		return &failures.AccessDeniedError{Subject: c.Subject, Required: "tier " + string(minimum)}
	}
	return nil
}

func (c Capability) Require(permission Permission) error {
	if !c.Has(permission) {
		return &failures.AccessDeniedError{Subject: c.Subject, Required: string(permission)}
	}
	return nil
}
