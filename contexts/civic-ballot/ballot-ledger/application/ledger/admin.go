package ledger

import (
	"context"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

// Expire marks a recorded token inactive. The position stays taken and the
// entry stays in the log. Expiring an inactive entry returns it unchanged.
func (l *Ledger) Expire(ctx context.Context, capability access.Capability, tokenID string, reason string) (entities.LedgerEntry, error) {
	tokenID = strings.TrimSpace(tokenID)
	reason = strings.TrimSpace(reason)
	if err := l.authorize(capability, "expire", "token_id", tokenID); err != nil {
		return entities.LedgerEntry{}, err
	}
	if reason == "" {
		reason = "manual"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	position, ok := l.byToken[tokenID]
	if !ok {
		return entities.LedgerEntry{}, domainerrors.ErrNotFound
	}
	entry := l.entries[position]
	if !entry.Active {
		return entry, nil
	}
	if err := l.store.SetActive(ctx, position, false, reason); err != nil {
		return entities.LedgerEntry{}, failures.Processing("expire ledger entry", err)
	}
	entry.Active = false
	entry.InactiveReason = reason
	l.entries[position] = entry
	delete(l.bySlot, slotKey(entry.Token))

	l.logger.Warn("ledger entry expired by admin",
		"event", "ledger_admin_expire",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"subject", capability.Subject,
		"token_id", tokenID,
		"ballot_id", entry.Token.BallotID,
		"position", position,
		"reason", reason,
	)
	return entry, nil
}

// Clear wipes the log and every index, positions included. It exists for
// non-production resets.
func (l *Ledger) Clear(ctx context.Context, capability access.Capability) error {
	if err := l.authorize(capability, "clear"); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	dropped := len(l.entries)
	if err := l.store.Reset(ctx); err != nil {
		return failures.Processing("clear ledger", err)
	}
	l.resetState()
	l.observeEntries()

	l.logger.Warn("ledger cleared by admin",
		"event", "ledger_admin_clear",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"subject", capability.Subject,
		"dropped_count", dropped,
	)
	return nil
}

func (l *Ledger) authorize(capability access.Capability, action string, attrs ...any) error {
	err := capability.Require(access.PermissionLedgerAdmin)
	if l.observer != nil {
		l.observer.ObserveAdmin(action, err == nil)
	}
	if err != nil {
		fields := []any{
			"event", "ledger_admin_denied",
			"module", "civic-ballot/ballot-ledger",
			"layer", "application",
			"action", action,
			"subject", capability.Subject,
			"tier", string(capability.Tier),
		}
		l.logger.Warn("ledger admin action denied", append(fields, attrs...)...)
	}
	return err
}
