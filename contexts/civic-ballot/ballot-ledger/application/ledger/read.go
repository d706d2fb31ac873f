package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
)

// Entry returns the entry recorded for a token id.
func (l *Ledger) Entry(_ context.Context, tokenID string) (entities.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	position, ok := l.byToken[strings.TrimSpace(tokenID)]
	if !ok {
		return entities.LedgerEntry{}, domainerrors.ErrNotFound
	}
	return l.entries[position], nil
}

func (l *Ledger) Query(_ context.Context, filter entities.Filter) (entities.QueryResult, error) {
	normalized, err := services.NormalizeFilter(filter)
	if err != nil {
		return entities.QueryResult{}, failures.Invalid("filter", err.Error())
	}

	l.mu.RLock()
	var matched []entities.LedgerEntry
	if positions, ok := l.indexes.Candidates(normalized); ok {
		for _, position := range positions {
			if entry := l.entries[position]; services.Matches(entry, normalized) {
				matched = append(matched, entry)
			}
		}
	} else {
		for _, entry := range l.entries {
			if services.Matches(entry, normalized) {
				matched = append(matched, entry)
			}
		}
	}
	l.mu.RUnlock()

	return services.Page(matched, normalized), nil
}

// GetTally aggregates the active entries of a ballot. Choices are resolved
// after the read lock is released, each call bounded by the resolve timeout.
func (l *Ledger) GetTally(ctx context.Context, ballotID string, resolver ports.ChoiceResolver) (entities.Tally, error) {
	ballotID = strings.TrimSpace(ballotID)
	if resolver == nil {
		return entities.Tally{}, failures.Invalid("choice_resolver", "is required")
	}
	entries, _, err := l.ballotSnapshot(ballotID)
	if err != nil {
		return entities.Tally{}, err
	}

	active := make([]entities.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Active {
			active = append(active, entry)
		}
	}
	choices := make([]string, len(active))
	for i, entry := range active {
		choice, err := l.resolveChoice(ctx, resolver, entry.Token.Ciphertext)
		if err != nil {
			l.logger.Error("choice resolution failed",
				"event", "ledger_tally_resolve_failed",
				"module", "civic-ballot/ballot-ledger",
				"layer", "application",
				"ballot_id", ballotID,
				"token_id", entry.Token.TokenID,
				"error", err.Error(),
			)
			return entities.Tally{}, failures.Processing("resolve choice", err)
		}
		choices[i] = choice
	}
	return services.BuildTally(ballotID, active, choices), nil
}

// ExportBundle snapshots the tally, the digest list of every entry of the
// ballot and the audit counters.
func (l *Ledger) ExportBundle(ctx context.Context, ballotID string, resolver ports.ChoiceResolver) (entities.Bundle, error) {
	ballotID = strings.TrimSpace(ballotID)
	tally, err := l.GetTally(ctx, ballotID, resolver)
	if err != nil {
		return entities.Bundle{}, err
	}
	entries, rejections, err := l.ballotSnapshot(ballotID)
	if err != nil {
		return entities.Bundle{}, err
	}

	digests := make([]entities.EntryDigest, 0, len(entries))
	positions := make([]int64, 0, len(entries))
	for _, entry := range entries {
		digests = append(digests, entities.EntryDigest{
			Position: entry.Position,
			TokenID:  entry.Token.TokenID,
			Digest:   entry.Digest,
			Active:   entry.Active,
		})
		positions = append(positions, entry.Position)
	}

	bundle := entities.Bundle{
		BallotID:    ballotID,
		GeneratedAt: l.now(),
		Tally:       tally,
		Verification: entities.Verification{
			EntryCount:  len(entries),
			Digests:     digests,
			Fingerprint: services.Fingerprint(digests),
		},
		Audit: entities.Audit{
			RejectCounts: rejections,
			Positions:    positions,
		},
	}
	l.logger.Info("ledger bundle exported",
		"event", "ledger_bundle_exported",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"ballot_id", ballotID,
		"entry_count", len(entries),
		"fingerprint", bundle.Verification.Fingerprint,
	)
	return bundle, nil
}

// ballotSnapshot copies the ballot's entries in position order together with
// its reject counters.
func (l *Ledger) ballotSnapshot(ballotID string) ([]entities.LedgerEntry, map[entities.RejectCause]int, error) {
	if ballotID == "" {
		return nil, nil, failures.Invalid("ballot_id", "is required")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	positions := l.indexes.Ballot(ballotID)
	if len(positions) == 0 {
		return nil, nil, domainerrors.ErrNotFound
	}
	entries := make([]entities.LedgerEntry, 0, len(positions))
	for _, position := range positions {
		entries = append(entries, l.entries[position])
	}
	counts := make(map[entities.RejectCause]int, len(l.rejections[ballotID]))
	for cause, count := range l.rejections[ballotID] {
		counts[cause] = count
	}
	return entries, counts, nil
}

func (l *Ledger) resolveChoice(ctx context.Context, resolver ports.ChoiceResolver, ciphertext string) (string, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, l.resolveTimeout)
	defer cancel()
	choice, err := resolver.ResolveChoice(resolveCtx, ciphertext)
	if err != nil {
		return "", err
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", errors.New("resolver returned an empty choice")
	}
	return choice, nil
}
