package ledger

import (
	"context"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const outcomeRecorded = "recorded"

// Record validates a token and appends it at the next position. Rejections
// are typed: invalid_payload, invalid_signature, expired_ballot and
// duplicate_vote carrying the token id already on the ledger.
func (l *Ledger) Record(ctx context.Context, token votetoken.Token) (entities.LedgerEntry, error) {
	token.TokenID = strings.TrimSpace(token.TokenID)
	token.BallotID = strings.TrimSpace(token.BallotID)
	token.IssuedAt = votetoken.NormalizeTime(token.IssuedAt)
	token.ExpiresAt = votetoken.NormalizeTime(token.ExpiresAt)

	if err := token.CheckBounds(); err != nil {
		return entities.LedgerEntry{}, l.reject(ctx, token, entities.CauseInvalidPayload, err)
	}
	if err := votetoken.VerifyToken(l.verifier, token); err != nil {
		return entities.LedgerEntry{}, l.reject(ctx, token, entities.CauseInvalidSignature, err)
	}
	now := l.now()
	if token.Expired(now) {
		return entities.LedgerEntry{}, l.reject(ctx, token, entities.CauseExpired,
			&failures.ExpiredError{Subject: "token " + token.TokenID})
	}

	l.mu.Lock()
	if position, ok := l.byToken[token.TokenID]; ok {
		existing := l.entries[position].Token.TokenID
		l.mu.Unlock()
		return entities.LedgerEntry{}, l.reject(ctx, token, entities.CauseDuplicateToken,
			&failures.DuplicateError{ExistingID: existing})
	}
	if position, ok := l.bySlot[slotKey(token)]; ok {
		existing := l.entries[position].Token.TokenID
		l.mu.Unlock()
		return entities.LedgerEntry{}, l.reject(ctx, token, entities.CauseDuplicateIdentity,
			&failures.DuplicateError{ExistingID: existing})
	}

	position := int64(len(l.entries))
	entry := entities.LedgerEntry{
		Position:   position,
		Token:      token,
		Active:     true,
		RecordedAt: now,
		PrevDigest: l.head,
		Digest:     services.ChainDigest(l.head, position, token),
	}
	if err := l.store.Append(ctx, entry); err != nil {
		l.mu.Unlock()
		l.logger.Error("ledger append failed",
			"event", "ledger_append_failed",
			"module", "civic-ballot/ballot-ledger",
			"layer", "application",
			"token_id", token.TokenID,
			"position", position,
			"error", err.Error(),
		)
		l.observeRecord("processing_error")
		return entities.LedgerEntry{}, failures.Processing("append ledger entry", err)
	}
	l.index(entry)
	l.observeEntries()
	l.mu.Unlock()

	l.observeRecord(outcomeRecorded)
	l.logger.Info("vote token recorded",
		"event", "ledger_token_recorded",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"token_id", token.TokenID,
		"ballot_id", token.BallotID,
		"position", position,
		"weight", token.Weight,
	)
	return entry, nil
}

// Append satisfies the issuance ledger sink.
func (l *Ledger) Append(ctx context.Context, token votetoken.Token) error {
	_, err := l.Record(ctx, token)
	return err
}

func (l *Ledger) reject(ctx context.Context, token votetoken.Token, cause entities.RejectCause, err error) error {
	rejection := entities.Rejection{
		TokenID:  token.TokenID,
		BallotID: token.BallotID,
		Cause:    cause,
		At:       l.now(),
	}

	l.mu.Lock()
	if storeErr := l.store.RecordRejection(ctx, rejection); storeErr != nil {
		l.logger.Warn("ledger rejection not persisted",
			"event", "ledger_rejection_persist_failed",
			"module", "civic-ballot/ballot-ledger",
			"layer", "application",
			"token_id", token.TokenID,
			"error", storeErr.Error(),
		)
	}
	l.countRejection(rejection)
	l.mu.Unlock()

	l.observeRecord(string(cause))
	l.logger.Warn("vote token rejected",
		"event", "ledger_token_rejected",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"token_id", token.TokenID,
		"ballot_id", token.BallotID,
		"cause", string(cause),
		"error", err.Error(),
	)
	return err
}

func (l *Ledger) observeRecord(outcome string) {
	if l.observer != nil {
		l.observer.ObserveRecord(outcome)
	}
}
