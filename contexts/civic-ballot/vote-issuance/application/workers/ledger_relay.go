package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/events"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const (
	RelayDelivered = "delivered"
	RelayRejected  = "rejected"
	RelayRetry     = "retry"
)

// LedgerRelay pulls issued tokens from the outbox and appends them to the
// ballot ledger in outbox order.
type LedgerRelay struct {
	Outbox    ports.Outbox
	Registry  ports.ReservationRegistry
	Ledger    ports.LedgerSink
	Clock     ports.Clock
	BatchSize int
	Observer  ports.Observer
	Logger    *slog.Logger
}

type RelayReport struct {
	Delivered int
	Rejected  int
}

// RunOnce relays one bounded batch. A token the ledger already holds counts as
// delivered. A token the ledger refuses for a terminal reason (expired, bad
// signature, malformed, or a slot already filled by another token) is settled
// as rejected and its slot released. Any
// other failure stops the batch so the next cycle retries from the same row.
func (r LedgerRelay) RunOnce(ctx context.Context) (RelayReport, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("issuance outbox list failed",
			"event", "issuance_relay_list_failed",
			"module", "civic-ballot/vote-issuance",
			"layer", "worker",
			"error", err.Error(),
		)
		return RelayReport{}, err
	}
	if len(pending) == 0 {
		logger.Debug("issuance relay found no pending rows",
			"event", "issuance_relay_noop",
			"module", "civic-ballot/vote-issuance",
			"layer", "worker",
			"batch_size", limit,
		)
		return RelayReport{}, nil
	}

	var report RelayReport
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		token, err := decodeToken(row)
		if err != nil {
			logger.Error("issuance outbox decode failed",
				"event", "issuance_relay_decode_failed",
				"module", "civic-ballot/vote-issuance",
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			if err := r.Outbox.SettleOutbox(ctx, row.ID, outbox.StatusRejected, "undecodable payload", r.now()); err != nil {
				return report, err
			}
			report.Rejected++
			r.observe(RelayRejected)
			continue
		}

		appendErr := r.Ledger.Append(ctx, token)
		switch kind := failures.KindOf(appendErr); {
		case appendErr == nil, kind == failures.KindDuplicateVote && heldByToken(appendErr, token.TokenID):
			if err := r.Registry.Commit(ctx, token.BallotID, token.AnonymizedIdentity, token.TokenID); err != nil {
				logger.Warn("reservation commit failed",
					"event", "issuance_relay_commit_failed",
					"module", "civic-ballot/vote-issuance",
					"layer", "worker",
					"token_id", token.TokenID,
					"error", err.Error(),
				)
			}
			if err := r.Outbox.SettleOutbox(ctx, row.ID, outbox.StatusDelivered, "", r.now()); err != nil {
				return report, err
			}
			report.Delivered++
			r.observe(RelayDelivered)

		case kind == failures.KindDuplicateVote, kind == failures.KindExpiredBallot, kind == failures.KindSignature, kind == failures.KindInvalidPayload:
			logger.Warn("ledger refused vote token",
				"event", "issuance_relay_token_refused",
				"module", "civic-ballot/vote-issuance",
				"layer", "worker",
				"token_id", token.TokenID,
				"ballot_id", token.BallotID,
				"reason", string(kind),
			)
			if err := r.Registry.Release(ctx, token.BallotID, token.AnonymizedIdentity, token.TokenID); err != nil {
				return report, err
			}
			if err := r.Outbox.SettleOutbox(ctx, row.ID, outbox.StatusRejected, string(kind), r.now()); err != nil {
				return report, err
			}
			report.Rejected++
			r.observe(RelayRejected)

		default:
			logger.Error("ledger append failed",
				"event", "issuance_relay_append_failed",
				"module", "civic-ballot/vote-issuance",
				"layer", "worker",
				"token_id", token.TokenID,
				"error", appendErr.Error(),
			)
			if err := r.Outbox.MarkOutboxAttempt(ctx, row.ID, appendErr.Error()); err != nil {
				logger.Warn("issuance outbox attempt not recorded",
					"event", "issuance_outbox_attempt_mark_failed",
					"module", "civic-ballot/vote-issuance",
					"layer", "worker",
					"outbox_id", row.ID,
					"error", err.Error(),
				)
			}
			r.observe(RelayRetry)
			return report, appendErr
		}
	}

	logger.Info("issuance relay cycle completed",
		"event", "issuance_relay_completed",
		"module", "civic-ballot/vote-issuance",
		"layer", "worker",
		"delivered_count", report.Delivered,
		"rejected_count", report.Rejected,
	)
	return report, nil
}

// heldByToken reports whether a duplicate refusal names the token itself,
// meaning an earlier cycle already appended it.
func heldByToken(err error, tokenID string) bool {
	var duplicate *failures.DuplicateError
	return errors.As(err, &duplicate) && duplicate.ExistingID == tokenID
}

func decodeToken(row outbox.Message) (votetoken.Token, error) {
	var envelope events.Envelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return votetoken.Token{}, err
	}
	if envelope.EventType != events.TypeVoteTokenIssued {
		return votetoken.Token{}, failures.Invalid("event_type", envelope.EventType)
	}
	var token votetoken.Token
	if err := json.Unmarshal(envelope.Payload, &token); err != nil {
		return votetoken.Token{}, err
	}
	return token, nil
}

func (r LedgerRelay) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}

func (r LedgerRelay) observe(outcome string) {
	if r.Observer != nil {
		r.Observer.ObserveRelay(outcome)
	}
}
