package workers

import (
	"context"
	"log/slog"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
)

// ReservationSweeper drops uncommitted reservations whose tokens have expired.
// Expiry is also evaluated lazily at claim time, so sweeping only reclaims
// memory; running it twice, or alongside new claims, is safe.
type ReservationSweeper struct {
	Registry  ports.ReservationRegistry
	Clock     ports.Clock
	BatchSize int
	MaxRounds int
	Observer  ports.Observer
	Logger    *slog.Logger
}

func (s ReservationSweeper) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(s.Logger)
	batch := s.BatchSize
	if batch <= 0 {
		batch = 500
	}
	rounds := s.MaxRounds
	if rounds <= 0 {
		rounds = 20
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	total := 0
	for round := 0; round < rounds; round++ {
		pruned, err := s.Registry.PruneExpired(ctx, now, batch)
		if err != nil {
			logger.Error("reservation sweep failed",
				"event", "issuance_sweep_failed",
				"module", "civic-ballot/vote-issuance",
				"layer", "worker",
				"pruned_count", total,
				"error", err.Error(),
			)
			return total, err
		}
		total += pruned
		if pruned < batch {
			break
		}
	}

	if s.Observer != nil {
		s.Observer.ObserveSweep(total)
	}
	if total > 0 {
		logger.Info("expired reservations swept",
			"event", "issuance_sweep_completed",
			"module", "civic-ballot/vote-issuance",
			"layer", "worker",
			"pruned_count", total,
		)
	}
	return total, nil
}
