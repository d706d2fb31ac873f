package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"

	"golang.org/x/sync/errgroup"
)

const (
	defaultSourceTimeout = 2 * time.Second
	defaultLatencyBudget = 250 * time.Millisecond
)

// ScoreUseCase computes a decayed reputation score from every configured source.
type ScoreUseCase struct {
	Sources       []ports.CredentialSource
	Policy        services.DecayPolicy
	Table         tiers.Table
	Clock         ports.Clock
	SourceTimeout time.Duration
	LatencyBudget time.Duration
	Observer      ports.Observer
	Logger        *slog.Logger
}

type sourceResult struct {
	entries []entities.CredentialEntry
	err     error
}

// Compute gathers credentials concurrently and scores them at the clock's
// current instant. Source failures are recorded in SkippedSources and never
// abort the computation.
func (uc ScoreUseCase) Compute(ctx context.Context, identity string) (entities.ReputationScore, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return entities.ReputationScore{}, failures.Invalid("identity", "is required")
	}
	if len(uc.Sources) == 0 {
		return entities.ReputationScore{}, domainerrors.ErrNoSources
	}

	started := time.Now()
	now := uc.now()
	results := uc.gather(ctx, identity)
	if err := ctx.Err(); err != nil {
		return entities.ReputationScore{}, failures.Processing("gather credentials", err)
	}

	var (
		entries []entities.CredentialEntry
		skipped []string
	)
	for i, result := range results {
		name := uc.Sources[i].Name()
		if result.err != nil {
			skipped = append(skipped, name)
			logger.Warn("credential source skipped",
				"event", "reputation_source_skipped",
				"module", "civic-trust/reputation-engine",
				"layer", "application",
				"source", name,
				"error", result.err.Error(),
			)
			continue
		}
		for _, entry := range result.entries {
			if entry.Source == "" {
				entry.Source = name
			}
			entries = append(entries, entry)
		}
	}

	table := uc.table()
	total, base, contributions := uc.Policy.Apply(entries, now)
	score := entities.ReputationScore{
		Identity:       identity,
		Score:          total,
		BaseScore:      base,
		Tier:           table.LevelFor(total),
		TierProgress:   table.Progress(total),
		TableVersion:   table.Version(),
		Contributions:  contributions,
		SkippedSources: skipped,
		ComputedAt:     now,
		Elapsed:        time.Since(started),
	}

	if uc.Observer != nil {
		uc.Observer.ObserveScoreComputed(score.Elapsed, len(skipped))
	}
	if score.Elapsed > uc.latencyBudget() {
		logger.Warn("reputation score computation exceeded latency budget",
			"event", "reputation_score_slow",
			"module", "civic-trust/reputation-engine",
			"layer", "application",
			"elapsed_ms", score.Elapsed.Milliseconds(),
			"budget_ms", uc.latencyBudget().Milliseconds(),
			"credential_count", len(entries),
		)
	}
	logger.Debug("reputation score computed",
		"event", "reputation_score_computed",
		"module", "civic-trust/reputation-engine",
		"layer", "application",
		"tier", string(score.Tier),
		"credential_count", len(contributions),
		"skipped_sources", len(skipped),
	)
	return score, nil
}

func (uc ScoreUseCase) gather(ctx context.Context, identity string) []sourceResult {
	results := make([]sourceResult, len(uc.Sources))
	timeout := uc.sourceTimeout()

	var group errgroup.Group
	for i, source := range uc.Sources {
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			// A source that ignores its context must not stall the whole score.
			done := make(chan sourceResult, 1)
			go func() {
				entries, err := source.Fetch(fetchCtx, identity)
				done <- sourceResult{entries: entries, err: err}
			}()

			var result sourceResult
			select {
			case result = <-done:
			case <-fetchCtx.Done():
				result = sourceResult{err: fetchCtx.Err()}
			}
			if result.err != nil {
				results[i] = sourceResult{err: &failures.SourceUnavailableError{Source: source.Name(), Err: result.err}}
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (uc ScoreUseCase) sourceTimeout() time.Duration {
	if uc.SourceTimeout <= 0 {
		return defaultSourceTimeout
	}
	return uc.SourceTimeout
}

// computeTimeout bounds a whole computation: one parallel source window plus
// the scoring budget.
func (uc ScoreUseCase) computeTimeout() time.Duration {
	return uc.sourceTimeout() + uc.latencyBudget()
}

func (uc ScoreUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func (uc ScoreUseCase) table() tiers.Table {
	if uc.Table.Version() == "" {
		return tiers.DefaultTable()
	}
	return uc.Table
}

func (uc ScoreUseCase) latencyBudget() time.Duration {
	if uc.LatencyBudget <= 0 {
		return defaultLatencyBudget
	}
	return uc.LatencyBudget
}
