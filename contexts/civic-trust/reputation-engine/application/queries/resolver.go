package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 5 * time.Minute
)

type TierResolverConfig struct {
	Scores    ScoreUseCase
	Lookup    ports.TierLookup
	CacheSize int
	CacheTTL  time.Duration
	Observer  ports.Observer
	Logger    *slog.Logger
}

// TierResolver answers level and weight questions for the ballot and polling
// contexts. Scores are cached; concurrent misses for one identity share a
// single computation.
type TierResolver struct {
	scores   ScoreUseCase
	lookup   ports.TierLookup
	cache    *expirable.LRU[string, entities.ReputationScore]
	group    singleflight.Group
	observer ports.Observer
	logger   *slog.Logger
}

func NewTierResolver(cfg TierResolverConfig) *TierResolver {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &TierResolver{
		scores:   cfg.Scores,
		lookup:   cfg.Lookup,
		cache:    expirable.NewLRU[string, entities.ReputationScore](size, nil, ttl),
		observer: cfg.Observer,
		logger:   application.ResolveLogger(cfg.Logger),
	}
}

func (r *TierResolver) Table() tiers.Table {
	return r.scores.table()
}

// Score returns the cached score or computes it. Degraded scores, where a
// source was skipped, are returned but not cached.
func (r *TierResolver) Score(ctx context.Context, identity string) (entities.ReputationScore, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return entities.ReputationScore{}, failures.Invalid("identity", "is required")
	}
	if cached, ok := r.cache.Get(identity); ok {
		r.observeCache(true)
		return cached, nil
	}
	r.observeCache(false)

	// The shared computation outlives any single caller; each caller stops
	// waiting on its own context.
	flight := r.group.DoChan(identity, func() (any, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.scores.computeTimeout())
		defer cancel()
		score, err := r.scores.Compute(computeCtx, identity)
		if err != nil {
			return entities.ReputationScore{}, err
		}
		if !score.Degraded() {
			r.cache.Add(identity, score)
		}
		return score, nil
	})
	select {
	case <-ctx.Done():
		return entities.ReputationScore{}, failures.Processing("resolve score", ctx.Err())
	case result := <-flight:
		if result.Err != nil {
			return entities.ReputationScore{}, result.Err
		}
		return result.Val.(entities.ReputationScore), nil
	}
}

// ResolveTier prefers a valid external answer and falls back to the computed
// score when the lookup is absent, fails, or returns an unknown level.
func (r *TierResolver) ResolveTier(ctx context.Context, identity string) (tiers.Level, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", failures.Invalid("identity", "is required")
	}

	if r.lookup != nil {
		raw, found, err := r.lookup.LookupTier(ctx, identity)
		switch {
		case err != nil:
			r.logger.Warn("external tier lookup failed",
				"event", "reputation_tier_lookup_failed",
				"module", "civic-trust/reputation-engine",
				"layer", "application",
				"error", err.Error(),
			)
		case found:
			level, ok := tiers.ParseLevel(raw)
			r.observeExternal(ok)
			if ok {
				return level, nil
			}
			r.logger.Warn("external tier rejected",
				"event", "reputation_tier_lookup_rejected",
				"module", "civic-trust/reputation-engine",
				"layer", "application",
				"raw_length", len(raw),
			)
		}
	}

	score, err := r.Score(ctx, identity)
	if err != nil {
		return "", err
	}
	return score.Tier, nil
}

func (r *TierResolver) ResolveWeight(level tiers.Level) (float64, error) {
	weight, ok := r.Table().Weight(level)
	if !ok {
		return 0, failures.Invalid("tier", "unknown level "+string(level))
	}
	return weight, nil
}

// ResolveTierWeight resolves the level and its weight in one call.
func (r *TierResolver) ResolveTierWeight(ctx context.Context, identity string) (tiers.Level, float64, error) {
	level, err := r.ResolveTier(ctx, identity)
	if err != nil {
		return "", 0, err
	}
	weight, err := r.ResolveWeight(level)
	if err != nil {
		return "", 0, err
	}
	return level, weight, nil
}

// Invalidate drops a cached score, e.g. after new credentials are issued.
func (r *TierResolver) Invalidate(identity string) {
	r.cache.Remove(strings.TrimSpace(identity))
}

func (r *TierResolver) observeCache(hit bool) {
	if r.observer != nil {
		r.observer.ObserveScoreCache(hit)
	}
}

func (r *TierResolver) observeExternal(accepted bool) {
	if r.observer != nil {
		r.observer.ObserveExternalTier(accepted)
	}
}
