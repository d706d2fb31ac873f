package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/errors"
)

const (
	DefaultGraceDays    = 7.0
	DefaultHalfLifeDays = 90.0
	DefaultMinimumFloor = 0.1
	DefaultCategoryRate = 0.9

	// rateWindowDays is the period over which a category rate applies once.
	rateWindowDays = 30.0
)

type DecayPolicy struct {
	GraceDays           float64
	HalfLifeDays        float64
	MinimumFloor        float64
	DefaultCategoryRate float64
	CategoryRates       map[string]float64
}

func DefaultDecayPolicy() DecayPolicy {
	return DecayPolicy{
		GraceDays:           DefaultGraceDays,
		HalfLifeDays:        DefaultHalfLifeDays,
		MinimumFloor:        DefaultMinimumFloor,
		DefaultCategoryRate: DefaultCategoryRate,
		CategoryRates: map[string]float64{
			"civic leadership":     0.85,
			"community service":    0.90,
			"voting participation": 0.95,
			"policy contribution":  0.88,
			"civic education":      0.92,
		},
	}
}

// Validate rejects non-finite values as well as out-of-range ones; the
// comparisons are written so that NaN fails them.
func (p DecayPolicy) Validate() error {
	switch {
	case !(p.GraceDays >= 0) || math.IsInf(p.GraceDays, 1):
		return fmt.Errorf("%w: grace days must be finite and not negative", domainerrors.ErrInvalidPolicy)
	case !(p.HalfLifeDays > 0) || math.IsInf(p.HalfLifeDays, 1):
		return fmt.Errorf("%w: half-life must be finite and positive", domainerrors.ErrInvalidPolicy)
	case !unitInterval(p.MinimumFloor):
		return fmt.Errorf("%w: minimum floor must be within (0, 1]", domainerrors.ErrInvalidPolicy)
	case !unitInterval(p.DefaultCategoryRate):
		return fmt.Errorf("%w: default category rate must be within (0, 1]", domainerrors.ErrInvalidPolicy)
	}
	for category, rate := range p.CategoryRates {
		if !unitInterval(rate) {
			return fmt.Errorf("%w: rate for %q must be within (0, 1]", domainerrors.ErrInvalidPolicy, category)
		}
	}
	return nil
}

func unitInterval(v float64) bool {
	return v > 0 && v <= 1
}

func (p DecayPolicy) RateFor(category string) float64 {
	if rate, ok := p.CategoryRates[normalizeCategory(category)]; ok {
		return rate
	}
	return p.DefaultCategoryRate
}

// Factor is the multiplier applied to base points for a credential of the
// given age. It is 1 inside the grace period, never increases with age, and
// never drops below MinimumFloor.
func (p DecayPolicy) Factor(ageDays float64, rate float64) float64 {
	if ageDays <= p.GraceDays {
		return 1
	}
	effective := ageDays - p.GraceDays
	factor := math.Pow(0.5, effective/p.HalfLifeDays) * math.Pow(rate, effective/rateWindowDays)
	return math.Max(factor, p.MinimumFloor)
}

// Apply decays every entry at now. Entries are ordered before summation so the
// floating-point total is identical for the same set regardless of arrival order.
func (p DecayPolicy) Apply(entries []entities.CredentialEntry, now time.Time) (float64, float64, []entities.Contribution) {
	ordered := append([]entities.CredentialEntry(nil), entries...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		if !ordered[i].IssuedAt.Equal(ordered[j].IssuedAt) {
			return ordered[i].IssuedAt.Before(ordered[j].IssuedAt)
		}
		return ordered[i].CredentialID < ordered[j].CredentialID
	})

	var total, base float64
	contributions := make([]entities.Contribution, 0, len(ordered))
	for _, entry := range ordered {
		if !(entry.BasePoints > 0) || math.IsInf(entry.BasePoints, 1) {
			continue
		}
		age := now.Sub(entry.IssuedAt).Hours() / 24
		rate := p.RateFor(entry.Category)
		factor := p.Factor(age, rate)
		decayed := entry.BasePoints * factor

		total += decayed
		base += entry.BasePoints
		contributions = append(contributions, entities.Contribution{
			CredentialID:  entry.CredentialID,
			Source:        entry.Source,
			Category:      entry.Category,
			BasePoints:    entry.BasePoints,
			AgeDays:       age,
			CategoryRate:  rate,
			DecayFactor:   factor,
			DecayedPoints: decayed,
		})
	}
	return total, base, contributions
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// NormalizeRates lower-cases category keys so lookups ignore case and padding.
func NormalizeRates(rates map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(rates))
	for category, rate := range rates {
		normalized[normalizeCategory(category)] = rate
	}
	return normalized
}
