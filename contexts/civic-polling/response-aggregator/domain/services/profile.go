package services

import (
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

// tierProfile summarizes the responses of one tier.
type tierProfile struct {
	level      tiers.Level
	responses  int
	weightSum  float64
	selections map[string]int
}

func (p *tierProfile) meanWeight() float64 {
	if p.responses == 0 {
		return 0
	}
	return p.weightSum / float64(p.responses)
}

// percent is the share of this tier's responses selecting option, 0 to 100.
func (p *tierProfile) percent(option string) float64 {
	if p.responses == 0 {
		return 0
	}
	return float64(p.selections[option]) / float64(p.responses) * 100
}

// profiles groups responses by tier and returns the tiers that answered, from
// lowest to highest.
func profiles(responses []entities.PollResponse) []*tierProfile {
	byTier := make(map[tiers.Level]*tierProfile)
	for _, response := range responses {
		profile, ok := byTier[response.Tier]
		if !ok {
			profile = &tierProfile{level: response.Tier, selections: make(map[string]int)}
			byTier[response.Tier] = profile
		}
		profile.responses++
		profile.weightSum += response.Weight
		for _, option := range uniqueSelections(response.Selected) {
			profile.selections[option]++
		}
	}
	ordered := make([]*tierProfile, 0, len(byTier))
	for _, level := range tiers.Levels() {
		if profile, ok := byTier[level]; ok {
			ordered = append(ordered, profile)
		}
	}
	return ordered
}

func uniqueSelections(selected []string) []string {
	seen := make(map[string]struct{}, len(selected))
	out := make([]string, 0, len(selected))
	for _, option := range selected {
		if _, ok := seen[option]; ok {
			continue
		}
		seen[option] = struct{}{}
		out = append(out, option)
	}
	return out
}

func share(part int, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
