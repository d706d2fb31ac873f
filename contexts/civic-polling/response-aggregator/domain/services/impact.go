package services

import (
	"math"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
)

// HighTierWeight is the weight from which a tier counts toward weighted
// influence.
const HighTierWeight = 2.0

func Impact(poll entities.Poll, responses []entities.PollResponse) entities.Impact {
	baseline := poll.Baseline
	if baseline <= 0 {
		baseline = entities.DefaultBaseline
	}
	total := len(responses)
	result := entities.Impact{
		PollID:        poll.PollID,
		ResponseCount: total,
		Baseline:      baseline,
		Engagement:    math.Min(float64(total)/float64(baseline), 1) * 100,
	}

	highShare := 0.0
	var dominant *tierProfile
	for _, profile := range profiles(responses) {
		if profile.meanWeight() >= HighTierWeight {
			highShare += share(profile.responses, total)
		}
		// profiles run lowest to highest, so >= hands ties to the higher tier
		if dominant == nil || profile.responses >= dominant.responses {
			dominant = profile
		}
	}
	result.WeightedInfluence = math.Min(2*highShare, 100)
	result.PublicOpinionStrength = 0.6*result.Engagement + 0.4*result.WeightedInfluence
	if dominant != nil {
		result.DominantTier = dominant.level
	}
	return result
}
