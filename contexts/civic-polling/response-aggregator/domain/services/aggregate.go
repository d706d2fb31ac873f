package services

import (
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
)

// Aggregate tallies every option in poll order with raw and weighted counts
// and the per-tier share of respondents selecting it.
func Aggregate(poll entities.Poll, responses []entities.PollResponse) entities.Aggregate {
	tierProfiles := profiles(responses)
	result := entities.Aggregate{
		PollID:        poll.PollID,
		ResponseCount: len(responses),
		Options:       make([]entities.OptionResult, 0, len(poll.Options)),
		Participation: make([]entities.TierParticipation, 0, len(tierProfiles)),
	}

	index := make(map[string]int, len(poll.Options))
	for i, option := range poll.Options {
		index[option] = i
		result.Options = append(result.Options, entities.OptionResult{Option: option})
	}
	for _, response := range responses {
		result.WeightedTotal += response.Weight
		for _, option := range uniqueSelections(response.Selected) {
			i, ok := index[option]
			if !ok {
				continue
			}
			result.Options[i].Raw++
			result.Options[i].Weighted += response.Weight
		}
	}

	for i := range result.Options {
		option := result.Options[i].Option
		shares := make([]entities.TierOptionShare, 0, len(tierProfiles))
		for _, profile := range tierProfiles {
			shares = append(shares, entities.TierOptionShare{
				Tier:    profile.level,
				Count:   profile.selections[option],
				Percent: profile.percent(option),
			})
		}
		result.Options[i].Tiers = shares
	}
	for _, profile := range tierProfiles {
		result.Participation = append(result.Participation, entities.TierParticipation{
			Tier:       profile.level,
			Responses:  profile.responses,
			Share:      share(profile.responses, len(responses)),
			MeanWeight: profile.meanWeight(),
		})
	}
	return result
}
