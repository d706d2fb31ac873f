package services

import (
	"math"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

const (
	AgreementBelow       = 15.0
	ConflictAbove        = 35.0
	MinorityShareBelow   = 20.0
	MinorityMinResponses = 3
)

// Divergence is the mean absolute percentage-point gap between two tiers'
// option shares, capped at 100. Swapping a and b yields the same value.
func Divergence(a map[string]float64, b map[string]float64, options []string) float64 {
	if len(options) == 0 {
		return 0
	}
	sum := 0.0
	for _, option := range options {
		sum += math.Abs(a[option] - b[option])
	}
	return math.Min(sum/float64(len(options)), 100)
}

func Alignment(poll entities.Poll, responses []entities.PollResponse) entities.Alignment {
	tierProfiles := profiles(responses)
	result := entities.Alignment{
		PollID:           poll.PollID,
		Pairs:            []entities.TierDivergence{},
		Options:          []entities.OptionAlignment{},
		OverallConsensus: 100,
		Agreement:        []string{},
		Conflict:         []string{},
		MinorityConcerns: []tiers.Level{},
	}

	percents := make([]map[string]float64, len(tierProfiles))
	for i, profile := range tierProfiles {
		percents[i] = make(map[string]float64, len(poll.Options))
		for _, option := range poll.Options {
			percents[i][option] = profile.percent(option)
		}
	}

	optionGaps := make(map[string]float64, len(poll.Options))
	divergenceSum := 0.0
	for i := 0; i < len(tierProfiles); i++ {
		for j := i + 1; j < len(tierProfiles); j++ {
			divergence := Divergence(percents[i], percents[j], poll.Options)
			result.Pairs = append(result.Pairs, entities.TierDivergence{
				A:          tierProfiles[i].level,
				B:          tierProfiles[j].level,
				Divergence: divergence,
			})
			divergenceSum += divergence
			for _, option := range poll.Options {
				optionGaps[option] += math.Abs(percents[i][option] - percents[j][option])
			}
		}
	}

	if pairs := len(result.Pairs); pairs > 0 {
		mean := divergenceSum / float64(pairs)
		result.OverallConsensus = 100 - mean
		result.Polarization = math.Min(1.2*mean, 100)
		for _, option := range poll.Options {
			divergence := math.Min(optionGaps[option]/float64(pairs), 100)
			status := entities.AlignmentMixed
			switch {
			case divergence < AgreementBelow:
				status = entities.AlignmentAgreement
				result.Agreement = append(result.Agreement, option)
			case divergence > ConflictAbove:
				status = entities.AlignmentConflict
				result.Conflict = append(result.Conflict, option)
			}
			result.Options = append(result.Options, entities.OptionAlignment{
				Option:     option,
				Divergence: divergence,
				Status:     status,
			})
		}
	}

	for _, profile := range tierProfiles {
		if profile.responses >= MinorityMinResponses && share(profile.responses, len(responses)) < MinorityShareBelow {
			result.MinorityConcerns = append(result.MinorityConcerns, profile.level)
		}
	}
	return result
}
