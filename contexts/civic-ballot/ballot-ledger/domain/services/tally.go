package services

import (
	"sort"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
)

// BuildTally aggregates entries, given in position order, with choices[i]
// holding the resolved label of entries[i]. Weighted sums accumulate in
// position order so the result is deterministic.
func BuildTally(ballotID string, entries []entities.LedgerEntry, choices []string) entities.Tally {
	tally := entities.Tally{
		BallotID:   ballotID,
		EntryCount: len(entries),
	}
	if len(entries) == 0 {
		tally.Choices = []entities.ChoiceTotal{}
		tally.DistinctWeights = []float64{}
		tally.Histogram = []entities.HistogramBin{}
		return tally
	}

	totals := make(map[string]*entities.ChoiceTotal)
	buckets := make(map[float64]int)
	distinct := make(map[float64]struct{})
	weights := make([]float64, 0, len(entries))
	sum := 0.0

	for i, entry := range entries {
		weight := entry.Token.Weight
		choice := choices[i]
		total, ok := totals[choice]
		if !ok {
			total = &entities.ChoiceTotal{Choice: choice}
			totals[choice] = total
		}
		total.Raw++
		total.Weighted += weight

		sum += weight
		weights = append(weights, weight)
		distinct[weight] = struct{}{}
		buckets[WeightBucket(weight)]++

		issued := entry.Token.IssuedAt.UTC()
		if tally.FirstAt.IsZero() || issued.Before(tally.FirstAt) {
			tally.FirstAt = issued
		}
		if issued.After(tally.LastAt) {
			tally.LastAt = issued
		}
	}

	tally.Choices = make([]entities.ChoiceTotal, 0, len(totals))
	for _, total := range totals {
		tally.Choices = append(tally.Choices, *total)
	}
	sort.Slice(tally.Choices, func(i, j int) bool { return tally.Choices[i].Choice < tally.Choices[j].Choice })

	tally.MeanWeight = sum / float64(len(weights))
	tally.MedianWeight = Median(weights)

	tally.DistinctWeights = make([]float64, 0, len(distinct))
	for weight := range distinct {
		tally.DistinctWeights = append(tally.DistinctWeights, weight)
	}
	sort.Float64s(tally.DistinctWeights)

	tally.Histogram = make([]entities.HistogramBin, 0, len(buckets))
	for bucket, count := range buckets {
		tally.Histogram = append(tally.Histogram, entities.HistogramBin{Bucket: bucket, Count: count})
	}
	sort.Slice(tally.Histogram, func(i, j int) bool { return tally.Histogram[i].Bucket < tally.Histogram[j].Bucket })
	return tally
}

// Median averages the two middle values for even counts. It does not modify
// values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
