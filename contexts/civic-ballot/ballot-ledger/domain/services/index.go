package services

import (
	"math"
	"sort"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
)

const (
	BucketWidth = 0.25
	dayLayout   = "2006-01-02"
	maxDaySpan  = 31
)

// WeightBucket returns the lower bound of the 0.25-wide bucket holding weight.
func WeightBucket(weight float64) float64 {
	return math.Floor(weight/BucketWidth) * BucketWidth
}

// DayKey is the UTC calendar day of a timestamp.
func DayKey(at time.Time) string {
	return at.UTC().Format(dayLayout)
}

// Indexes maps ballot, issue day and weight bucket to ledger positions. It is
// a cache over the log and is not safe for concurrent use on its own.
type Indexes struct {
	byBallot map[string][]int64
	byDay    map[string][]int64
	byBucket map[float64][]int64
}

func NewIndexes() *Indexes {
	return &Indexes{
		byBallot: make(map[string][]int64),
		byDay:    make(map[string][]int64),
		byBucket: make(map[float64][]int64),
	}
}

// Add indexes an entry. Entries arrive in position order, so every list stays
// sorted without extra work.
func (ix *Indexes) Add(entry entities.LedgerEntry) {
	ix.byBallot[entry.Token.BallotID] = append(ix.byBallot[entry.Token.BallotID], entry.Position)
	day := DayKey(entry.Token.IssuedAt)
	ix.byDay[day] = append(ix.byDay[day], entry.Position)
	bucket := WeightBucket(entry.Token.Weight)
	ix.byBucket[bucket] = append(ix.byBucket[bucket], entry.Position)
}

func (ix *Indexes) Ballot(ballotID string) []int64 {
	return append([]int64(nil), ix.byBallot[ballotID]...)
}

func (ix *Indexes) Day(day string) []int64 {
	return append([]int64(nil), ix.byDay[day]...)
}

func (ix *Indexes) Bucket(bucket float64) []int64 {
	return append([]int64(nil), ix.byBucket[WeightBucket(bucket)]...)
}

func (ix *Indexes) BallotCount() int {
	return len(ix.byBallot)
}

// Candidates narrows a filter to a position list using the most selective
// index available. ok is false when the whole log has to be scanned.
func (ix *Indexes) Candidates(filter entities.Filter) ([]int64, bool) {
	if filter.BallotID != "" {
		return ix.Ballot(filter.BallotID), true
	}
	if !filter.From.IsZero() && !filter.To.IsZero() {
		from := filter.From.UTC().Truncate(24 * time.Hour)
		to := filter.To.UTC()
		if to.Sub(from) <= maxDaySpan*24*time.Hour {
			var positions []int64
			for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
				positions = append(positions, ix.byDay[DayKey(day)]...)
			}
			return sortPositions(positions), true
		}
	}
	if filter.MaxWeight > 0 {
		var positions []int64
		for bucket, items := range ix.byBucket {
			if bucket+BucketWidth <= filter.MinWeight || bucket > filter.MaxWeight {
				continue
			}
			positions = append(positions, items...)
		}
		return sortPositions(positions), true
	}
	return nil, false
}

func sortPositions(positions []int64) []int64 {
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	return positions
}
