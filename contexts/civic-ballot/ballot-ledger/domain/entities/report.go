package entities

import "time"

type ChoiceTotal struct {
	Choice   string
	Raw      int
	Weighted float64
}

type HistogramBin struct {
	Bucket float64
	Count  int
}

type Tally struct {
	BallotID        string
	EntryCount      int
	Choices         []ChoiceTotal
	MeanWeight      float64
	MedianWeight    float64
	DistinctWeights []float64
	Histogram       []HistogramBin
	FirstAt         time.Time
	LastAt          time.Time
}

type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByWeight    SortField = "weight"
	SortByPosition  SortField = "position"
)

// Filter selects ledger entries. Zero values leave a dimension unconstrained.
type Filter struct {
	BallotID        string
	From            time.Time
	To              time.Time
	MinWeight       float64
	MaxWeight       float64
	IncludeInactive bool
	SortBy          SortField
	Descending      bool
	Offset          int
	Limit           int
}

type QueryResult struct {
	Entries []LedgerEntry
	Total   int
	Offset  int
	Limit   int
}

type EntryDigest struct {
	Position int64
	TokenID  string
	Digest   string
	Active   bool
}

type Verification struct {
	EntryCount  int
	Digests     []EntryDigest
	Fingerprint string
}

type Audit struct {
	RejectCounts map[RejectCause]int
	Positions    []int64
}

// Bundle is a read-only export snapshot for one ballot.
type Bundle struct {
	BallotID     string
	GeneratedAt  time.Time
	Tally        Tally
	Verification Verification
	Audit        Audit
}
