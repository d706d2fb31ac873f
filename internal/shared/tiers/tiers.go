// Package tiers holds the ordered standing levels and the versioned table that
// binds each level to a vote weight and a reputation threshold.
package tiers

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

type Level string

const (
	LevelCitizen   Level = "citizen"
	LevelVerified  Level = "verified"
	LevelModerator Level = "moderator"
	LevelGovernor  Level = "governor"
	LevelCommander Level = "commander"
)

// MaxWeight bounds every weight a table may assign.
const MaxWeight = 5.0

var ordered = []Level{
	LevelCitizen,
	LevelVerified,
	LevelModerator,
	LevelGovernor,
	LevelCommander,
}

var ErrInvalidTable = errors.New("invalid tier table")

// Levels returns all levels from lowest to highest.
func Levels() []Level {
	return append([]Level(nil), ordered...)
}

func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LevelCitizen):
		return LevelCitizen, true
	case string(LevelVerified):
		return LevelVerified, true
	case string(LevelModerator):
		return LevelModerator, true
	case string(LevelGovernor):
		return LevelGovernor, true
	case string(LevelCommander):
		return LevelCommander, true
	default:
		return "", false
	}
}

func IsValid(level Level) bool {
	return level.Rank() >= 0
}

// Rank is the zero-based position of the level, or -1 for unknown values.
func (l Level) Rank() int {
	for i, item := range ordered {
		if item == l {
			return i
		}
	}
	return -1
}

func (l Level) AtLeast(minimum Level) bool {
	return IsValid(l) && IsValid(minimum) && l.Rank() >= minimum.Rank()
}

// ValidWeight reports whether w lies in (0, MaxWeight]. NaN is never valid.
func ValidWeight(w float64) bool {
	return w > 0 && w <= MaxWeight
}

type Band struct {
	Level    Level
	Weight   float64
	MinScore float64
}

// Table is immutable once built. Copies share no mutable state.
type Table struct {
	version string
	bands   []Band
}

func NewTable(version string, bands []Band) (Table, error) {
	if strings.TrimSpace(version) == "" {
		return Table{}, fmt.Errorf("%w: version is required", ErrInvalidTable)
	}
	if len(bands) != len(ordered) {
		return Table{}, fmt.Errorf("%w: expected %d bands, got %d", ErrInvalidTable, len(ordered), len(bands))
	}

	sorted := append([]Band(nil), bands...)
	seen := make(map[Level]struct{}, len(sorted))
	for _, band := range sorted {
		if !IsValid(band.Level) {
			return Table{}, fmt.Errorf("%w: unknown level %q", ErrInvalidTable, band.Level)
		}
		if _, dup := seen[band.Level]; dup {
			return Table{}, fmt.Errorf("%w: duplicate level %q", ErrInvalidTable, band.Level)
		}
		seen[band.Level] = struct{}{}
		if !ValidWeight(band.Weight) {
			return Table{}, fmt.Errorf("%w: weight %.2f for %s outside (0,%.0f]", ErrInvalidTable, band.Weight, band.Level, MaxWeight)
		}
		if math.IsNaN(band.MinScore) || math.IsInf(band.MinScore, 0) {
			return Table{}, fmt.Errorf("%w: threshold for %s must be finite", ErrInvalidTable, band.Level)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Level.Rank() < sorted[j].Level.Rank()
	})

	if sorted[0].MinScore != 0 {
		return Table{}, fmt.Errorf("%w: lowest level must start at score 0", ErrInvalidTable)
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinScore <= sorted[i-1].MinScore {
			return Table{}, fmt.Errorf("%w: thresholds must increase with level", ErrInvalidTable)
		}
		if sorted[i].Weight < sorted[i-1].Weight {
			return Table{}, fmt.Errorf("%w: weights must not decrease with level", ErrInvalidTable)
		}
	}
	return Table{version: strings.TrimSpace(version), bands: sorted}, nil
}

// DefaultTable is the built-in economics used when no configuration is supplied.
func DefaultTable() Table {
	table, err := NewTable("builtin-v1", []Band{
		{Level: LevelCitizen, Weight: 1.0, MinScore: 0},
		{Level: LevelVerified, Weight: 1.25, MinScore: 100},
		{Level: LevelModerator, Weight: 1.5, MinScore: 300},
		{Level: LevelGovernor, Weight: 2.0, MinScore: 600},
		{Level: LevelCommander, Weight: 3.0, MinScore: 1000},
	})
	if err != nil {
		panic(err)
	}
	return table
}

func (t Table) Version() string {
	return t.version
}

func (t Table) Bands() []Band {
	return append([]Band(nil), t.bands...)
}

func (t Table) Weight(level Level) (float64, bool) {
	for _, band := range t.bands {
		if band.Level == level {
			return band.Weight, true
		}
	}
	return 0, false
}

// LevelFor maps a reputation score to the highest level whose threshold it meets.
func (t Table) LevelFor(score float64) Level {
	if len(t.bands) == 0 {
		return LevelCitizen
	}
	current := t.bands[0].Level
	for _, band := range t.bands {
		if score >= band.MinScore {
			current = band.Level
		}
	}
	return current
}

// Progress interpolates score between the current and next threshold, clamped
// to 0..100. The top level always reports 100.
func (t Table) Progress(score float64) float64 {
	level := t.LevelFor(score)
	idx := level.Rank()
	if idx < 0 || idx >= len(t.bands)-1 {
		return 100
	}
	lower := t.bands[idx].MinScore
	upper := t.bands[idx+1].MinScore
	if upper <= lower {
		return 100
	}
	progress := (score - lower) / (upper - lower) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
