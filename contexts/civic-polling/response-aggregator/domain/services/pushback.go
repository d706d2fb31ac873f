package services

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

const (
	// A tier is opposing once at least 6 in 10 of its responses oppose.
	triggerNumerator   = 6
	triggerDenominator = 10

	ActionSeverity   = 50.0
	EscalateSeverity = 75.0
	MonitorSeverity  = 25.0
	MinOpposingTiers = 2
)

var ErrEmptyLexicon = errors.New("opposition lexicon is empty")

// Lexicon matches opposition wording on whole words, case-insensitively.
type Lexicon struct {
	terms []string
}

func DefaultLexicon() Lexicon {
	lexicon, _ := NewLexicon([]string{
		"oppose", "opposed", "against", "reject", "disagree",
		"strongly disagree", "no", "veto", "repeal",
	})
	return lexicon
}

func NewLexicon(terms []string) (Lexicon, error) {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		if value := normalizeWords(term); strings.TrimSpace(value) != "" {
			normalized = append(normalized, value)
		}
	}
	if len(normalized) == 0 {
		return Lexicon{}, ErrEmptyLexicon
	}
	return Lexicon{terms: normalized}, nil
}

func (l Lexicon) Terms() []string {
	out := make([]string, 0, len(l.terms))
	for _, term := range l.terms {
		out = append(out, strings.TrimSpace(term))
	}
	return out
}

// Matches reports whether any text contains a lexicon term as whole words.
func (l Lexicon) Matches(texts ...string) bool {
	for _, text := range texts {
		normalized := normalizeWords(text)
		for _, term := range l.terms {
			if strings.Contains(normalized, term) {
				return true
			}
		}
	}
	return false
}

// normalizeWords lowercases text, turns every non-alphanumeric rune into a
// space and pads both ends, so " term " only matches whole words.
func normalizeWords(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

func Pushback(poll entities.Poll, responses []entities.PollResponse, lexicon Lexicon) entities.Pushback {
	result := entities.Pushback{
		PollID:         poll.PollID,
		Tiers:          []entities.TierOpposition{},
		OpposingTiers:  []tiers.Level{},
		Recommendation: entities.RecommendationNone,
	}

	opposed := make(map[tiers.Level]int)
	for _, response := range responses {
		texts := append(append([]string(nil), response.Selected...), response.Comment)
		if lexicon.Matches(texts...) {
			opposed[response.Tier]++
		}
	}

	weighted := 0.0
	for _, profile := range profiles(responses) {
		count := opposed[profile.level]
		item := entities.TierOpposition{
			Tier:       profile.level,
			Responses:  profile.responses,
			Opposed:    count,
			Percent:    share(count, profile.responses),
			Weight:     profile.meanWeight(),
			IsOpposing: count*triggerDenominator >= profile.responses*triggerNumerator,
		}
		if item.IsOpposing {
			result.OpposingTiers = append(result.OpposingTiers, profile.level)
		}
		weighted += item.Percent * item.Weight
		result.Tiers = append(result.Tiers, item)
	}

	result.Severity = math.Min(weighted/5, 100)
	result.IsActionRequired = result.Severity >= ActionSeverity && len(result.OpposingTiers) >= MinOpposingTiers
	result.Recommendation = Recommendation(result.Severity)
	return result
}

// Recommendation grades a severity into a response band.
func Recommendation(severity float64) string {
	switch {
	case severity >= EscalateSeverity:
		return entities.RecommendationEscalate
	case severity >= ActionSeverity:
		return entities.RecommendationRespond
	case severity >= MonitorSeverity:
		return entities.RecommendationMonitor
	default:
		return entities.RecommendationNone
	}
}
