package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"

	"github.com/stretchr/testify/require"
)

var testPoll = entities.Poll{
	PollID:   "P1",
	Title:    "Transit levy",
	Options:  []string{"Approve", "Reject"},
	Baseline: 100,
}

// respond adds total responses for a tier, the first rejecting of them
// selecting "Reject" and the rest "Approve".
func respond(out []entities.PollResponse, level tiers.Level, total int, rejecting int) []entities.PollResponse {
	weight, _ := tiers.DefaultTable().Weight(level)
	for i := 0; i < total; i++ {
		choice := "Approve"
		if i < rejecting {
			choice = "Reject"
		}
		out = append(out, entities.PollResponse{
			ResponseID:    fmt.Sprintf("%s-%d", level, i),
			PollID:        testPoll.PollID,
			ResponderHash: fmt.Sprintf("h-%s-%d", level, i),
			Tier:          level,
			Weight:        weight,
			Selected:      []string{choice},
		})
	}
	return out
}

func threeTierResponses() []entities.PollResponse {
	var responses []entities.PollResponse
	responses = respond(responses, tiers.LevelCitizen, 10, 2)
	responses = respond(responses, tiers.LevelModerator, 10, 7)
	responses = respond(responses, tiers.LevelGovernor, 10, 8)
	return responses
}

func TestPushbackGovernorScenarioRequiresAction(t *testing.T) {
	result := Pushback(testPoll, threeTierResponses(), DefaultLexicon())

	require.Equal(t, []tiers.Level{tiers.LevelModerator, tiers.LevelGovernor}, result.OpposingTiers)
	// (20*1.0 + 70*1.5 + 80*2.0) / 5
	require.InDelta(t, 57.0, result.Severity, 1e-9)
	require.GreaterOrEqual(t, result.Severity, ActionSeverity)
	require.True(t, result.IsActionRequired)
	require.Equal(t, entities.RecommendationRespond, result.Recommendation)

	require.Len(t, result.Tiers, 3)
	require.Equal(t, tiers.LevelGovernor, result.Tiers[2].Tier)
	require.InDelta(t, 80.0, result.Tiers[2].Percent, 1e-9)
	require.InDelta(t, 2.0, result.Tiers[2].Weight, 1e-9)
}

func TestPushbackSingleOpposingTierIsNotActionable(t *testing.T) {
	var responses []entities.PollResponse
	responses = respond(responses, tiers.LevelCitizen, 10, 0)
	responses = respond(responses, tiers.LevelCommander, 10, 10)

	result := Pushback(testPoll, responses, DefaultLexicon())
	require.Equal(t, []tiers.Level{tiers.LevelCommander}, result.OpposingTiers)
	require.InDelta(t, 60.0, result.Severity, 1e-9)
	require.False(t, result.IsActionRequired)
}

func TestPushbackTriggerAtExactlySixtyPercent(t *testing.T) {
	var responses []entities.PollResponse
	responses = respond(responses, tiers.LevelCitizen, 5, 3)
	responses = respond(responses, tiers.LevelVerified, 5, 2)

	result := Pushback(testPoll, responses, DefaultLexicon())
	require.Equal(t, []tiers.Level{tiers.LevelCitizen}, result.OpposingTiers)
}

func TestRecommendationBands(t *testing.T) {
	require.Equal(t, entities.RecommendationNone, Recommendation(24.9))
	require.Equal(t, entities.RecommendationMonitor, Recommendation(25))
	require.Equal(t, entities.RecommendationRespond, Recommendation(50))
	require.Equal(t, entities.RecommendationEscalate, Recommendation(75))
	require.Equal(t, entities.RecommendationEscalate, Recommendation(100))
}

func TestLexiconMatchesWholeWords(t *testing.T) {
	lexicon := DefaultLexicon()
	require.True(t, lexicon.Matches("I am opposed."))
	require.True(t, lexicon.Matches("No!"))
	require.True(t, lexicon.Matches("Strongly   DISAGREE with this"))
	require.True(t, lexicon.Matches("fine", "Reject"))
	require.False(t, lexicon.Matches("nothing to add"))
	require.False(t, lexicon.Matches("a novel idea"))
	require.False(t, lexicon.Matches(""))

	custom, err := NewLexicon([]string{"  ", "Nay"})
	require.NoError(t, err)
	require.Equal(t, []string{"nay"}, custom.Terms())
	require.True(t, custom.Matches("nay, thanks"))

	_, err = NewLexicon([]string{" ", "!!"})
	require.ErrorIs(t, err, ErrEmptyLexicon)
}

func TestDivergenceIsSymmetric(t *testing.T) {
	options := []string{"A", "B", "C"}
	shares := []map[string]float64{
		{"A": 10, "B": 80, "C": 10},
		{"A": 90, "B": 0, "C": 10},
		{"A": 33.3, "B": 33.3, "C": 33.4},
		{},
	}
	for i := range shares {
		for j := range shares {
			require.Equal(t, Divergence(shares[i], shares[j], options), Divergence(shares[j], shares[i], options))
		}
	}
	require.InDelta(t, 53.3333, Divergence(shares[0], shares[1], options), 1e-3)
	require.Zero(t, Divergence(shares[0], shares[1], nil))
}

func TestAlignmentAcrossThreeTiers(t *testing.T) {
	result := Alignment(testPoll, threeTierResponses())

	require.Len(t, result.Pairs, 3)
	require.Equal(t, tiers.LevelCitizen, result.Pairs[0].A)
	require.Equal(t, tiers.LevelModerator, result.Pairs[0].B)
	require.InDelta(t, 50.0, result.Pairs[0].Divergence, 1e-9)
	require.InDelta(t, 60.0, result.Pairs[1].Divergence, 1e-9)
	require.InDelta(t, 10.0, result.Pairs[2].Divergence, 1e-9)

	require.InDelta(t, 60.0, result.OverallConsensus, 1e-9)
	require.InDelta(t, 48.0, result.Polarization, 1e-9)
	require.Equal(t, []string{"Approve", "Reject"}, result.Conflict)
	require.Empty(t, result.Agreement)
	require.Empty(t, result.MinorityConcerns)
}

func TestAlignmentSingleTierHasFullConsensus(t *testing.T) {
	result := Alignment(testPoll, respond(nil, tiers.LevelCitizen, 4, 1))
	require.Empty(t, result.Pairs)
	require.Empty(t, result.Options)
	require.Equal(t, 100.0, result.OverallConsensus)
	require.Zero(t, result.Polarization)
}

func TestAlignmentFlagsMinorityConcerns(t *testing.T) {
	var responses []entities.PollResponse
	responses = respond(responses, tiers.LevelCitizen, 20, 0)
	responses = respond(responses, tiers.LevelCommander, 3, 3)
	responses = respond(responses, tiers.LevelVerified, 2, 2)

	result := Alignment(testPoll, responses)
	require.Equal(t, []tiers.Level{tiers.LevelCommander}, result.MinorityConcerns)
}

func TestAggregateWeightsAndTierBreakdown(t *testing.T) {
	result := Aggregate(testPoll, threeTierResponses())

	require.Equal(t, 30, result.ResponseCount)
	require.InDelta(t, 45.0, result.WeightedTotal, 1e-9)
	require.Len(t, result.Options, 2)

	approve, reject := result.Options[0], result.Options[1]
	require.Equal(t, "Approve", approve.Option)
	require.Equal(t, 13, approve.Raw)
	require.InDelta(t, 16.5, approve.Weighted, 1e-9)
	require.Equal(t, 17, reject.Raw)
	require.InDelta(t, 28.5, reject.Weighted, 1e-9)

	require.Len(t, reject.Tiers, 3)
	require.Equal(t, tiers.LevelModerator, reject.Tiers[1].Tier)
	require.Equal(t, 7, reject.Tiers[1].Count)
	require.InDelta(t, 70.0, reject.Tiers[1].Percent, 1e-9)

	require.Len(t, result.Participation, 3)
	require.InDelta(t, 100.0/3, result.Participation[0].Share, 1e-9)
}

func TestAggregateCountsRepeatedSelectionOnce(t *testing.T) {
	poll := testPoll
	poll.MultiSelect = true
	responses := []entities.PollResponse{{
		Tier:     tiers.LevelCitizen,
		Weight:   1,
		Selected: []string{"Approve", "Approve", "Reject"},
	}}
	result := Aggregate(poll, responses)
	require.Equal(t, 1, result.Options[0].Raw)
	require.Equal(t, 1, result.Options[1].Raw)
}

func TestImpactScores(t *testing.T) {
	result := Impact(testPoll, threeTierResponses())

	require.InDelta(t, 30.0, result.Engagement, 1e-9)
	require.InDelta(t, 200.0/3, result.WeightedInfluence, 1e-9)
	require.InDelta(t, 0.6*30+0.4*200.0/3, result.PublicOpinionStrength, 1e-9)
	// equal counts favour the higher tier
	require.Equal(t, tiers.LevelGovernor, result.DominantTier)

	poll := testPoll
	poll.Baseline = 0
	empty := Impact(poll, nil)
	require.Equal(t, entities.DefaultBaseline, empty.Baseline)
	require.Zero(t, empty.PublicOpinionStrength)
	require.Equal(t, tiers.Level(""), empty.DominantTier)
}

func TestImpactCapsEngagementAndInfluence(t *testing.T) {
	poll := testPoll
	poll.Baseline = 5
	result := Impact(poll, respond(nil, tiers.LevelCommander, 10, 0))
	require.Equal(t, 100.0, result.Engagement)
	require.Equal(t, 100.0, result.WeightedInfluence)
	require.InDelta(t, 100.0, result.PublicOpinionStrength, 1e-9)
}

func testReport() entities.Report {
	responses := threeTierResponses()
	return entities.Report{
		Metadata: entities.ReportMetadata{
			PollID:        testPoll.PollID,
			Title:         testPoll.Title,
			ResponseCount: len(responses),
			TableVersion:  "builtin-v1",
			GeneratedAt:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Aggregate: Aggregate(testPoll, responses),
		Impact:    Impact(testPoll, responses),
		Alignment: Alignment(testPoll, responses),
		Pushback:  Pushback(testPoll, responses, DefaultLexicon()),
	}
}

func TestEncodeJSONEmbedsReportFingerprint(t *testing.T) {
	exported, err := EncodeJSON(testReport())
	require.NoError(t, err)
	require.Equal(t, "application/json", exported.ContentType)

	var decoded struct {
		Fingerprint string          `json:"fingerprint"`
		Report      json.RawMessage `json:"report"`
	}
	require.NoError(t, json.Unmarshal(exported.Body, &decoded))
	require.Equal(t, exported.Fingerprint, decoded.Fingerprint)
	require.Equal(t, Fingerprint(decoded.Report), decoded.Fingerprint)

	var report struct {
		Metadata struct {
			PollID string `json:"poll_id"`
		} `json:"metadata"`
		Pushback struct {
			IsActionRequired bool `json:"is_action_required"`
		} `json:"pushback"`
	}
	require.NoError(t, json.Unmarshal(decoded.Report, &report))
	require.Equal(t, "P1", report.Metadata.PollID)
	require.True(t, report.Pushback.IsActionRequired)
}

func TestEncodeCSVSectionsAndTrailingFingerprint(t *testing.T) {
	exported, err := EncodeCSV(testReport())
	require.NoError(t, err)
	require.Equal(t, "text/csv", exported.ContentType)

	body := exported.Body
	require.True(t, bytes.HasSuffix(body, []byte("\n")))
	cut := bytes.LastIndexByte(body[:len(body)-1], '\n') + 1
	require.Equal(t, "fingerprint,"+exported.Fingerprint+"\n", string(body[cut:]))
	require.Equal(t, Fingerprint(body[:cut]), exported.Fingerprint)

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	var sections []string
	for _, record := range records {
		if len(record) == 2 && record[0] == "section" {
			sections = append(sections, record[1])
		}
	}
	require.Equal(t, []string{
		SectionMetadata,
		SectionOptionResults,
		SectionTierParticipation,
		SectionImpact,
		SectionAlignment,
		SectionPushback,
	}, sections)
}

func TestEncodeJSONCarriesTierBreakdownAndOptionAlignment(t *testing.T) {
	exported, err := EncodeJSON(testReport())
	require.NoError(t, err)

	var decoded struct {
		Report struct {
			OptionResults []struct {
				Option string `json:"option"`
				Tiers  []struct {
					Tier    string  `json:"tier"`
					Count   int     `json:"count"`
					Percent float64 `json:"percent"`
				} `json:"tiers"`
			} `json:"option_results"`
			Alignment struct {
				Options []struct {
					Option     string  `json:"option"`
					Divergence float64 `json:"divergence"`
					Status     string  `json:"status"`
				} `json:"options"`
			} `json:"alignment"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(exported.Body, &decoded))

	require.Len(t, decoded.Report.OptionResults, 2)
	reject := decoded.Report.OptionResults[1]
	require.Equal(t, "Reject", reject.Option)
	require.Len(t, reject.Tiers, 3)
	require.Equal(t, string(tiers.LevelModerator), reject.Tiers[1].Tier)
	require.Equal(t, 7, reject.Tiers[1].Count)
	require.InDelta(t, 70.0, reject.Tiers[1].Percent, 1e-9)

	require.Len(t, decoded.Report.Alignment.Options, 2)
	for _, option := range decoded.Report.Alignment.Options {
		require.InDelta(t, 40.0, option.Divergence, 1e-9)
		require.Equal(t, entities.AlignmentConflict, option.Status)
	}
}

func TestEncodeCSVCarriesTierBreakdownAndOptionAlignment(t *testing.T) {
	exported, err := EncodeCSV(testReport())
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(exported.Body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	require.Contains(t, records, []string{"option", "tier", "count", "percent"})
	require.Contains(t, records, []string{"Reject", string(tiers.LevelModerator), "7", "70.0000"})
	require.Contains(t, records, []string{"Approve", string(tiers.LevelCitizen), "8", "80.0000"})
	require.Contains(t, records, []string{"option", "divergence", "status"})
	require.Contains(t, records, []string{"Approve", "40.0000", entities.AlignmentConflict})
	require.Contains(t, records, []string{"Reject", "40.0000", entities.AlignmentConflict})
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, entities.FormatJSON, format)

	format, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	require.Equal(t, entities.FormatCSV, format)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestSigningPayloadIgnoresSelectionOrder(t *testing.T) {
	base := entities.PollResponse{
		ResponseID:  "r1",
		PollID:      "P1",
		Tier:        tiers.LevelCitizen,
		Weight:      1,
		Selected:    []string{"A", "B"},
		SubmittedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	swapped := base
	swapped.Selected = []string{"B", "A"}
	require.Equal(t, SigningPayload(base), SigningPayload(swapped))

	heavier := base
	heavier.Weight = 1.25
	require.NotEqual(t, SigningPayload(base), SigningPayload(heavier))
}
