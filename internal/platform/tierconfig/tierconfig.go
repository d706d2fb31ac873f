// Package tierconfig loads the versioned tier economics: weights and score
// thresholds per tier, credential decay parameters and the polling lexicon.
package tierconfig

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

type Decay struct {
	GraceDays           float64
	HalfLifeDays        float64
	MinimumFloor        float64
	DefaultCategoryRate float64
	// CategoryRates keys are lower-cased and trimmed.
	CategoryRates map[string]float64
}

type Polling struct {
	MinimumTier     tiers.Level
	OppositionTerms []string
}

type Economics struct {
	Table   tiers.Table
	Decay   Decay
	Polling Polling
}

type document struct {
	Version string `yaml:"version"`
	Tiers   []struct {
		Level    string  `yaml:"level"`
		Weight   float64 `yaml:"weight"`
		MinScore float64 `yaml:"min_score"`
	} `yaml:"tiers"`
	Decay struct {
		GraceDays           float64            `yaml:"grace_days"`
		HalfLifeDays        float64            `yaml:"half_life_days"`
		MinimumFloor        float64            `yaml:"minimum_floor"`
		DefaultCategoryRate float64            `yaml:"default_category_rate"`
		CategoryRates       map[string]float64 `yaml:"category_rates"`
	} `yaml:"decay"`
	Polling struct {
		MinimumTier     string   `yaml:"minimum_tier"`
		OppositionTerms []string `yaml:"opposition_terms"`
	} `yaml:"polling"`
}

// Default returns the embedded economics.
func Default() Economics {
	economics, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded tier config: %v", err))
	}
	return economics
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (Economics, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Economics{}, fmt.Errorf("read tier config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Economics, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Economics{}, fmt.Errorf("decode tier config: %w", err)
	}

	bands := make([]tiers.Band, 0, len(doc.Tiers))
	for _, item := range doc.Tiers {
		level, ok := tiers.ParseLevel(item.Level)
		if !ok {
			return Economics{}, fmt.Errorf("%w: unknown level %q", tiers.ErrInvalidTable, item.Level)
		}
		bands = append(bands, tiers.Band{Level: level, Weight: item.Weight, MinScore: item.MinScore})
	}
	table, err := tiers.NewTable(doc.Version, bands)
	if err != nil {
		return Economics{}, err
	}

	rates := make(map[string]float64, len(doc.Decay.CategoryRates))
	for category, rate := range doc.Decay.CategoryRates {
		rates[strings.ToLower(strings.TrimSpace(category))] = rate
	}

	minimum := tiers.LevelModerator
	if raw := strings.TrimSpace(doc.Polling.MinimumTier); raw != "" {
		level, ok := tiers.ParseLevel(raw)
		if !ok {
			return Economics{}, fmt.Errorf("polling minimum tier %q is unknown", raw)
		}
		minimum = level
	}

	return Economics{
		Table: table,
		Decay: Decay{
			GraceDays:           doc.Decay.GraceDays,
			HalfLifeDays:        doc.Decay.HalfLifeDays,
			MinimumFloor:        doc.Decay.MinimumFloor,
			DefaultCategoryRate: doc.Decay.DefaultCategoryRate,
			CategoryRates:       rates,
		},
		Polling: Polling{
			MinimumTier:     minimum,
			OppositionTerms: append([]string(nil), doc.Polling.OppositionTerms...),
		},
	}, nil
}
