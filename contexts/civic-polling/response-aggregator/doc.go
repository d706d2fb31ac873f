// Package responseaggregator implements tier-weighted poll analytics inside
// the civic-polling context: option tallies with per-tier breakdowns, impact,
// cross-tier alignment, pushback severity and fingerprinted report export.
package responseaggregator
