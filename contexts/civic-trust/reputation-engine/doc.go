// Package reputationengine implements the time-decayed reputation model inside
// the civic-trust context.
//
// Credentials are gathered concurrently from named sources; a failing source is
// skipped, never fatal. Each credential decays after a grace period by half-life
// and category rate, bounded below by a floor. The decayed total maps onto the
// configured tier table, which the tier resolver exposes to the ballot and
// polling contexts as a level and a frozen weight.
package reputationengine
