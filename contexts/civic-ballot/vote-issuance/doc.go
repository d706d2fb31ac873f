// Package voteissuance implements vote token issuance inside the civic-ballot
// context.
//
// The module validates a ballot submission, enforces one live token per
// (ballot, per-ballot pseudonym), freezes the caller's tier weight into a signed
// token with a short TTL, and queues the token in an outbox. Workers relay the
// outbox into the ballot ledger in explicit batches and sweep expired
// reservations.
package voteissuance
