// Package ballotledger implements the append-only vote-token ledger inside the
// civic-ballot context.
//
// Every accepted token receives the next ledger position and a digest chained
// to the previous entry. Positions are never reused; an administrative expire
// only flips the active flag. The ballot, day and weight-bucket indexes are
// rebuilt from the log on start and never persisted on their own.
package ballotledger
