package entities

import (
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

const (
	DefaultBaseline = 100
	MinOptions      = 2
	MaxOptions      = 20
)

type Poll struct {
	PollID      string
	Title       string
	Options     []string
	MultiSelect bool
	Baseline    int
	ClosesAt    time.Time
	CreatedBy   string
	CreatedAt   time.Time
}

// Closed reports whether the poll stopped taking responses at now.
func (p Poll) Closed(now time.Time) bool {
	return !p.ClosesAt.IsZero() && !now.Before(p.ClosesAt)
}

func (p Poll) HasOption(option string) bool {
	for _, item := range p.Options {
		if item == option {
			return true
		}
	}
	return false
}

// PollResponse is one recorded answer. Tier and Weight are frozen at
// submission time.
type PollResponse struct {
	ResponseID    string
	PollID        string
	ResponderHash string
	Tier          tiers.Level
	Weight        float64
	Selected      []string
	Comment       string
	SubmittedAt   time.Time
	KeyID         string
	Signature     string
}
