package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// NormalizeFilter applies defaults and rejects contradictory bounds.
func NormalizeFilter(filter entities.Filter) (entities.Filter, error) {
	filter.BallotID = strings.TrimSpace(filter.BallotID)
	filter.SortBy = entities.SortField(strings.ToLower(strings.TrimSpace(string(filter.SortBy))))
	switch filter.SortBy {
	case "":
		filter.SortBy = entities.SortByPosition
	case entities.SortByPosition, entities.SortByTimestamp, entities.SortByWeight:
	default:
		return entities.Filter{}, fmt.Errorf("%w: unknown sort field %q", domainerrors.ErrInvalidFilter, filter.SortBy)
	}
	switch {
	case filter.Offset < 0:
		return entities.Filter{}, fmt.Errorf("%w: offset must be non-negative", domainerrors.ErrInvalidFilter)
	case filter.Limit < 0:
		return entities.Filter{}, fmt.Errorf("%w: limit must be non-negative", domainerrors.ErrInvalidFilter)
	case filter.MinWeight < 0 || filter.MaxWeight < 0:
		return entities.Filter{}, fmt.Errorf("%w: weights must be non-negative", domainerrors.ErrInvalidFilter)
	case filter.MaxWeight > 0 && filter.MaxWeight < filter.MinWeight:
		return entities.Filter{}, fmt.Errorf("%w: max_weight below min_weight", domainerrors.ErrInvalidFilter)
	case !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From):
		return entities.Filter{}, fmt.Errorf("%w: to before from", domainerrors.ErrInvalidFilter)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	return filter, nil
}

// Matches reports whether an entry passes every bound of a normalized filter.
func Matches(entry entities.LedgerEntry, filter entities.Filter) bool {
	if !entry.Active && !filter.IncludeInactive {
		return false
	}
	if filter.BallotID != "" && entry.Token.BallotID != filter.BallotID {
		return false
	}
	issued := entry.Token.IssuedAt
	if !filter.From.IsZero() && issued.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && issued.After(filter.To) {
		return false
	}
	if entry.Token.Weight < filter.MinWeight {
		return false
	}
	if filter.MaxWeight > 0 && entry.Token.Weight > filter.MaxWeight {
		return false
	}
	return true
}

// Page sorts matched entries and cuts the requested window. Ties on the sort
// key fall back to ledger position.
func Page(matched []entities.LedgerEntry, filter entities.Filter) entities.QueryResult {
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch filter.SortBy {
		case entities.SortByTimestamp:
			equal = a.Token.IssuedAt.Equal(b.Token.IssuedAt)
			less = a.Token.IssuedAt.Before(b.Token.IssuedAt)
		case entities.SortByWeight:
			equal = a.Token.Weight == b.Token.Weight
			less = a.Token.Weight < b.Token.Weight
		default:
			equal = a.Position == b.Position
			less = a.Position < b.Position
		}
		if equal {
			if filter.Descending {
				return a.Position > b.Position
			}
			return a.Position < b.Position
		}
		if filter.Descending {
			return !less
		}
		return less
	})

	result := entities.QueryResult{
		Total:  len(matched),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}
	if filter.Offset >= len(matched) {
		result.Entries = []entities.LedgerEntry{}
		return result
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	result.Entries = append([]entities.LedgerEntry(nil), matched[filter.Offset:end]...)
	return result
}
