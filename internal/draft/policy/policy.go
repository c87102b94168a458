// Package policy implements per-position roster ceilings. Manual pick
// validation and autopick filtering both use the same predicate.
package policy

import (
	"github.com/bestballhq/draftengine/internal/models"
)

// Permits reports whether a participant with the given roster counts may add
// another player at pos under the given limits. A position with no configured
// limit is unlimited.
func Permits(counts models.RosterCounts, limits models.PositionalLimits, pos models.Position) bool {
	limit, ok := limits[pos]
	if !ok {
		return true
	}
	return counts[pos] < limit
}

// Saturated reports whether every remaining position in the pool is at or
// over its limit, i.e. no available player would pass Permits.
func Saturated(counts models.RosterCounts, limits models.PositionalLimits, available []models.Player) bool {
	for _, p := range available {
		if Permits(counts, limits, p.Position) {
			return false
		}
	}
	return len(available) > 0
}

// ValidateLimits checks a participant-supplied limits map: every key must be a
// known position and every value non-negative.
func ValidateLimits(limits models.PositionalLimits) error {
	for pos, max := range limits {
		if _, err := models.ParsePosition(string(pos)); err != nil {
			return err
		}
		if max < 0 {
			return &LimitError{Position: pos, Max: max}
		}
	}
	return nil
}

// LimitError reports an invalid limit value.
type LimitError struct {
	Position models.Position
	Max      int
}

func (e *LimitError) Error() string {
	return "negative positional limit for " + string(e.Position)
}
