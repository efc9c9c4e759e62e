package server

import (
	"fmt"
	"unicode/utf8"

	"github.com/peripheralhq/peripheral-mcp/pkg/intel"
)

const (
	minQueryRunes = 2
	maxQueryRunes = 200

	minHours = 1
	maxHours = 8760

	defaultBriefingHours = 24
	defaultSignalHours   = 24
	defaultTrendingHours = 24
	defaultSearchHours   = 168

	defaultTrendingLimit = 10
	defaultStoryLimit    = 20
	defaultEntityLimit   = 20
	defaultArticleLimit  = 50

	maxStoryLimit   = 50
	maxEntityLimit  = 50
	maxArticleLimit = 100
)

// normalizeHours applies the per-tool default for an unset lookback and
// rejects values outside the sane range. Free-tier clamping happens in
// the service layer, not here.
func normalizeHours(hours, def int) (int, error) {
	if hours == 0 {
		return def, nil
	}
	if hours < minHours || hours > maxHours {
		return 0, fmt.Errorf("%w: hours must be between %d and %d", intel.ErrInvalidArgument, minHours, maxHours)
	}
	return hours, nil
}

// clampLimit applies the default for an unset limit and caps the rest.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// validateQuery enforces the search-term length bounds in runes.
func validateQuery(q string) error {
	n := utf8.RuneCountInString(q)
	if n < minQueryRunes || n > maxQueryRunes {
		return fmt.Errorf("%w: query must be between %d and %d characters", intel.ErrInvalidArgument, minQueryRunes, maxQueryRunes)
	}
	return nil
}
