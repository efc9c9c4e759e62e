package intel

import (
	"sort"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// hourKey truncates an ISO-8601 timestamp to hour granularity:
// "2026-02-24T14:35:00+00:00" -> "2026-02-24T14:00". Timestamps
// shorter than the YYYY-MM-DDTHH prefix pass through as a degenerate
// bucket key. Lexicographic order on the result is chronological.
func hourKey(ts string) string {
	if len(ts) < 13 {
		return ts
	}
	return ts[:13] + ":00"
}

// effectiveType is the breakdown key for a signal: signal_type when
// present, else alert_type, else "unknown".
func effectiveType(r store.Record) string {
	if t := r.Str("signal_type"); t != "" {
		return t
	}
	if t := r.Str("alert_type"); t != "" {
		return t
	}
	return "unknown"
}

// buildTimeline buckets signals into hourly windows and computes the
// overall type/weapon totals across the whole set. Every input row
// lands in exactly one bucket; rows without a weapon_type are excluded
// from the weapon breakdowns rather than counted as unknown.
func buildTimeline(signals []store.Record) (timeline []TimelineBucket, typeTotals, weaponTotals map[string]int) {
	buckets := map[string]*TimelineBucket{}
	typeTotals = map[string]int{}
	weaponTotals = map[string]int{}

	for _, sig := range signals {
		key := hourKey(sig.Str("created_at"))
		b, ok := buckets[key]
		if !ok {
			b = &TimelineBucket{
				Hour:     key,
				ByType:   map[string]int{},
				ByWeapon: map[string]int{},
			}
			buckets[key] = b
		}

		b.Count++
		stype := effectiveType(sig)
		b.ByType[stype]++
		typeTotals[stype]++

		if weapon := sig.Str("weapon_type"); weapon != "" {
			b.ByWeapon[weapon]++
			weaponTotals[weapon]++
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	timeline = make([]TimelineBucket, 0, len(keys))
	for _, key := range keys {
		timeline = append(timeline, *buckets[key])
	}
	return timeline, typeTotals, weaponTotals
}

// resolveRegion prefers the stored region spelling from the first
// result row over the caller's input, whose casing may differ.
func resolveRegion(rows []store.Record, requested string) string {
	if len(rows) > 0 {
		if actual := rows[0].Str("target_region"); actual != "" {
			return actual
		}
	}
	return requested
}
