package intel

import (
	"sort"
	"strings"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// rankEntities orders fuzzy name-search hits by match quality:
// tier 0 exact match, tier 1 prefix match, tier 2 any other substring
// match, all case-insensitive, tie-broken lexicographically on the
// lowercased name. The sort is stable, so insertion order survives
// beyond the tie-break.
func rankEntities(hits []store.Record, query string) {
	q := strings.ToLower(query)
	sort.SliceStable(hits, func(i, j int) bool {
		ni := strings.ToLower(hits[i].Str("name"))
		nj := strings.ToLower(hits[j].Str("name"))
		ti := matchTier(ni, q)
		tj := matchTier(nj, q)
		if ti != tj {
			return ti < tj
		}
		return ni < nj
	})
}

func matchTier(name, query string) int {
	switch {
	case name == query:
		return 0
	case strings.HasPrefix(name, query):
		return 1
	default:
		return 2
	}
}
