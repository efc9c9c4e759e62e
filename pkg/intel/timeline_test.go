package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

func TestHourKey(t *testing.T) {
	tests := []struct {
		ts   string
		want string
	}{
		{"2026-02-24T14:35:00+00:00", "2026-02-24T14:00"},
		{"2026-02-24T14:35:00Z", "2026-02-24T14:00"},
		{"2026-02-24T00:01:59Z", "2026-02-24T00:00"},
		{"2026-02-24", "2026-02-24"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hourKey(tt.ts), "hourKey(%q)", tt.ts)
	}
}

func TestEffectiveType(t *testing.T) {
	assert.Equal(t, "uav", effectiveType(store.Record{"signal_type": "uav", "alert_type": "air_raid"}))
	assert.Equal(t, "air_raid", effectiveType(store.Record{"signal_type": "", "alert_type": "air_raid"}))
	assert.Equal(t, "unknown", effectiveType(store.Record{}))
}

func TestBuildTimeline(t *testing.T) {
	signals := []store.Record{
		{"created_at": "2026-03-01T10:05:00Z", "signal_type": "uav", "weapon_type": "shahed"},
		{"created_at": "2026-03-01T10:55:00Z", "signal_type": "uav", "weapon_type": "shahed"},
		{"created_at": "2026-03-01T11:10:00Z", "signal_type": "missile", "weapon_type": "iskander"},
		{"created_at": "2026-03-01T09:00:00Z", "alert_type": "air_raid"},
	}

	timeline, typeTotals, weaponTotals := buildTimeline(signals)

	// buckets sorted chronologically
	assert.Equal(t, []string{"2026-03-01T09:00", "2026-03-01T10:00", "2026-03-01T11:00"},
		[]string{timeline[0].Hour, timeline[1].Hour, timeline[2].Hour})

	// each signal lands in exactly one bucket
	sum := 0
	for _, b := range timeline {
		sum += b.Count
	}
	assert.Equal(t, len(signals), sum)

	assert.Equal(t, map[string]int{"uav": 2, "missile": 1, "air_raid": 1}, typeTotals)
	// signals without a weapon are excluded, not counted as unknown
	assert.Equal(t, map[string]int{"shahed": 2, "iskander": 1}, weaponTotals)

	assert.Equal(t, map[string]int{"uav": 2}, timeline[1].ByType)
	assert.Equal(t, map[string]int{"shahed": 2}, timeline[1].ByWeapon)
	assert.Empty(t, timeline[0].ByWeapon)
}

func TestBuildTimeline_Empty(t *testing.T) {
	timeline, typeTotals, weaponTotals := buildTimeline(nil)
	assert.Empty(t, timeline)
	assert.Empty(t, typeTotals)
	assert.Empty(t, weaponTotals)
}

func TestResolveRegion(t *testing.T) {
	rows := []store.Record{{"target_region": "Kharkiv Oblast"}}
	assert.Equal(t, "Kharkiv Oblast", resolveRegion(rows, "kharkiv"))
	assert.Equal(t, "kharkiv", resolveRegion(nil, "kharkiv"))
	assert.Equal(t, "kharkiv", resolveRegion([]store.Record{{}}, "kharkiv"))
}
