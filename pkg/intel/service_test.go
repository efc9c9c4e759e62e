package intel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// fakeStore routes Find calls through a test-supplied function and
// captures Insert calls.
type fakeStore struct {
	mu       sync.Mutex
	findFn   func(q store.Query) ([]store.Record, error)
	inserts  []insertCall
	insertErr error
	pingErr  error
}

type insertCall struct {
	table string
	rec   store.Record
}

func (f *fakeStore) Find(ctx context.Context, q store.Query) ([]store.Record, error) {
	if f.findFn == nil {
		return []store.Record{}, nil
	}
	return f.findFn(q)
}

func (f *fakeStore) Insert(ctx context.Context, table string, rec store.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, insertCall{table: table, rec: rec})
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error                   { return nil }

func (f *fakeStore) insertCalls() []insertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]insertCall{}, f.inserts...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(st store.Store) *Service {
	svc := NewService(st, TierPolicy{}, testLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		resp := svc.HealthCheck(context.Background())
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, ServiceName, resp.Service)
		assert.NotEmpty(t, resp.Timestamp)
	})

	t.Run("unhealthy", func(t *testing.T) {
		st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
			return nil, store.ErrUnavailable
		}}
		svc := newTestService(st)
		resp := svc.HealthCheck(context.Background())
		assert.Equal(t, "unhealthy", resp.Status)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestLatestBriefing(t *testing.T) {
	rows := []store.Record{
		{"id": "a1", "title": "one", "published": "2026-03-01T11:00:00Z", "osint_source_id": "s1"},
		{"id": "a2", "title": "two", "published": "2026-03-01T10:00:00Z", "osint_source_id": "s2"},
		{"id": "a3", "title": "three", "published": "2026-03-01T09:00:00Z", "osint_source_id": "s1"},
	}
	var captured store.Query
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		captured = q
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.LatestBriefing(context.Background(), 24, "")
	require.NoError(t, err)

	assert.Equal(t, "news_item", captured.Table)
	assert.Equal(t, "24h", resp.Timeframe)
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Articles, 3)
	assert.Equal(t, 2, resp.SourcesActive)
	assert.Empty(t, resp.GatingMessage)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.GeneratedAt)
}

func TestLatestBriefing_ClampsToTierCeiling(t *testing.T) {
	svc := newTestService(&fakeStore{})

	resp, err := svc.LatestBriefing(context.Background(), 1000, "")
	require.NoError(t, err)
	assert.Equal(t, "720h", resp.Timeframe)
	assert.Equal(t, "Free tier limited to 720h (30 days). Requested 1000h was clamped.", resp.GatingMessage)
}

func TestMilitarySignals(t *testing.T) {
	rows := []store.Record{
		{"signal_type": "uav", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T11:00:00Z"},
		{"signal_type": "uav", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T10:00:00Z"},
		{"signal_type": "", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T09:00:00Z"},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		assert.Equal(t, "signal", q.Table)
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.MilitarySignals(context.Background(), "kharkiv", 24, "")
	require.NoError(t, err)

	// stored spelling wins over the caller's casing
	assert.Equal(t, "Kharkiv Oblast", resp.Region)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, map[string]int{"uav": 2, "unknown": 1}, resp.Breakdown)
}

func TestMilitarySignals_StoreFault(t *testing.T) {
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		return nil, store.ErrUnavailable
	}}
	svc := newTestService(st)

	_, err := svc.MilitarySignals(context.Background(), "kharkiv", 24, "")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTrendingStories(t *testing.T) {
	rows := []store.Record{
		{"id": "s1", "title": "one", "created": "2026-03-01T11:00:00Z"},
		{"id": "s2", "title": "two", "created": "2026-03-01T10:00:00Z"},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		assert.Equal(t, "story", q.Table)
		assert.Equal(t, 10, q.Limit)
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.TrendingStories(context.Background(), 24, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, rows, resp.Stories)
}

func TestSearchStories(t *testing.T) {
	rows := []store.Record{
		{"id": "s1", "title": "ceasefire talks", "summary": "x", "created": "2026-03-01T11:00:00Z"},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.SearchStories(context.Background(), "ceasefire", 168, 20)
	require.NoError(t, err)
	assert.Equal(t, "ceasefire", resp.Query)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Stories, 1)
	assert.Equal(t, "s1", resp.Stories[0].ID)
}

func TestSearchEntities_AllKindsMergedAndRanked(t *testing.T) {
	byTable := map[string][]store.Record{
		"entity_person":       {{"id": "p1", "name": "Volkov Timur"}},
		"entity_organisation": {{"id": "o1", "name": "Volkov Group"}},
		"entity_location":     {},
		"entity_country":      {{"id": "c1", "name": "volkov"}},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		rows, ok := byTable[q.Table]
		require.True(t, ok, "unexpected table %s", q.Table)
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.SearchEntities(context.Background(), "volkov", "all", 20)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Count)

	// exact match first, then prefix matches in lexicographic order
	assert.Equal(t, "c1", resp.Entities[0].Str("id"))
	assert.Equal(t, "country", resp.Entities[0].Str("entity_type"))
	assert.Equal(t, "o1", resp.Entities[1].Str("id"))
	assert.Equal(t, "p1", resp.Entities[2].Str("id"))
}

func TestSearchEntities_SingleKind(t *testing.T) {
	var tables []string
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		tables = append(tables, q.Table)
		return []store.Record{}, nil
	}}
	svc := newTestService(st)

	_, err := svc.SearchEntities(context.Background(), "volkov", "person", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"entity_person"}, tables)
}

func TestSearchEntities_InvalidType(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SearchEntities(context.Background(), "volkov", "asteroid", 20)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearchArticles(t *testing.T) {
	rows := []store.Record{
		{"id": "a1", "title": "drone strike", "content": "body", "published": "2026-03-01T11:00:00Z"},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.SearchArticles(context.Background(), "drone", 168, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "a1", resp.Articles[0].ID)
}

func TestSignalTimeline(t *testing.T) {
	rows := []store.Record{
		{"signal_type": "uav", "weapon_type": "shahed", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T10:15:00Z"},
		{"signal_type": "uav", "weapon_type": "shahed", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T10:45:00Z"},
		{"signal_type": "missile", "weapon_type": "", "target_region": "Kharkiv Oblast", "created_at": "2026-03-01T11:05:00Z"},
	}
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		return rows, nil
	}}
	svc := newTestService(st)

	resp, err := svc.SignalTimeline(context.Background(), "kharkiv", 24)
	require.NoError(t, err)

	assert.Equal(t, "Kharkiv Oblast", resp.Region)
	assert.Equal(t, 3, resp.TotalSignals)
	assert.Equal(t, 2, resp.HoursWithActivity)
	assert.Equal(t, map[string]int{"uav": 2, "missile": 1}, resp.TypeTotals)
	assert.Equal(t, map[string]int{"shahed": 2}, resp.WeaponTotals)

	// every signal lands in exactly one bucket
	sum := 0
	for _, b := range resp.Timeline {
		sum += b.Count
	}
	assert.Equal(t, resp.TotalSignals, sum)
}

func TestErrorsAreNotMaskedAsCallerErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	st := &fakeStore{findFn: func(q store.Query) ([]store.Record, error) {
		return nil, boom
	}}
	svc := newTestService(st)

	_, err := svc.SearchArticles(context.Background(), "drone", 24, 10)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
}
