package intel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// queueStore answers Find calls per table in FIFO order. Filters are
// opaque at this layer, so response sequencing stands in for them:
// nested lookups happen in join-row order.
type queueStore struct {
	queues map[string][][]store.Record
}

func (s *queueStore) Find(_ context.Context, q store.Query) ([]store.Record, error) {
	qs := s.queues[q.Table]
	if len(qs) == 0 {
		return []store.Record{}, nil
	}
	head := qs[0]
	s.queues[q.Table] = qs[1:]
	return head, nil
}

func (s *queueStore) Insert(context.Context, string, store.Record) error { return nil }
func (s *queueStore) Ping(context.Context) error                         { return nil }
func (s *queueStore) Close() error                                       { return nil }

func TestStoryDetails(t *testing.T) {
	st := &queueStore{queues: map[string][][]store.Record{
		"story": {
			{{"id": "s1", "title": "Front shifts east", "created": "2026-03-01T08:00:00Z"}},
		},
		"news_item": {
			{
				{"id": "a1", "title": "first", "published": "2026-03-01T09:00:00Z"},
				{"id": "a2", "title": "second", "published": "2026-03-01T08:30:00Z"},
			},
		},
		"story_entity_person": {
			{
				{"person_id": "p1", "rank": int64(1), "confidence": 0.9},
				{"person_id": "p-deleted", "rank": int64(2), "confidence": 0.4},
			},
		},
		"entity_person": {
			{{"id": "p1", "name": "Ivan Petrov", "role": "minister"}},
			{}, // p-deleted: dangling join row
		},
		"story_entity_location": {
			{{"location_id": "l1", "rank": int64(1), "confidence": 0.8}},
		},
		"entity_location": {
			{{"id": "l1", "name": "Kharkiv", "lat": 49.99, "lon": 36.23, "country_code": "UA"}},
		},
	}}
	svc := newTestService(st)

	resp, err := svc.StoryDetails(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", resp.Story.ID)
	assert.Equal(t, 2, resp.ArticleCount)
	require.Len(t, resp.Articles, 2)
	assert.Equal(t, "a1", resp.Articles[0].ID)

	// the dangling person join is dropped silently
	require.Len(t, resp.Entities.Persons, 1)
	p := resp.Entities.Persons[0]
	assert.Equal(t, "Ivan Petrov", p.Name)
	require.NotNil(t, p.Role)
	assert.Equal(t, "minister", *p.Role)
	require.NotNil(t, p.Rank)
	assert.Equal(t, 1, *p.Rank)

	assert.Empty(t, resp.Entities.Organisations)

	require.Len(t, resp.Entities.Locations, 1)
	l := resp.Entities.Locations[0]
	require.NotNil(t, l.Lat)
	assert.Equal(t, 49.99, *l.Lat)
	require.NotNil(t, l.CountryCode)
	assert.Equal(t, "UA", *l.CountryCode)
}

func TestStoryDetails_NotFound(t *testing.T) {
	svc := newTestService(&queueStore{queues: map[string][][]store.Record{}})

	_, err := svc.StoryDetails(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestEntityContext(t *testing.T) {
	// now is 2026-03-01T12:00Z and hours=168, so the cutoff falls at
	// 2026-02-22T12:00Z
	st := &queueStore{queues: map[string][][]store.Record{
		"entity_person": {
			{{"id": "p1", "name": "Ivan Petrov", "role": "minister"}},
		},
		"news_item_entity_person": {
			{
				{"person_id": "p1", "news_item_id": "a-recent"},
				{"person_id": "p1", "news_item_id": "a-stale"},
				{"person_id": "p1", "news_item_id": "a-deleted"},
			},
		},
		"news_item": {
			{{"id": "a-recent", "title": "recent", "published": "2026-03-01T11:00:00Z"}},
			{{"id": "a-stale", "title": "stale", "published": "2026-02-21T04:00:00Z"}},
			{}, // a-deleted: dangling join row
		},
		"story_entity_person": {
			{{"story_id": "st1", "rank": int64(1), "confidence": 0.7}},
		},
		"story": {
			{{"id": "st1", "title": "Cabinet reshuffle", "created": "2026-03-01T10:00:00Z"}},
		},
	}}
	svc := newTestService(st)

	resp, err := svc.EntityContext(context.Background(), "person", "p1", 168)
	require.NoError(t, err)

	assert.Equal(t, "p1", resp.Entity.ID)
	assert.Equal(t, "person", resp.Entity.Type)
	assert.Equal(t, "168h", resp.Timeframe)

	// one hour old is in the window, 200 hours old is not
	assert.Equal(t, 1, resp.ArticleCount)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "a-recent", resp.Articles[0].ID)

	assert.Equal(t, 1, resp.StoryCount)
	require.Len(t, resp.Stories, 1)
	assert.Equal(t, "st1", resp.Stories[0].ID)
}

func TestEntityContext_NotFound(t *testing.T) {
	svc := newTestService(&queueStore{queues: map[string][][]store.Record{}})

	_, err := svc.EntityContext(context.Background(), "person", "p-missing", 24)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "person")
	assert.Contains(t, err.Error(), "p-missing")
}

func TestEntityContext_InvalidType(t *testing.T) {
	svc := newTestService(&queueStore{queues: map[string][][]store.Record{}})

	_, err := svc.EntityContext(context.Background(), "asteroid", "x", 24)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"person", "organisation", "location", "country", " Person ", "COUNTRY"} {
		k, err := ParseKind(valid)
		require.NoError(t, err, valid)
		assert.NotEmpty(t, k)
	}

	_, err := ParseKind("org")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "org")
}
