package intel

import (
	"context"
	"fmt"
	"sort"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

const (
	maxStoryArticles    = 50
	maxStoryEntities    = 20
	maxEntityNewsJoins  = 100
	maxEntityArticles   = 30
	maxEntityStoryJoins = 50
	maxEntityStories    = 20
)

// fetchOne reads a single record by id. A missing row comes back as
// (nil, nil); only store faults error.
func (s *Service) fetchOne(ctx context.Context, table string, columns []string, id string) (store.Record, error) {
	rows, err := s.store.Find(ctx, store.Query{
		Table:   table,
		Columns: columns,
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// StoryDetails resolves a story with its linked articles and entities.
// Join rows whose nested entity no longer exists are dropped silently:
// the upstream pipeline deletes entities without cleaning join tables.
func (s *Service) StoryDetails(ctx context.Context, storyID string) (*StoryDetailsResponse, error) {
	story, err := s.fetchOne(ctx, "story", nil, storyID)
	if err != nil {
		return nil, s.fail("get_story_details", err)
	}
	if story == nil {
		return nil, fmt.Errorf("%w: story %s", ErrNotFound, storyID)
	}

	articleRows, err := s.store.Find(ctx, store.Query{
		Table:   "news_item",
		Columns: []string{"id", "title", "content", "published", "author", "link", "sentiment_category"},
		Filters: []store.Filter{store.Eq("story_id", storyID)},
		OrderBy: "published",
		Desc:    true,
		Limit:   maxStoryArticles,
	})
	if err != nil {
		return nil, s.fail("get_story_details", err)
	}

	entities := StoryEntities{
		Persons:       []LinkedEntity{},
		Organisations: []LinkedEntity{},
		Locations:     []LinkedEntity{},
	}
	for _, kind := range storyDetailKinds {
		linked, err := s.linkedEntities(ctx, kind, storyID)
		if err != nil {
			return nil, s.fail("get_story_details", err)
		}
		switch kind {
		case KindPerson:
			entities.Persons = linked
		case KindOrganisation:
			entities.Organisations = linked
		case KindLocation:
			entities.Locations = linked
		}
	}

	articles := make([]Article, 0, len(articleRows))
	for _, row := range articleRows {
		articles = append(articles, FormatArticle(row))
	}

	return &StoryDetailsResponse{
		Story:        FormatStory(story),
		ArticleCount: len(articles),
		Articles:     articles,
		Entities:     entities,
		GeneratedAt:  s.stamp(),
	}, nil
}

// linkedEntities walks one story join table, resolving each join row's
// nested entity and skipping dangling references.
func (s *Service) linkedEntities(ctx context.Context, kind Kind, storyID string) ([]LinkedEntity, error) {
	spec := kindSpecs[kind]

	joins, err := s.store.Find(ctx, store.Query{
		Table:   spec.StoryJoinTable,
		Columns: []string{spec.StoryFK, "rank", "confidence"},
		Filters: []store.Filter{store.Eq("story_id", storyID)},
		OrderBy: "rank",
		Limit:   maxStoryEntities,
	})
	if err != nil {
		return nil, err
	}

	out := []LinkedEntity{}
	for _, join := range joins {
		ent, err := s.fetchOne(ctx, spec.Table, spec.DetailColumns, join.Str(spec.StoryFK))
		if err != nil {
			return nil, err
		}
		if ent == nil {
			continue
		}

		le := LinkedEntity{
			ID:         ent.Str("id"),
			Name:       ent.Str("name"),
			Rank:       join.IntPtr("rank"),
			Confidence: join.FloatPtr("confidence"),
		}
		switch kind {
		case KindPerson:
			le.Role = ent.StrPtr("role")
		case KindOrganisation:
			le.OrgType = ent.StrPtr("org_type")
		case KindLocation:
			le.Lat = ent.FloatPtr("lat")
			le.Lon = ent.FloatPtr("lon")
			le.CountryCode = ent.StrPtr("country_code")
		}
		out = append(out, le)
	}
	return out, nil
}

// EntityContext resolves the articles and stories mentioning an
// entity within the lookback window. The join tables carry no
// timestamp, so the cutoff is applied in-process against the nested
// record after the read.
func (s *Service) EntityContext(ctx context.Context, entityType, entityID string, hours int) (*EntityContextResponse, error) {
	kind, err := ParseKind(entityType)
	if err != nil {
		return nil, err
	}
	spec := kindSpecs[kind]

	hours, gatingMsg := s.tier.Clamp(hours)
	cutoff := s.cutoff(hours)

	entity, err := s.fetchOne(ctx, spec.Table, nil, entityID)
	if err != nil {
		return nil, s.fail("get_entity_context", err)
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: %s with id %s", ErrNotFound, kind, entityID)
	}

	newsJoins, err := s.store.Find(ctx, store.Query{
		Table:   spec.NewsJoinTable,
		Columns: []string{spec.NewsFK, "news_item_id"},
		Filters: []store.Filter{store.Eq(spec.NewsFK, entityID)},
		Limit:   maxEntityNewsJoins,
	})
	if err != nil {
		return nil, s.fail("get_entity_context", err)
	}

	articles := []EntityArticle{}
	for _, join := range newsJoins {
		ni, err := s.fetchOne(ctx, "news_item",
			[]string{"id", "title", "published", "link", "sentiment_category"},
			join.Str("news_item_id"))
		if err != nil {
			return nil, s.fail("get_entity_context", err)
		}
		if ni == nil {
			continue
		}
		published := ni.Str("published")
		if published == "" || published < cutoff {
			continue
		}
		articles = append(articles, EntityArticle{
			ID:        ni.Str("id"),
			Title:     ni.Str("title"),
			Published: published,
			Link:      ni.StrPtr("link"),
			Sentiment: ni.StrPtr("sentiment_category"),
		})
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Published > articles[j].Published })
	total := len(articles)
	if len(articles) > maxEntityArticles {
		articles = articles[:maxEntityArticles]
	}

	// Story joins use spec.StoryFK, which for location is location_id
	// rather than the news-join FK; see kinds.go.
	storyJoins, err := s.store.Find(ctx, store.Query{
		Table:   spec.StoryJoinTable,
		Columns: []string{"story_id", "rank", "confidence"},
		Filters: []store.Filter{store.Eq(spec.StoryFK, entityID)},
		Limit:   maxEntityStoryJoins,
	})
	if err != nil {
		return nil, s.fail("get_entity_context", err)
	}

	stories := []EntityStory{}
	for _, join := range storyJoins {
		st, err := s.fetchOne(ctx, "story",
			[]string{"id", "title", "summary", "created"},
			join.Str("story_id"))
		if err != nil {
			return nil, s.fail("get_entity_context", err)
		}
		if st == nil {
			continue
		}
		created := st.Str("created")
		if created == "" || created < cutoff {
			continue
		}
		stories = append(stories, EntityStory{
			ID:      st.Str("id"),
			Title:   st.Str("title"),
			Summary: st.StrPtr("summary"),
			Created: created,
			Rank:    join.IntPtr("rank"),
		})
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].Created > stories[j].Created })
	storyTotal := len(stories)
	if len(stories) > maxEntityStories {
		stories = stories[:maxEntityStories]
	}

	return &EntityContextResponse{
		Entity: EntityRef{
			ID:   entity.Str("id"),
			Name: entity.Str("name"),
			Type: string(kind),
		},
		Timeframe:     timeframe(hours),
		ArticleCount:  total,
		Articles:      articles,
		StoryCount:    storyTotal,
		Stories:       stories,
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}
