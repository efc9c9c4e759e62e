// Package intel is the aggregation core shared by the MCP and REST
// front ends: it resolves entity/story relationships across join
// tables, merges and ranks search hits, buckets signal activity into
// an escalation timeline, and enforces the tiered lookback policy.
package intel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// ServiceName identifies this service in health responses.
const ServiceName = "peripheral-mcp"

const (
	maxBriefingFetch  = 50
	maxBriefingReturn = 20
	maxSignalFetch    = 100
	maxSignalReturn   = 50
	maxTimelineFetch  = 1000
)

// Service exposes the curated intelligence operations. All operations
// are read-only, synchronous, and safe for concurrent use; the store
// connection is the only shared state.
type Service struct {
	store  store.Store
	tier   TierPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewService(st store.Store, tier TierPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tier.MaxHours <= 0 {
		tier.MaxHours = DefaultFreeTierHours
	}
	return &Service{store: st, tier: tier, logger: logger, now: time.Now}
}

func (s *Service) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Service) cutoff(hours int) string {
	return s.now().UTC().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)
}

func timeframe(hours int) string {
	return fmt.Sprintf("%dh", hours)
}

// fail logs unexpected faults with operation context and lets caller
// errors pass through untouched.
func (s *Service) fail(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	s.logger.Error(op+" failed", slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w", op, err)
}

// HealthCheck probes the store with a one-row read of the news table.
func (s *Service) HealthCheck(ctx context.Context) *HealthResponse {
	_, err := s.store.Find(ctx, store.Query{
		Table:   "news_item",
		Columns: []string{"id"},
		Limit:   1,
	})
	if err != nil {
		return &HealthResponse{
			Status:  "unhealthy",
			Service: ServiceName,
			Error:   err.Error(),
		}
	}
	return &HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: s.stamp(),
	}
}

// LatestBriefing returns the most recent articles in the window along
// with the count of distinct active sources. The region parameter is
// accepted for parity with callers but articles carry no region column
// to filter on; region-scoped views go through the signal operations.
func (s *Service) LatestBriefing(ctx context.Context, hours int, region string) (*BriefingResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "news_item",
		Filters: []store.Filter{store.Gte("published", s.cutoff(hours))},
		OrderBy: "published",
		Desc:    true,
		Limit:   maxBriefingFetch,
	})
	if err != nil {
		return nil, s.fail("get_latest_briefing", err)
	}

	articles := make([]Article, 0, len(rows))
	sources := map[string]int{}
	for _, row := range rows {
		articles = append(articles, FormatArticle(row))
		sources[row.Str("osint_source_id")]++
	}

	if len(articles) > maxBriefingReturn {
		articles = articles[:maxBriefingReturn]
	}

	return &BriefingResponse{
		Timeframe:     timeframe(hours),
		Count:         len(rows),
		Articles:      articles,
		SourcesActive: len(sources),
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}

// MilitarySignals returns recent signals for a region with a by-type
// breakdown.
func (s *Service) MilitarySignals(ctx context.Context, region string, hours int, signalType string) (*SignalsResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	filters := []store.Filter{
		store.Contains("target_region", region),
		store.Gte("created_at", s.cutoff(hours)),
	}
	if signalType != "" {
		filters = append(filters, store.Eq("signal_type", signalType))
	}

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "signal",
		Filters: filters,
		OrderBy: "created_at",
		Desc:    true,
		Limit:   maxSignalFetch,
	})
	if err != nil {
		return nil, s.fail("get_military_signals", err)
	}

	signals := make([]Signal, 0, len(rows))
	byType := map[string]int{}
	for _, row := range rows {
		signals = append(signals, FormatSignal(row))
		stype := row.Str("signal_type")
		if stype == "" {
			stype = "unknown"
		}
		byType[stype]++
	}

	if len(signals) > maxSignalReturn {
		signals = signals[:maxSignalReturn]
	}

	return &SignalsResponse{
		Region:        resolveRegion(rows, region),
		Timeframe:     timeframe(hours),
		Count:         len(rows),
		Signals:       signals,
		Breakdown:     byType,
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}

// TrendingStories returns the most recently created stories in the
// window.
func (s *Service) TrendingStories(ctx context.Context, hours, limit int) (*TrendingResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "story",
		Columns: []string{"id", "title", "summary", "created"},
		Filters: []store.Filter{store.Gte("created", s.cutoff(hours))},
		OrderBy: "created",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, s.fail("get_trending_stories", err)
	}

	return &TrendingResponse{
		Timeframe:     timeframe(hours),
		Count:         len(rows),
		Stories:       rows,
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}

// SearchStories searches story titles and summaries.
func (s *Service) SearchStories(ctx context.Context, query string, hours, limit int) (*StorySearchResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "story",
		Columns: []string{"id", "title", "summary", "description", "topic_keywords", "created", "updated", "source_count"},
		Filters: []store.Filter{
			store.ContainsAny("title", "summary", query),
			store.Gte("created", s.cutoff(hours)),
		},
		OrderBy: "created",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, s.fail("search_stories", err)
	}

	stories := make([]Story, 0, len(rows))
	for _, row := range rows {
		stories = append(stories, FormatStory(row))
	}

	return &StorySearchResponse{
		Query:         query,
		Timeframe:     timeframe(hours),
		Count:         len(stories),
		Stories:       stories,
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}

// SearchEntities searches one or all entity kind tables by name,
// merges the hits, and ranks them by match quality.
func (s *Service) SearchEntities(ctx context.Context, name, entityType string, limit int) (*EntitySearchResponse, error) {
	kinds := allKinds
	if entityType != "all" {
		kind, err := ParseKind(entityType)
		if err != nil {
			return nil, err
		}
		kinds = []Kind{kind}
	}

	results := []store.Record{}
	for _, kind := range kinds {
		spec := kindSpecs[kind]
		rows, err := s.store.Find(ctx, store.Query{
			Table:   spec.Table,
			Columns: spec.SearchColumns,
			Filters: []store.Filter{store.Contains("name", name)},
			Limit:   limit,
		})
		if err != nil {
			return nil, s.fail("search_entities", err)
		}
		for _, row := range rows {
			row["entity_type"] = string(kind)
			results = append(results, row)
		}
	}

	rankEntities(results, name)
	if len(results) > limit {
		results = results[:limit]
	}

	return &EntitySearchResponse{
		Query:       name,
		TypeFilter:  entityType,
		Count:       len(results),
		Entities:    results,
		GeneratedAt: s.stamp(),
	}, nil
}

// SearchArticles searches article titles and content.
func (s *Service) SearchArticles(ctx context.Context, query string, hours, limit int) (*ArticleSearchResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "news_item",
		Columns: []string{"id", "title", "content", "published", "author", "link", "sentiment_category", "story_id"},
		Filters: []store.Filter{
			store.ContainsAny("title", "content", query),
			store.Gte("published", s.cutoff(hours)),
		},
		OrderBy: "published",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, s.fail("search_articles", err)
	}

	articles := make([]Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, FormatArticle(row))
	}

	return &ArticleSearchResponse{
		Query:         query,
		Timeframe:     timeframe(hours),
		Count:         len(articles),
		Articles:      articles,
		GatingMessage: gatingMsg,
		GeneratedAt:   s.stamp(),
	}, nil
}

// SignalTimeline buckets a region's signals into hourly windows for
// escalation tracking.
func (s *Service) SignalTimeline(ctx context.Context, region string, hours int) (*TimelineResponse, error) {
	hours, gatingMsg := s.tier.Clamp(hours)

	rows, err := s.store.Find(ctx, store.Query{
		Table:   "signal",
		Columns: []string{"signal_type", "weapon_type", "alert_type", "target_region", "created_at"},
		Filters: []store.Filter{
			store.Contains("target_region", region),
			store.Gte("created_at", s.cutoff(hours)),
		},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   maxTimelineFetch,
	})
	if err != nil {
		return nil, s.fail("get_signal_timeline", err)
	}

	timeline, typeTotals, weaponTotals := buildTimeline(rows)

	return &TimelineResponse{
		Region:            resolveRegion(rows, region),
		Timeframe:         timeframe(hours),
		TotalSignals:      len(rows),
		HoursWithActivity: len(timeline),
		TypeTotals:        typeTotals,
		WeaponTotals:      weaponTotals,
		Timeline:          timeline,
		GatingMessage:     gatingMsg,
		GeneratedAt:       s.stamp(),
	}, nil
}
