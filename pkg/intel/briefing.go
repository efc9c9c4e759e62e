package intel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

const (
	maxBriefingDocArticles = 100
	maxBriefingDocSignals  = 200
	maxBriefingDocStories  = 5
)

// BriefingDocResponse carries a rendered markdown intelligence
// briefing for publication.
type BriefingDocResponse struct {
	Timeframe    string `json:"timeframe"`
	ArticleCount int    `json:"article_count"`
	SignalCount  int    `json:"signal_count"`
	Markdown     string `json:"markdown"`
	GeneratedAt  string `json:"generated_at"`
}

// GenerateBriefing renders a markdown briefing covering recent
// articles (grouped into their top stories) and signal activity.
func (s *Service) GenerateBriefing(ctx context.Context, hours int, region string) (*BriefingDocResponse, error) {
	hours, _ = s.tier.Clamp(hours)
	cutoff := s.cutoff(hours)

	articles, err := s.store.Find(ctx, store.Query{
		Table:   "news_item",
		Columns: []string{"id", "title", "published", "story_id"},
		Filters: []store.Filter{store.Gte("published", cutoff)},
		OrderBy: "published",
		Desc:    true,
		Limit:   maxBriefingDocArticles,
	})
	if err != nil {
		return nil, s.fail("generate_briefing", err)
	}

	signalFilters := []store.Filter{store.Gte("created_at", cutoff)}
	if region != "" {
		signalFilters = append(signalFilters, store.IEq("target_region", region))
	}
	signals, err := s.store.Find(ctx, store.Query{
		Table:   "signal",
		Columns: []string{"signal_type", "target_region", "created_at"},
		Filters: signalFilters,
		OrderBy: "created_at",
		Desc:    true,
		Limit:   maxBriefingDocSignals,
	})
	if err != nil {
		return nil, s.fail("generate_briefing", err)
	}

	markdown, err := s.renderBriefing(ctx, hours, articles, signals)
	if err != nil {
		return nil, s.fail("generate_briefing", err)
	}

	return &BriefingDocResponse{
		Timeframe:    timeframe(hours),
		ArticleCount: len(articles),
		SignalCount:  len(signals),
		Markdown:     markdown,
		GeneratedAt:  s.stamp(),
	}, nil
}

func (s *Service) renderBriefing(ctx context.Context, hours int, articles, signals []store.Record) (string, error) {
	now := s.now().UTC()
	rule := strings.Repeat("─", 60)

	var b strings.Builder
	b.WriteString("# **THE PERIPHERAL**\n")
	b.WriteString("Intelligence Briefing\n")
	b.WriteString(now.Format("Monday, 02 January 2006 | 15:04 UTC") + "\n\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "**ARTICLES ANALYZED:** %d\n", len(articles))
	fmt.Fprintf(&b, "**SIGNALS TRACKED:** %d\n\n", len(signals))

	if len(articles) > 0 {
		fmt.Fprintf(&b, "## **TOP STORIES (%dH)**\n\n", hours)

		counts := map[string]int{}
		head := articles
		if len(head) > maxBriefingReturn {
			head = head[:maxBriefingReturn]
		}
		for _, a := range head {
			if id := a.Str("story_id"); id != "" {
				counts[id]++
			}
		}

		type storyCount struct {
			id    string
			count int
		}
		ranked := make([]storyCount, 0, len(counts))
		for id, count := range counts {
			ranked = append(ranked, storyCount{id, count})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].count != ranked[j].count {
				return ranked[i].count > ranked[j].count
			}
			return ranked[i].id < ranked[j].id
		})
		if len(ranked) > maxBriefingDocStories {
			ranked = ranked[:maxBriefingDocStories]
		}

		for _, sc := range ranked {
			story, err := s.fetchOne(ctx, "story", []string{"id", "title"}, sc.id)
			if err != nil {
				return "", err
			}
			if story == nil {
				continue
			}
			fmt.Fprintf(&b, "• **%s** (%d articles)\n", story.Str("title"), sc.count)
		}
		b.WriteString("\n")
	}

	if len(signals) > 0 {
		b.WriteString("## **MILITARY SIGNALS**\n\n")

		byType := map[string]int{}
		byRegion := map[string]int{}
		for _, sig := range signals {
			stype := sig.Str("signal_type")
			if stype == "" {
				stype = "unknown"
			}
			sigRegion := sig.Str("target_region")
			if sigRegion == "" {
				sigRegion = "unknown"
			}
			byType[stype]++
			byRegion[sigRegion]++
		}

		b.WriteString("**By Type:**\n")
		for _, kv := range sortedByCount(byType, 0) {
			fmt.Fprintf(&b, "• %s: %d events\n", kv.key, kv.count)
		}
		b.WriteString("\n**Active Regions:**\n")
		for _, kv := range sortedByCount(byRegion, 10) {
			fmt.Fprintf(&b, "• %s: %d signals\n", kv.key, kv.count)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString("Source: The Peripheral OSINT Platform")

	return b.String(), nil
}

type keyCount struct {
	key   string
	count int
}

func sortedByCount(m map[string]int, limit int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
