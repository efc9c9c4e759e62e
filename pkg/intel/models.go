package intel

import "github.com/peripheralhq/peripheral-mcp/pkg/store"

// Public response shapes. Nullable source columns stay pointers so a
// null in the store survives to the caller instead of collapsing to
// "". Timestamps are ISO-8601 UTC strings end to end.

// Article is the public projection of a news_item row.
type Article struct {
	ID        string  `json:"id"`
	Title     *string `json:"title"`
	Content   string  `json:"content"`
	Published *string `json:"published"`
	Author    *string `json:"author"`
	Link      *string `json:"link"`
	Sentiment *string `json:"sentiment"`
	StoryID   *string `json:"story_id"`
}

// Signal is the public projection of a signal row.
type Signal struct {
	Type        *string `json:"type"`
	Weapon      *string `json:"weapon"`
	Location    *string `json:"location"`
	Region      *string `json:"region"`
	Direction   *string `json:"direction"`
	AlertType   *string `json:"alert_type"`
	AlertStatus *string `json:"alert_status"`
	Timestamp   *string `json:"timestamp"`
}

// Story is the public projection of a story row.
type Story struct {
	ID            string  `json:"id"`
	Title         *string `json:"title"`
	Summary       *string `json:"summary"`
	Description   *string `json:"description"`
	TopicKeywords any     `json:"topic_keywords"`
	Created       *string `json:"created"`
	Updated       *string `json:"updated"`
	SourceCount   *int    `json:"source_count"`
}

// LinkedEntity is one entity attached to a story, carrying its join
// metadata. Kind-specific attributes are omitted when not applicable.
type LinkedEntity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        *string  `json:"role,omitempty"`
	OrgType     *string  `json:"type,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	CountryCode *string  `json:"country_code,omitempty"`
	Rank        *int     `json:"rank"`
	Confidence  *float64 `json:"confidence"`
}

// StoryEntities groups the entity kinds resolved for story detail.
type StoryEntities struct {
	Persons       []LinkedEntity `json:"persons"`
	Organisations []LinkedEntity `json:"organisations"`
	Locations     []LinkedEntity `json:"locations"`
}

// EntityArticle is the trimmed article shape inside entity context.
type EntityArticle struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Published string  `json:"published"`
	Link      *string `json:"link"`
	Sentiment *string `json:"sentiment"`
}

// EntityStory is the trimmed story shape inside entity context.
type EntityStory struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Summary *string `json:"summary"`
	Created string  `json:"created"`
	Rank    *int    `json:"rank"`
}

// EntityRef identifies the entity a context response is about.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TimelineBucket is one hour of signal activity.
type TimelineBucket struct {
	Hour     string         `json:"hour"`
	Count    int            `json:"count"`
	ByType   map[string]int `json:"by_type"`
	ByWeapon map[string]int `json:"by_weapon"`
}

// Response envelopes. GatingMessage is present only when the requested
// window was clamped to the caller's tier ceiling.

type BriefingResponse struct {
	Timeframe     string    `json:"timeframe"`
	Count         int       `json:"count"`
	Articles      []Article `json:"articles"`
	SourcesActive int       `json:"sources_active"`
	GatingMessage string    `json:"gating_message,omitempty"`
	GeneratedAt   string    `json:"generated_at"`
}

type SignalsResponse struct {
	Region        string         `json:"region"`
	Timeframe     string         `json:"timeframe"`
	Count         int            `json:"count"`
	Signals       []Signal       `json:"signals"`
	Breakdown     map[string]int `json:"breakdown"`
	GatingMessage string         `json:"gating_message,omitempty"`
	GeneratedAt   string         `json:"generated_at"`
}

type TrendingResponse struct {
	Timeframe     string         `json:"timeframe"`
	Count         int            `json:"count"`
	Stories       []store.Record `json:"stories"`
	GatingMessage string         `json:"gating_message,omitempty"`
	GeneratedAt   string         `json:"generated_at"`
}

type StorySearchResponse struct {
	Query         string  `json:"query"`
	Timeframe     string  `json:"timeframe"`
	Count         int     `json:"count"`
	Stories       []Story `json:"stories"`
	GatingMessage string  `json:"gating_message,omitempty"`
	GeneratedAt   string  `json:"generated_at"`
}

type StoryDetailsResponse struct {
	Story        Story         `json:"story"`
	ArticleCount int           `json:"article_count"`
	Articles     []Article     `json:"articles"`
	Entities     StoryEntities `json:"entities"`
	GeneratedAt  string        `json:"generated_at"`
}

type EntitySearchResponse struct {
	Query       string         `json:"query"`
	TypeFilter  string         `json:"type_filter"`
	Count       int            `json:"count"`
	Entities    []store.Record `json:"entities"`
	GeneratedAt string         `json:"generated_at"`
}

type EntityContextResponse struct {
	Entity        EntityRef       `json:"entity"`
	Timeframe     string          `json:"timeframe"`
	ArticleCount  int             `json:"article_count"`
	Articles      []EntityArticle `json:"articles"`
	StoryCount    int             `json:"story_count"`
	Stories       []EntityStory   `json:"stories"`
	GatingMessage string          `json:"gating_message,omitempty"`
	GeneratedAt   string          `json:"generated_at"`
}

type ArticleSearchResponse struct {
	Query         string    `json:"query"`
	Timeframe     string    `json:"timeframe"`
	Count         int       `json:"count"`
	Articles      []Article `json:"articles"`
	GatingMessage string    `json:"gating_message,omitempty"`
	GeneratedAt   string    `json:"generated_at"`
}

type TimelineResponse struct {
	Region            string           `json:"region"`
	Timeframe         string           `json:"timeframe"`
	TotalSignals      int              `json:"total_signals"`
	HoursWithActivity int              `json:"hours_with_activity"`
	TypeTotals        map[string]int   `json:"type_totals"`
	WeaponTotals      map[string]int   `json:"weapon_totals"`
	Timeline          []TimelineBucket `json:"timeline"`
	GatingMessage     string           `json:"gating_message,omitempty"`
	GeneratedAt       string           `json:"generated_at"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}
