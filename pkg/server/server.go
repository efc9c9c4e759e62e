// Package server defines the MCP tool surface over the intel service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/peripheralhq/peripheral-mcp/pkg/intel"
	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

type Server struct {
	svc    *intel.Service
	meter  *intel.Meter
	logger *slog.Logger
}

type BriefingParams struct {
	Hours  int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
	Region string `json:"region,omitempty" jsonschema:"description:Optional region filter"`
}

type SignalsParams struct {
	Region     string `json:"region" jsonschema:"description:Target region name"`
	Hours      int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
	SignalType string `json:"signal_type,omitempty" jsonschema:"description:Optional filter by signal type"`
}

type TrendingParams struct {
	Hours int `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
	Limit int `json:"limit,omitempty" jsonschema:"description:Max results (1-50)"`
}

type StorySearchParams struct {
	Query string `json:"query" jsonschema:"description:Search term (2-200 chars)"`
	Hours int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
	Limit int    `json:"limit,omitempty" jsonschema:"description:Max results (1-50)"`
}

type StoryDetailsParams struct {
	StoryID string `json:"story_id" jsonschema:"description:Story UUID"`
}

type EntitySearchParams struct {
	Name       string `json:"name" jsonschema:"description:Entity name to search (2-200 chars)"`
	EntityType string `json:"entity_type,omitempty" jsonschema:"description:One of: person, organisation, location, country, all"`
	Limit      int    `json:"limit,omitempty" jsonschema:"description:Max results (1-50)"`
}

type EntityContextParams struct {
	EntityID   string `json:"entity_id" jsonschema:"description:Entity UUID"`
	EntityType string `json:"entity_type" jsonschema:"description:One of: person, organisation, location, country"`
	Hours      int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
}

type ArticleSearchParams struct {
	Query string `json:"query" jsonschema:"description:Search term (2-200 chars)"`
	Hours int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
	Limit int    `json:"limit,omitempty" jsonschema:"description:Max results (1-100)"`
}

type TimelineParams struct {
	Region string `json:"region" jsonschema:"description:Region name or partial match"`
	Hours  int    `json:"hours,omitempty" jsonschema:"description:Hours to look back (1-720). Free tier limited to 720h (30 days)"`
}

// NewServer creates the MCP tool server over the shared intel service.
func NewServer(svc *intel.Service, meter *intel.Meter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, meter: meter, logger: logger}
}

// RegisterTools registers all tools with the MCP server.
func (s *Server) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "health_check",
			Description: "Check database connectivity and service health",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
			return s.handleHealthCheck(ctx)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_latest_briefing",
			Description: "Get latest intelligence briefing for specified timeframe",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params BriefingParams) (*mcp.CallToolResult, any, error) {
			return s.handleLatestBriefing(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_military_signals",
			Description: "Get military signals for a specific region",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params SignalsParams) (*mcp.CallToolResult, any, error) {
			return s.handleMilitarySignals(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_trending_stories",
			Description: "Get trending stories by article count",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params TrendingParams) (*mcp.CallToolResult, any, error) {
			return s.handleTrendingStories(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "search_stories",
			Description: "Search stories by keyword/topic",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params StorySearchParams) (*mcp.CallToolResult, any, error) {
			return s.handleSearchStories(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_story_details",
			Description: "Get full story details with linked articles and entities",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params StoryDetailsParams) (*mcp.CallToolResult, any, error) {
			return s.handleStoryDetails(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "search_entities",
			Description: "Search entities across person, organisation, location, and country tables",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params EntitySearchParams) (*mcp.CallToolResult, any, error) {
			return s.handleSearchEntities(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_entity_context",
			Description: "Get articles and stories mentioning a specific entity",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params EntityContextParams) (*mcp.CallToolResult, any, error) {
			return s.handleEntityContext(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "search_articles",
			Description: "Search news articles by title and content",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params ArticleSearchParams) (*mcp.CallToolResult, any, error) {
			return s.handleSearchArticles(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "get_signal_timeline",
			Description: "Get signals grouped by hour for timeline visualization and escalation tracking",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params TimelineParams) (*mcp.CallToolResult, any, error) {
			return s.handleSignalTimeline(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        "generate_briefing",
			Description: "Generate a markdown intelligence briefing for publication",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params BriefingParams) (*mcp.CallToolResult, any, error) {
			return s.handleGenerateBriefing(ctx, params)
		},
	)
}

// run wraps one tool invocation: metering exactly once, mapping the
// error taxonomy to the documented error payload.
func (s *Server) run(ctx context.Context, tool string, params map[string]any, fn func() (any, error)) (*mcp.CallToolResult, any, error) {
	s.logger.Debug("tool invoked", slog.String("tool", tool))
	done := s.meter.Observe(ctx, tool, params)
	out, err := fn()
	done(err)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(out), nil, nil
}

func (s *Server) handleHealthCheck(ctx context.Context) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	resp := s.svc.HealthCheck(ctx)
	status := intel.StatusOK
	if resp.Status != "healthy" {
		status = intel.StatusError
	}
	s.meter.Record(ctx, "health_check", nil, status, time.Since(start))
	return jsonResult(resp), nil, nil
}

func (s *Server) handleLatestBriefing(ctx context.Context, params BriefingParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"hours": params.Hours, "region": params.Region}
	return s.run(ctx, "get_latest_briefing", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultBriefingHours)
		if err != nil {
			return nil, err
		}
		return s.svc.LatestBriefing(ctx, hours, params.Region)
	})
}

func (s *Server) handleMilitarySignals(ctx context.Context, params SignalsParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"region": params.Region, "hours": params.Hours, "signal_type": params.SignalType}
	return s.run(ctx, "get_military_signals", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultSignalHours)
		if err != nil {
			return nil, err
		}
		return s.svc.MilitarySignals(ctx, params.Region, hours, params.SignalType)
	})
}

func (s *Server) handleTrendingStories(ctx context.Context, params TrendingParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"hours": params.Hours, "limit": params.Limit}
	return s.run(ctx, "get_trending_stories", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultTrendingHours)
		if err != nil {
			return nil, err
		}
		return s.svc.TrendingStories(ctx, hours, clampLimit(params.Limit, defaultTrendingLimit, maxStoryLimit))
	})
}

func (s *Server) handleSearchStories(ctx context.Context, params StorySearchParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"query": params.Query, "hours": params.Hours, "limit": params.Limit}
	return s.run(ctx, "search_stories", p, func() (any, error) {
		if err := validateQuery(params.Query); err != nil {
			return nil, err
		}
		hours, err := normalizeHours(params.Hours, defaultSearchHours)
		if err != nil {
			return nil, err
		}
		return s.svc.SearchStories(ctx, params.Query, hours, clampLimit(params.Limit, defaultStoryLimit, maxStoryLimit))
	})
}

func (s *Server) handleStoryDetails(ctx context.Context, params StoryDetailsParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"story_id": params.StoryID}
	return s.run(ctx, "get_story_details", p, func() (any, error) {
		return s.svc.StoryDetails(ctx, params.StoryID)
	})
}

func (s *Server) handleSearchEntities(ctx context.Context, params EntitySearchParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"name": params.Name, "entity_type": params.EntityType, "limit": params.Limit}
	return s.run(ctx, "search_entities", p, func() (any, error) {
		if err := validateQuery(params.Name); err != nil {
			return nil, err
		}
		entityType := params.EntityType
		if entityType == "" {
			entityType = "all"
		}
		return s.svc.SearchEntities(ctx, params.Name, entityType, clampLimit(params.Limit, defaultEntityLimit, maxEntityLimit))
	})
}

func (s *Server) handleEntityContext(ctx context.Context, params EntityContextParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"entity_id": params.EntityID, "entity_type": params.EntityType, "hours": params.Hours}
	return s.run(ctx, "get_entity_context", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultSearchHours)
		if err != nil {
			return nil, err
		}
		return s.svc.EntityContext(ctx, params.EntityType, params.EntityID, hours)
	})
}

func (s *Server) handleSearchArticles(ctx context.Context, params ArticleSearchParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"query": params.Query, "hours": params.Hours, "limit": params.Limit}
	return s.run(ctx, "search_articles", p, func() (any, error) {
		if err := validateQuery(params.Query); err != nil {
			return nil, err
		}
		hours, err := normalizeHours(params.Hours, defaultSearchHours)
		if err != nil {
			return nil, err
		}
		return s.svc.SearchArticles(ctx, params.Query, hours, clampLimit(params.Limit, defaultArticleLimit, maxArticleLimit))
	})
}

func (s *Server) handleSignalTimeline(ctx context.Context, params TimelineParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"region": params.Region, "hours": params.Hours}
	return s.run(ctx, "get_signal_timeline", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultSearchHours)
		if err != nil {
			return nil, err
		}
		return s.svc.SignalTimeline(ctx, params.Region, hours)
	})
}

func (s *Server) handleGenerateBriefing(ctx context.Context, params BriefingParams) (*mcp.CallToolResult, any, error) {
	p := map[string]any{"hours": params.Hours, "region": params.Region}
	return s.run(ctx, "generate_briefing", p, func() (any, error) {
		hours, err := normalizeHours(params.Hours, defaultBriefingHours)
		if err != nil {
			return nil, err
		}
		return s.svc.GenerateBriefing(ctx, hours, params.Region)
	})
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	payload := map[string]any{
		"status": "error",
		"error":  publicError(err),
	}
	return jsonResult(payload)
}

// publicError keeps caller errors readable and everything else
// generic.
func publicError(err error) string {
	switch {
	case errors.Is(err, intel.ErrNotFound), errors.Is(err, intel.ErrInvalidArgument):
		return err.Error()
	case errors.Is(err, store.ErrUnavailable):
		return store.ErrUnavailable.Error()
	default:
		return "internal error"
	}
}
