// Package api exposes the curated intelligence operations over plain
// REST for dashboards and scripts that do not speak MCP.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/peripheralhq/peripheral-mcp/pkg/intel"
	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

const (
	minQueryRunes = 2
	maxQueryRunes = 200
	maxHours      = 8760
)

type API struct {
	svc    *intel.Service
	meter  *intel.Meter
	logger *slog.Logger
}

func New(svc *intel.Service, meter *intel.Meter, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svc: svc, meter: meter, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), cors())

	r.GET("/", a.info)
	r.GET("/health", a.health)
	r.GET("/briefing/latest", a.latestBriefing)
	r.GET("/briefing/markdown", a.briefingMarkdown)
	r.GET("/signals/region/:region", a.regionSignals)
	r.GET("/signals/region/:region/timeline", a.regionTimeline)
	r.GET("/stories/trending", a.trendingStories)
	r.GET("/stories/search", a.searchStories)
	r.GET("/stories/:id", a.storyDetails)
	r.GET("/entities/search", a.searchEntities)
	r.GET("/entities/:type/:id/context", a.entityContext)
	r.GET("/articles/search", a.searchArticles)

	return r
}

// cors allows read-only cross-origin access; the API serves only GETs.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (a *API) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": intel.ServiceName,
		"endpoints": []string{
			"/health",
			"/briefing/latest",
			"/briefing/markdown",
			"/signals/region/:region",
			"/signals/region/:region/timeline",
			"/stories/trending",
			"/stories/search",
			"/stories/:id",
			"/entities/search",
			"/entities/:type/:id/context",
			"/articles/search",
		},
	})
}

func (a *API) health(c *gin.Context) {
	resp := a.svc.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// respond runs one operation with metering and uniform error mapping.
func (a *API) respond(c *gin.Context, tool string, params map[string]any, fn func() (any, error)) {
	ctx := c.Request.Context()
	done := a.meter.Observe(ctx, tool, params)
	out, err := fn()
	done(err)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"status": "error", "error": publicError(err)})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) latestBriefing(c *gin.Context) {
	hours, err := queryHours(c, 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	region := c.Query("region")
	a.respond(c, "get_latest_briefing", map[string]any{"hours": hours, "region": region}, func() (any, error) {
		return a.svc.LatestBriefing(c.Request.Context(), hours, region)
	})
}

func (a *API) briefingMarkdown(c *gin.Context) {
	hours, err := queryHours(c, 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	region := c.Query("region")
	a.respond(c, "generate_briefing", map[string]any{"hours": hours, "region": region}, func() (any, error) {
		return a.svc.GenerateBriefing(c.Request.Context(), hours, region)
	})
}

func (a *API) regionSignals(c *gin.Context) {
	region := c.Param("region")
	hours, err := queryHours(c, 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	signalType := c.Query("signal_type")
	a.respond(c, "get_military_signals", map[string]any{"region": region, "hours": hours, "signal_type": signalType}, func() (any, error) {
		return a.svc.MilitarySignals(c.Request.Context(), region, hours, signalType)
	})
}

func (a *API) regionTimeline(c *gin.Context) {
	region := c.Param("region")
	hours, err := queryHours(c, 168)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	a.respond(c, "get_signal_timeline", map[string]any{"region": region, "hours": hours}, func() (any, error) {
		return a.svc.SignalTimeline(c.Request.Context(), region, hours)
	})
}

func (a *API) trendingStories(c *gin.Context) {
	hours, err := queryHours(c, 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	limit := queryLimit(c, 10, 50)
	a.respond(c, "get_trending_stories", map[string]any{"hours": hours, "limit": limit}, func() (any, error) {
		return a.svc.TrendingStories(c.Request.Context(), hours, limit)
	})
}

func (a *API) searchStories(c *gin.Context) {
	query := c.Query("q")
	hours, err := queryHours(c, 168)
	if err == nil {
		err = validateQuery(query)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	limit := queryLimit(c, 20, 50)
	a.respond(c, "search_stories", map[string]any{"query": query, "hours": hours, "limit": limit}, func() (any, error) {
		return a.svc.SearchStories(c.Request.Context(), query, hours, limit)
	})
}

func (a *API) storyDetails(c *gin.Context) {
	storyID := c.Param("id")
	a.respond(c, "get_story_details", map[string]any{"story_id": storyID}, func() (any, error) {
		return a.svc.StoryDetails(c.Request.Context(), storyID)
	})
}

func (a *API) searchEntities(c *gin.Context) {
	name := c.Query("q")
	if err := validateQuery(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	entityType := c.DefaultQuery("type", "all")
	limit := queryLimit(c, 20, 50)
	a.respond(c, "search_entities", map[string]any{"name": name, "entity_type": entityType, "limit": limit}, func() (any, error) {
		return a.svc.SearchEntities(c.Request.Context(), name, entityType, limit)
	})
}

func (a *API) entityContext(c *gin.Context) {
	entityType := c.Param("type")
	entityID := c.Param("id")
	hours, err := queryHours(c, 168)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	a.respond(c, "get_entity_context", map[string]any{"entity_type": entityType, "entity_id": entityID, "hours": hours}, func() (any, error) {
		return a.svc.EntityContext(c.Request.Context(), entityType, entityID, hours)
	})
}

func (a *API) searchArticles(c *gin.Context) {
	query := c.Query("q")
	hours, err := queryHours(c, 168)
	if err == nil {
		err = validateQuery(query)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	limit := queryLimit(c, 50, 100)
	a.respond(c, "search_articles", map[string]any{"query": query, "hours": hours, "limit": limit}, func() (any, error) {
		return a.svc.SearchArticles(c.Request.Context(), query, hours, limit)
	})
}

func queryHours(c *gin.Context, def int) (int, error) {
	raw := c.Query("hours")
	if raw == "" {
		return def, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 || hours > maxHours {
		return 0, fmt.Errorf("hours must be an integer between 1 and %d", maxHours)
	}
	return hours, nil
}

func queryLimit(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func validateQuery(q string) error {
	n := utf8.RuneCountInString(q)
	if n < minQueryRunes || n > maxQueryRunes {
		return fmt.Errorf("q must be between %d and %d characters", minQueryRunes, maxQueryRunes)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, intel.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, intel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

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
