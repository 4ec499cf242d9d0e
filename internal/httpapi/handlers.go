package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/internal/telemetry"
	"github.com/cognicore/matchtag/pkg/matchtag"
	"github.com/cognicore/matchtag/pkg/matchtag/query"
)

// Runner triggers one tagging run.
type Runner interface {
	Run(ctx context.Context) (matchtag.Result, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the matchtag routes.
type Handler struct {
	Runner  Runner
	Cache   *query.Cache
	Health  Pinger
	Metrics *telemetry.Provider
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/update", h.update)
	r.POST("/update", h.update)
	r.GET("/player_mentions", h.playerMentions)
	r.POST("/players", h.players)
	r.GET("/matches", h.matches)
	r.GET("/sentiment", h.sentiment)
	r.GET("/health", h.health)
	r.GET("/clear_cache", h.clearCache)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}
}

// update keeps running after the client disconnects.
func (h *Handler) update(c *gin.Context) {
	res, err := h.Runner.Run(context.WithoutCancel(c.Request.Context()))
	h.Cache.Clear()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) index(c *gin.Context) (*query.Index, bool) {
	ix, err := h.Cache.Index()
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("Failed to load output log", logger.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tagged articles"})
		return nil, false
	}
	return ix, true
}

func (h *Handler) playerMentions(c *gin.Context) {
	player := c.Query("player")
	if player == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player query parameter is required"})
		return
	}
	ix, ok := h.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ix.PlayerMentions(player))
}

func (h *Handler) players(c *gin.Context) {
	var teams []string
	if err := c.ShouldBindJSON(&teams); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON list of team names"})
		return
	}
	if len(teams) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one team is required"})
		return
	}
	ix, ok := h.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ix.Players(teams))
}

func (h *Handler) matches(c *gin.Context) {
	ix, ok := h.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ix.Matches(query.MatchFilter{
		Home: c.Query("home"),
		Away: c.Query("away"),
		Date: c.Query("date"),
	}))
}

func (h *Handler) sentiment(c *gin.Context) {
	entity := c.Query("entity")
	if entity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity query parameter is required"})
		return
	}
	ix, ok := h.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ix.Sentiment(query.SentimentQuery{
		Entity: entity,
		From:   c.Query("from"),
		To:     c.Query("to"),
	}))
}

func (h *Handler) health(c *gin.Context) {
	ready := h.Health == nil || h.Health.Ping(c.Request.Context()) == nil
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready})
}

func (h *Handler) clearCache(c *gin.Context) {
	h.Cache.Clear()
	c.JSON(http.StatusOK, true)
}
