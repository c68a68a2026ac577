package webserver

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nostrlabs/nostroracle/src/data"
	"github.com/nostrlabs/nostroracle/src/lightning"
	"github.com/nostrlabs/nostroracle/src/livefeed"
	"github.com/nostrlabs/nostroracle/src/nostr"
	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/nostrlabs/nostroracle/src/verifier"
)

type Handlers struct {
	verifier  *verifier.Service
	store     data.Store
	hub       *livefeed.Hub
	relays    *nostr.Client
	lightning *lightning.Service
	sanitizer *bluemonday.Policy
	started   time.Time
}

func NewHandlers(v *verifier.Service, store data.Store, hub *livefeed.Hub, relays *nostr.Client, ln *lightning.Service) *Handlers {
	return &Handlers{
		verifier:  v,
		store:     store,
		hub:       hub,
		relays:    relays,
		lightning: ln,
		sanitizer: bluemonday.StrictPolicy(),
		started:   time.Now(),
	}
}

func (h *Handlers) Status(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		stats = types.StatsSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "online",
		"uptime":   time.Since(h.started).Seconds(),
		"stats":    stats,
		"liveFeed": h.hub.Status(),
		"relays":   h.relays.Status(),
	})
}

func (h *Handlers) Scores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scores": h.verifier.RecentScores()})
}

func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required,min=1,max=10000"`
		EventID string `json:"eventId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := h.sanitizer.Sanitize(req.Content)
	if !utf8.ValidString(content) || content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content"})
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), content, req.EventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) LightningInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.lightning.WalletInfo())
}

func (h *Handlers) Zap(c *gin.Context) {
	var req struct {
		EventID          string `json:"eventId" binding:"required"`
		AuthorPubkey     string `json:"authorPubkey" binding:"required"`
		CredibilityScore *int   `json:"credibilityScore" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventId, authorPubkey and credibilityScore are required"})
		return
	}

	result, err := h.lightning.ProcessZap(c.Request.Context(), req.EventID, req.AuthorPubkey, *req.CredibilityScore)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result.Success {
		h.hub.BroadcastZap(result)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) LiveFeed(c *gin.Context) {
	h.hub.HandleWS(c)
}
