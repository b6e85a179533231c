package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"coinfolio/internal/metrics"
	"coinfolio/internal/models"
	"coinfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	store   *service.Store
	tickers service.TickerProvider
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewHandler(s *service.Store, t service.TickerProvider, m *metrics.Metrics, log *logrus.Logger) *Handler {
	return &Handler{store: s, tickers: t, metrics: m, log: log}
}

// Register mounts every route on rg.
func (h *Handler) Register(rg *gin.Engine) {
	rg.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	rg.GET("/status", h.GetStatus)
	rg.GET("/tickers", h.GetTickers)
	rg.GET("/portfolio", h.GetPortfolio)
	rg.GET("/portfolio/chart", h.GetChart)
	rg.POST("/portfolio", h.PostHolding)
	rg.PUT("/portfolio/:symbol", h.PutHolding)
	rg.DELETE("/portfolio/:symbol", h.DeleteHolding)
	rg.POST("/refresh", h.PostRefresh)
	rg.GET("/ws", h.ServeWS)
	rg.GET("/metrics", gin.WrapH(h.metrics.Handler()))
}

type HoldingRequest struct {
	Symbol string          `json:"symbol"`
	Unit   json.RawMessage `json:"unit"`
}

// unit accepts a JSON number or string; anything else becomes the default.
func (r HoldingRequest) unit() models.Unit {
	raw := bytes.TrimSpace(r.Unit)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.DefaultUnit
		}
		return models.ParseUnit(s)
	}
	return models.ParseUnit(string(raw))
}

// PickerItem is a snapshot entry annotated with the caller's holding.
type PickerItem struct {
	models.TickerEntry
	Held bool        `json:"held"`
	Unit models.Unit `json:"unit"`
}

func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tickers.Status())
}

func (h *Handler) GetTickers(c *gin.Context) {
	entries := service.Filter(h.tickers.Snapshot(), c.Query("q"))
	items := make([]PickerItem, 0, len(entries))
	for _, e := range entries {
		item := PickerItem{TickerEntry: e, Unit: models.DefaultUnit}
		if u, ok := h.store.Unit(e.Symbol); ok {
			item.Held = true
			item.Unit = u
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	items, total := service.Summarize(h.store.Holdings())
	c.JSON(http.StatusOK, gin.H{"items": items, "total_value": total.StringFixed(2)})
}

func (h *Handler) GetChart(c *gin.Context) {
	c.JSON(http.StatusOK, service.ChartRows(h.store.Holdings()))
}

func (h *Handler) PostHolding(c *gin.Context) {
	var req HoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid post body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	if len(h.tickers.Snapshot()) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticker data not loaded yet"})
		return
	}
	item, ok := h.tickers.Lookup(req.Symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}

	holdings, added, err := h.store.Put(context.Background(), item, req.unit())
	if errors.Is(err, service.ErrNoSnapshot) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticker data not loaded yet"})
		return
	}
	if err != nil {
		h.log.Errorf("put %s failed: %v", item.Symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"items": holdings, "added": added})
}

func (h *Handler) PutHolding(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	var req HoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid put body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holdings, found, err := h.store.Update(context.Background(), symbol, req.unit())
	if err != nil {
		h.log.Errorf("update %s failed: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not in portfolio"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": holdings})
}

func (h *Handler) DeleteHolding(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	holdings, removed, err := h.store.Remove(context.Background(), symbol)
	if err != nil {
		h.log.Errorf("remove %s failed: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": holdings, "removed": removed})
}

func (h *Handler) PostRefresh(c *gin.Context) {
	if h.tickers.Refresh() {
		c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "in_flight"})
}
