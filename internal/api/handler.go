// Package api exposes the engine over HTTP. Validation happens here at
// the boundary; the engine itself never rejects a well-formed request.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/internal/metrics"
	"github.com/adilkhz/paysight/internal/narrative"
	"github.com/adilkhz/paysight/internal/service"
	"github.com/adilkhz/paysight/models"
)

const (
	maxForecastDays   = 365
	maxDetectionLimit = 1000
)

// SnapshotLoader produces a fresh snapshot on a data-reload trigger.
type SnapshotLoader func() (*dataset.Snapshot, error)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	engine    *service.Engine
	loader    SnapshotLoader
	narrative *narrative.Client
	logger    zerolog.Logger

	defaultLimit int
	defaultDays  int
}

// Options configures the HTTP surface.
type Options struct {
	Engine         *service.Engine
	Loader         SnapshotLoader
	Narrative      *narrative.Client
	Logger         zerolog.Logger
	DetectionLimit int
	ForecastDays   int
}

// New creates the router with all routes and middleware registered.
func New(opts Options) *gin.Engine {
	h := &Handler{
		engine:       opts.Engine,
		loader:       opts.Loader,
		narrative:    opts.Narrative,
		logger:       opts.Logger.With().Str("component", "api").Logger(),
		defaultLimit: opts.DetectionLimit,
		defaultDays:  opts.ForecastDays,
	}
	if h.defaultLimit <= 0 {
		h.defaultLimit = 100
	}
	if h.defaultDays <= 0 {
		h.defaultDays = 30
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(h.requestIDMiddleware(), h.loggingMiddleware(), gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict/cancellation", h.predictCancellation)
		v1.GET("/predict/volume", h.predictVolume)
		v1.GET("/predict/suspicious", h.detectSuspicious)
		v1.POST("/insights/narrative", h.narrativeSummary)
		v1.POST("/data/reload", h.reloadData)
		v1.GET("/data/summary", h.dataSummary)
	}
	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (h *Handler) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()

		h.logger.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(started)).
			Msg("request handled")
	}
}

func (h *Handler) predictCancellation(c *gin.Context) {
	var req models.CancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.engine.PredictCancellation(req))
}

func (h *Handler) predictVolume(c *gin.Context) {
	days := h.defaultDays
	if raw := c.Query("days_ahead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxForecastDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "days_ahead must be an integer between 0 and 365",
			})
			return
		}
		days = parsed
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.engine.Forecast(filter, days))
}

func (h *Handler) detectSuspicious(c *gin.Context) {
	limit, filter, ok := h.detectionParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.DetectSuspicious(filter, limit))
}

func (h *Handler) narrativeSummary(c *gin.Context) {
	if !h.narrative.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "narrative generation is not configured"})
		return
	}

	limit, filter, ok := h.detectionParams(c)
	if !ok {
		return
	}

	result := h.engine.DetectSuspicious(filter, limit)
	summary, err := h.narrative.Summarize(c.Request.Context(), result)
	if err != nil {
		h.logger.Error().Err(err).Msg("narrative generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "narrative generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"narrative": summary, "detection": result})
}

func (h *Handler) reloadData(c *gin.Context) {
	if h.loader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data source configured"})
		return
	}

	snap, err := h.loader()
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot reload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "snapshot reload failed"})
		return
	}

	h.engine.Train(snap)
	c.JSON(http.StatusOK, h.engine.Summary())
}

func (h *Handler) dataSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Summary())
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) detectionParams(c *gin.Context) (int, dataset.Filter, bool) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxDetectionLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be an integer between 1 and 1000",
			})
			return 0, dataset.Filter{}, false
		}
		limit = parsed
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, dataset.Filter{}, false
	}
	return limit, filter, true
}

func filterFromQuery(c *gin.Context) (dataset.Filter, error) {
	filter := dataset.Filter{
		Channel:         c.Query("channel"),
		City:            c.Query("city"),
		PaymentMethod:   c.Query("payment_method"),
		CustomerSegment: c.Query("customer_segment"),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return dataset.Filter{}, fmt.Errorf("from must be a date in YYYY-MM-DD format")
		}
		filter.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return dataset.Filter{}, fmt.Errorf("to must be a date in YYYY-MM-DD format")
		}
		filter.To = t
	}
	return filter, nil
}
