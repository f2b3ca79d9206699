// Package handler exposes the analysis pipeline over HTTP.
package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chatlens/internal/explain"
	"chatlens/internal/models"
	"chatlens/internal/repository"
	"chatlens/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	analyzer  *service.Analyzer
	explainer *explain.Service
	store     repository.MessageStore
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(analyzer *service.Analyzer, explainer *explain.Service, store repository.MessageStore, logger *zap.Logger) *Handler {
	return &Handler{
		analyzer:  analyzer,
		explainer: explainer,
		store:     store,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/analyze", h.Analyze)
		api.GET("/jobs/:job_id", h.GetJobStatus)
		api.GET("/jobs/:job_id/disagreements", h.GetJobDisagreements)

		api.GET("/messages", h.ListMessages)
		api.GET("/messages/:id", h.GetMessage)
		api.GET("/stats", h.GetStats)
		api.GET("/explain/:message_id", h.ExplainMessage)

		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
	}

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

type analyzeRequest struct {
	Text      string `json:"text"`
	DateOrder string `json:"date_order"`
}

// Analyze accepts a raw transcript and returns the queued job id
// without waiting for the pipeline.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.analyzer.Submit(req.Text, req.DateOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": models.StatusQueued,
	})
}

// GetJobStatus reports the job's current state: the result when
// complete, the error summary when failed.
func (h *Handler) GetJobStatus(c *gin.Context) {
	job, err := h.analyzer.GetJob(c.Param("job_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobDisagreements lists every stored message of a completed job
// whose oracle labels differ.
func (h *Handler) GetJobDisagreements(c *gin.Context) {
	jobID := c.Param("job_id")

	// A job still running has no visible messages yet; report the
	// conflict instead of a misleading 404. Jobs forgotten by a restart
	// fall through to the store, where completed messages survive.
	if job, err := h.analyzer.GetJob(jobID); err == nil && job.Status != models.StatusComplete {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s, not complete", job.Status)})
		return
	}

	report, err := h.explainer.JobDisagreements(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListMessages answers a filtered, paginated query over the persisted
// messages.
func (h *Handler) ListMessages(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	msgs, total, err := h.store.ListMessages(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	totalPages := (total + filter.PageSize - 1) / filter.PageSize
	c.JSON(http.StatusOK, gin.H{
		"messages":    msgs,
		"total":       total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
		"total_pages": totalPages,
	})
}

// GetMessage returns one stored message by id.
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.store.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// GetStats computes aggregate statistics over the filtered view.
func (h *Handler) GetStats(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	stats, err := h.store.Stats(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExplainMessage returns the explainability payload for one message.
func (h *Handler) ExplainMessage(c *gin.Context) {
	exp, err := h.explainer.Explain(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// ExportCSV streams the filtered messages as a CSV attachment.
func (h *Handler) ExportCSV(c *gin.Context) {
	msgs, err := h.collectFiltered(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=messages.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"id", "job_id", "timestamp", "sender", "text", "language",
		"ensemble_score", "ensemble_label", "confidence", "keywords"})
	for _, m := range msgs {
		writer.Write([]string{
			m.ID,
			m.JobID,
			m.Timestamp.Format(time.RFC3339),
			m.Sender,
			m.Text,
			m.Language,
			strconv.FormatFloat(m.Sentiment.EnsembleScore, 'f', 4, 64),
			m.Sentiment.EnsembleLabel,
			strconv.FormatFloat(m.Sentiment.Confidence, 'f', 2, 64),
			strings.Join(m.Keywords, " "),
		})
	}
}

// ExportJSON streams the filtered messages as a JSON attachment.
func (h *Handler) ExportJSON(c *gin.Context) {
	msgs, err := h.collectFiltered(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=messages.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(msgs)
}

// collectFiltered walks every page of the filtered view for exports.
func (h *Handler) collectFiltered(c *gin.Context) ([]models.Message, error) {
	filter, err := filterFromQuery(c)
	if err != nil {
		return nil, err
	}
	filter.Page = 1
	filter.PageSize = models.MaxPageSize

	var all []models.Message
	for {
		msgs, _, err := h.store.ListMessages(c.Request.Context(), filter)
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
		if len(msgs) < filter.PageSize {
			return all, nil
		}
		filter.Page++
	}
}

// HealthCheck reports service and store health.
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "chatlens"})
}

// filterFromQuery builds a Filter from query parameters. Malformed
// values are validation errors rejected before any query runs.
func filterFromQuery(c *gin.Context) (models.Filter, error) {
	filter := models.Filter{
		Sender:         c.Query("sender"),
		SentimentLabel: c.Query("sentiment_label"),
		Keyword:        c.Query("keyword"),
		Language:       c.Query("language"),
		JobID:          c.Query("job_id"),
	}

	var err error
	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "page_size"); err != nil {
		return filter, err
	}

	if raw := c.Query("date_from"); raw != "" {
		t, err := parseDateParam(raw, false)
		if err != nil {
			return filter, fmt.Errorf("%w: date_from: %v", models.ErrValidation, err)
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := parseDateParam(raw, true)
		if err != nil {
			return filter, fmt.Errorf("%w: date_to: %v", models.ErrValidation, err)
		}
		filter.DateTo = &t
	}

	if err := filter.Normalize(); err != nil {
		return filter, err
	}
	return filter, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrValidation, name, raw)
	}
	return v, nil
}

// parseDateParam accepts RFC3339 timestamps or bare dates. A bare date
// used as an upper bound covers the whole day, keeping both bounds
// inclusive.
func parseDateParam(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD, got %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.UTC(), nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
