package status

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/motioncam/capture"
	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/journal"
)

const (
	defaultCaptureLimit = 50
	maxCaptureLimit     = 500
)

// StatusProvider exposes the controller snapshot
type StatusProvider interface {
	Status() capture.Status
}

// StatusHandler serves the read-only status endpoints
type StatusHandler struct {
	logger     logging.Logger
	provider   StatusProvider
	repo       journal.CaptureRepository
	latestPath string
}

// NewStatusHandler creates a new status handler. repo may be nil when the journal is disabled.
func NewStatusHandler(logger logging.Logger, provider StatusProvider, repo journal.CaptureRepository, latestPath string) *StatusHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &StatusHandler{
		logger:     logger,
		provider:   provider,
		repo:       repo,
		latestPath: latestPath,
	}
}

// GetHealth handles GET /health
func (h *StatusHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "motioncam",
	})
}

// GetStatus handles GET /api/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	response := newStatusResponse(h.provider.Status())

	if h.repo != nil {
		latest, err := h.repo.GetLatest(c.Request.Context(), journal.KindClip)
		if err != nil {
			h.logger.Warn("Failed to look up latest clip", "error", err)
		} else if latest != nil {
			clip := newCaptureResponse(latest)
			response.LatestClip = &clip
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetCapture handles GET /api/captures/:id
func (h *StatusHandler) GetCapture(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Capture journal is disabled"})
		return
	}

	entry, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get capture", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Capture not found"})
		return
	}

	c.JSON(http.StatusOK, newCaptureResponse(entry))
}

// ListCaptures handles GET /api/captures?kind=&limit=&offset=
func (h *StatusHandler) ListCaptures(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Capture journal is disabled"})
		return
	}

	query := journal.CaptureQuery{Limit: defaultCaptureLimit}

	switch kind := journal.CaptureKind(c.Query("kind")); kind {
	case "", journal.KindStill, journal.KindClip:
		query.Kind = kind
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kind. Expected still or clip"})
		return
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		query.Limit = min(limit, maxCaptureLimit)
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
			return
		}
		query.Offset = offset
	}

	captures, total, err := h.repo.Query(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("Failed to query captures", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := CaptureListResponse{
		Captures:   make([]CaptureResponse, 0, len(captures)),
		TotalCount: total,
	}
	for _, entry := range captures {
		response.Captures = append(response.Captures, newCaptureResponse(entry))
	}

	c.JSON(http.StatusOK, response)
}

// GetLatestStill handles GET /latest.jpg
func (h *StatusHandler) GetLatestStill(c *gin.Context) {
	// Stat follows the pointer, so a dangling pointer is reported as missing
	if _, err := os.Stat(h.latestPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No still captured yet"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.File(h.latestPath)
}
