package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/service"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	defaultLimit  int
	maxLimit      int
	logger        arbor.ILogger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, defaultLimit, maxLimit int, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		logger:        logger,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.applyLimits(&req)

	response, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "Search", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SearchStream handles POST /api/v1/search/stream - SSE streaming search
func (h *SearchHandler) SearchStream(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.applyLimits(&req)

	// Reject bad criteria before switching to an event stream
	if err := req.Criteria.Validate(); err != nil {
		respondError(c, h.logger, "Search", err)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"criteria": req.Criteria.Normalize()})
	flusher.Flush()

	_, err := h.searchService.SearchStream(c.Request.Context(), &req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Streaming search failed")
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	sendSSE(c, "done", nil)
	flusher.Flush()
}

func (h *SearchHandler) applyLimits(req *model.SearchRequest) {
	if req.Options == nil {
		req.Options = &model.SearchOptions{TopK: h.defaultLimit}
		return
	}
	if req.Options.TopK <= 0 {
		req.Options.TopK = h.defaultLimit
	}
	if req.Options.TopK > h.maxLimit {
		req.Options.TopK = h.maxLimit
	}
	if req.Options.Offset < 0 {
		req.Options.Offset = 0
	}
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
