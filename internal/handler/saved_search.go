package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/service"
)

// SavedSearchHandler handles saved search HTTP requests. Every route is
// scoped to the owner named in the X-Owner-ID header.
type SavedSearchHandler struct {
	searchService *service.SearchService
	logger        arbor.ILogger
}

// NewSavedSearchHandler creates a new saved search handler
func NewSavedSearchHandler(searchService *service.SearchService, logger arbor.ILogger) *SavedSearchHandler {
	return &SavedSearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Create handles POST /api/v1/saved-searches
func (h *SavedSearchHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req model.SaveSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id, err := h.searchService.SaveSearch(c.Request.Context(), owner, &req)
	if err != nil {
		respondError(c, h.logger, "Save search", err)
		return
	}

	c.JSON(http.StatusCreated, model.SaveSearchResponse{ID: id})
}

// List handles GET /api/v1/saved-searches
func (h *SavedSearchHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	searches, err := h.searchService.ListSavedSearches(c.Request.Context(), owner)
	if err != nil {
		respondError(c, h.logger, "List saved searches", err)
		return
	}
	if searches == nil {
		searches = []model.SavedSearch{}
	}

	c.JSON(http.StatusOK, gin.H{"saved_searches": searches, "total": len(searches)})
}

// Get handles GET /api/v1/saved-searches/:id
func (h *SavedSearchHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	saved, err := h.searchService.GetSavedSearch(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Get saved search", err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// Rename handles PATCH /api/v1/saved-searches/:id
func (h *SavedSearchHandler) Rename(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req model.RenameSavedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.searchService.RenameSavedSearch(c.Request.Context(), owner, c.Param("id"), req.Name); err != nil {
		respondError(c, h.logger, "Rename saved search", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateCriteria handles PUT /api/v1/saved-searches/:id/criteria
func (h *SavedSearchHandler) UpdateCriteria(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req model.UpdateCriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.searchService.UpdateSavedSearchCriteria(c.Request.Context(), owner, c.Param("id"), req.Criteria); err != nil {
		respondError(c, h.logger, "Update criteria", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete handles DELETE /api/v1/saved-searches/:id
func (h *SavedSearchHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	if err := h.searchService.DeleteSavedSearch(c.Request.Context(), owner, c.Param("id")); err != nil {
		respondError(c, h.logger, "Delete saved search", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Run handles POST /api/v1/saved-searches/:id/run
func (h *SavedSearchHandler) Run(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	result, err := h.searchService.RunScheduledEvaluation(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Run saved search", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes mounts the saved search routes on a router group
func (h *SavedSearchHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/saved-searches", h.Create)
	g.GET("/saved-searches", h.List)
	g.GET("/saved-searches/:id", h.Get)
	g.PATCH("/saved-searches/:id", h.Rename)
	g.PUT("/saved-searches/:id/criteria", h.UpdateCriteria)
	g.DELETE("/saved-searches/:id", h.Delete)
	g.POST("/saved-searches/:id/run", h.Run)
}
