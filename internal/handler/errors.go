package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
)

// OwnerHeader carries the authenticated user id, set by the gateway in front of this service
const OwnerHeader = "X-Owner-ID"

// respondError maps service errors to HTTP status codes
func respondError(c *gin.Context, logger arbor.ILogger, action string, err error) {
	var invalid *model.InvalidCriteriaError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "fields": invalid.Fields})
	case errors.Is(err, model.ErrSavedSearchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Saved search not found"})
	case errors.Is(err, model.ErrCatalogUnavailable):
		logger.Warn().Err(err).Msg(action + " failed: catalog unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Listing catalog is temporarily unavailable"})
	default:
		logger.Error().Err(err).Msg(action + " failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed: " + err.Error()})
	}
}

// ownerID reads the owner header, answering 401 when it is missing
func ownerID(c *gin.Context) (string, bool) {
	owner := c.GetHeader(OwnerHeader)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing " + OwnerHeader + " header"})
		return "", false
	}
	return owner, true
}
