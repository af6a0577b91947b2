package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/rs/zerolog/log"
)

// HealthController serves the JSON status endpoints
type HealthController struct {
	store store.Store
}

// NewHealthController creates a health controller
func NewHealthController(s store.Store) *HealthController {
	return &HealthController{store: s}
}

// Health handles GET /api/v1/health
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Lab Test API is running",
	})
}

// DatabaseStatus handles GET /api/v1/database/status - pings the store and lists its collections
func (hc *HealthController) DatabaseStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if err := hc.store.Ping(ctx); err != nil {
		log.Error().Err(err).Str("backend", hc.store.Backend()).Msg("Database ping failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	collections, err := hc.store.Collections(ctx)
	if err != nil {
		log.Error().Err(err).Str("backend", hc.store.Backend()).Msg("Failed to list collections")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query collections",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Database connected",
		"backend":     hc.store.Backend(),
		"collections": collections,
	})
}
