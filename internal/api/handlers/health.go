package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler reports database reachability when db is set
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	status := http.StatusOK

	if h.db != nil {
		dbStatus = "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "degraded"
	}
	c.JSON(status, gin.H{
		"status":   health,
		"database": gin.H{"status": dbStatus},
	})
}
