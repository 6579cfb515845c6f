package handler

import (
	"github.com/gin-gonic/gin"

	"state-tracer/internal/handler/response"
)

// HealthCheck godoc
// GET /health
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
