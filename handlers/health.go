package handlers

import (
	"net/http"

	"installhub/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the latest snapshot recorded by the health monitor.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
