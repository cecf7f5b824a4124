package handlers

import (
	"strconv"

	"installhub/domain"
	"installhub/middleware"
	"installhub/models"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body into dst and writes a validation error on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondError(c, domain.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// callerParty maps the token role onto a negotiation party. Admins act
// without an actor id.
func callerParty(c *gin.Context) (party models.Party, actorID string) {
	subject, role := middleware.Caller(c)
	switch role {
	case utils.RoleInstaller:
		return models.PartyInstaller, subject
	case utils.RoleCustomer:
		return models.PartyCustomer, subject
	}
	return "", ""
}

func queryLimit(c *gin.Context, def int64) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
