package handlers

import (
	"net/http"
	"strings"

	profileRepo "installhub/database/repository/profile"
	"installhub/domain"
	"installhub/middleware"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler stores the push token of the calling installer or customer.
type DeviceHandler struct {
	Profiles profileRepo.ProfileRepository
}

func NewDeviceHandler(profiles profileRepo.ProfileRepository) *DeviceHandler {
	return &DeviceHandler{Profiles: profiles}
}

type fcmTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *DeviceHandler) UpdateFCMTokenHandler(c *gin.Context) {
	var req fcmTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(req.Token)
	subject, role := middleware.Caller(c)

	var err error
	switch role {
	case utils.RoleInstaller:
		err = h.Profiles.SetInstallerToken(c.Request.Context(), subject, token)
	case utils.RoleCustomer:
		err = h.Profiles.SetCustomerToken(c.Request.Context(), subject, token)
	default:
		err = domain.New(domain.CodeForbidden, "push tokens belong to installers and customers")
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token updated"})
}
