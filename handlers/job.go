package handlers

import (
	"net/http"

	"installhub/domain"
	"installhub/middleware"
	"installhub/models"
	"installhub/services/assignment"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	Assignments assignment.AssignmentService
}

func NewJobHandler(as assignment.AssignmentService) *JobHandler {
	return &JobHandler{Assignments: as}
}

func (h *JobHandler) ClaimLeadHandler(c *gin.Context) {
	installerID, _ := middleware.Caller(c)
	res, err := h.Assignments.Claim(c.Request.Context(), c.Param("bookingId"), installerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *JobHandler) DeclineLeadHandler(c *gin.Context) {
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	installerID, _ := middleware.Caller(c)
	res, err := h.Assignments.Decline(c.Request.Context(), c.Param("bookingId"), installerID, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type advanceRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *JobHandler) AdvanceJobHandler(c *gin.Context) {
	var req advanceRequest
	if !bindJSON(c, &req) {
		return
	}
	next, err := models.ParseJobStatus(req.Status)
	if err != nil {
		utils.RespondError(c, domain.Validation("%v", err))
		return
	}
	installerID := ""
	if !middleware.IsAdmin(c) {
		installerID, _ = middleware.Caller(c)
	}
	job, err := h.Assignments.Advance(c.Request.Context(), c.Param("jobId"), installerID, next)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) CancelJobHandler(c *gin.Context) {
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, role := middleware.Caller(c)
	input := assignment.CancelInput{JobID: c.Param("jobId"), Reason: req.Reason, ActorID: subject}
	switch role {
	case utils.RoleInstaller:
		input.By = models.CancelledByInstaller
	case utils.RoleCustomer:
		input.By = models.CancelledByCustomer
	default:
		input.By, input.ActorID = models.CancelledByAdmin, ""
	}
	res, err := h.Assignments.Cancel(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *JobHandler) GetJobHandler(c *gin.Context) {
	job, err := h.Assignments.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) ListInstallerJobsHandler(c *gin.Context) {
	jobs, err := h.Assignments.ListJobsForInstaller(c.Request.Context(), c.Param("id"), queryLimit(c, 50))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}
