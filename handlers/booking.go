package handlers

import (
	"errors"
	"net/http"

	"installhub/domain"
	"installhub/middleware"
	"installhub/models"
	"installhub/services/assignment"
	"installhub/services/refund"
	"installhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	Assignments assignment.AssignmentService
	Refunds     refund.RefundEngine
}

func NewBookingHandler(as assignment.AssignmentService, rs refund.RefundEngine) *BookingHandler {
	return &BookingHandler{Assignments: as, Refunds: rs}
}

func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var input models.CreateBookingInput
	if !bindJSON(c, &input) {
		return
	}
	b, err := h.Assignments.CreateBooking(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Assignments.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) ListBookingJobsHandler(c *gin.Context) {
	jobs, err := h.Assignments.ListJobsForBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

type rateRequest struct {
	QualityStars *float64 `json:"qualityStars" binding:"required"`
}

func (h *BookingHandler) RateBookingHandler(c *gin.Context) {
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	customerID := ""
	if !middleware.IsAdmin(c) {
		customerID, _ = middleware.Caller(c)
	}
	b, err := h.Assignments.Rate(c.Request.Context(), c.Param("id"), customerID, *req.QualityStars)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ProcessRefundHandler answers 200 with the stored outcome when the refund
// already ran.
func (h *BookingHandler) ProcessRefundHandler(c *gin.Context) {
	out, err := h.Refunds.Process(c.Request.Context(), c.Param("id"))
	if err != nil && !(errors.Is(err, domain.ErrAlreadyProcessed) && out != nil) {
		utils.RespondError(c, err)
		return
	}
	getLogger(c).Info("refund requested", zap.String("bookingId", c.Param("id")), zap.Bool("alreadyProcessed", out.AlreadyProcessed))
	c.JSON(http.StatusOK, out)
}
