package handlers

import (
	"net/http"
	"time"

	"installhub/cron"
	"installhub/domain"
	"installhub/middleware"
	"installhub/models"
	"installhub/services/antimanipulation"
	"installhub/services/assignment"
	"installhub/services/exemption"
	"installhub/services/ledger"
	"installhub/services/negotiation"
	"installhub/services/refund"
	"installhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	Refunds      refund.RefundEngine
	Policy       exemption.FeePolicy
	Tracker      antimanipulation.Tracker
	Ledger       ledger.LedgerService
	Negotiations negotiation.NegotiationService
	Assignments  assignment.AssignmentService
	Sweeper      *cron.Sweeper
}

func (ah *AdminHandler) reviewer(c *gin.Context) string {
	subject, _ := middleware.Caller(c)
	return subject
}

func (ah *AdminHandler) ListRefundSettingsHandler(c *gin.Context) {
	settings, err := ah.Refunds.ListSettings(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (ah *AdminHandler) UpsertRefundSettingHandler(c *gin.Context) {
	var s models.PerformanceRefundSetting
	if !bindJSON(c, &s) {
		return
	}
	stored, err := ah.Refunds.UpsertSetting(c.Request.Context(), s)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (ah *AdminHandler) GetPromotionHandler(c *gin.Context) {
	p, err := ah.Policy.GetPromotion(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type promotionRequest struct {
	Active bool       `json:"active"`
	Until  *time.Time `json:"until"`
}

func (ah *AdminHandler) SetPromotionHandler(c *gin.Context) {
	var req promotionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := ah.Policy.SetPromotion(c.Request.Context(), req.Active, req.Until, ah.reviewer(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type vipRequest struct {
	VIP bool `json:"vip"`
}

func (ah *AdminHandler) SetVIPHandler(c *gin.Context) {
	var req vipRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.Policy.SetVIP(c.Request.Context(), c.Param("id"), req.VIP); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installerId": c.Param("id"), "vip": req.VIP})
}

func (ah *AdminHandler) IssueVoucherHandler(c *gin.Context) {
	v, created, err := ah.Policy.IssueVoucher(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, v)
}

func (ah *AdminHandler) GetVoucherHandler(c *gin.Context) {
	v, err := ah.Policy.GetVoucher(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (ah *AdminHandler) ListFlagsHandler(c *gin.Context) {
	records, err := ah.Tracker.List(c.Request.Context(), c.Query("installerId"), c.Query("unresolved") == "true")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type resolveRequest struct {
	Note string `json:"note"`
}

func (ah *AdminHandler) ResolveFlagHandler(c *gin.Context) {
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := ah.Tracker.Resolve(c.Request.Context(), c.Param("id"), ah.reviewer(c), req.Note)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type suspendRequest struct {
	Until time.Time `json:"until" binding:"required"`
}

func (ah *AdminHandler) SuspendInstallerHandler(c *gin.Context) {
	var req suspendRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.Tracker.Suspend(c.Request.Context(), c.Param("id"), req.Until, ah.reviewer(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installerId": c.Param("id"), "suspendedUntil": req.Until})
}

func (ah *AdminHandler) UnsuspendInstallerHandler(c *gin.Context) {
	if err := ah.Tracker.Unsuspend(c.Request.Context(), c.Param("id"), ah.reviewer(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installerId": c.Param("id"), "suspendedUntil": nil})
}

func (ah *AdminHandler) ReconcileWalletHandler(c *gin.Context) {
	kind, err := models.ParseWalletKind(c.Param("kind"))
	if err != nil {
		utils.RespondError(c, domain.Validation("%v", err))
		return
	}
	report, err := ah.Ledger.Reconcile(c.Request.Context(), kind, c.Param("id"), c.Query("repair") == "true")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if report.Drift != 0 {
		getLogger(c).Warn("wallet drift detected",
			zap.String("kind", string(kind)), zap.String("ownerId", report.OwnerID),
			zap.Int64("drift", report.Drift), zap.Bool("repaired", report.Repaired))
	}
	c.JSON(http.StatusOK, report)
}

func (ah *AdminHandler) DeleteTransactionHandler(c *gin.Context) {
	kind, err := models.ParseWalletKind(c.Param("kind"))
	if err != nil {
		utils.RespondError(c, domain.Validation("%v", err))
		return
	}
	txn, err := ah.Ledger.DeleteTransaction(c.Request.Context(), kind, c.Param("txId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": txn})
}

func (ah *AdminHandler) DeleteLatestNegotiationHandler(c *gin.Context) {
	n, err := ah.Negotiations.DeleteLatest(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (ah *AdminHandler) DeleteBookingHandler(c *gin.Context) {
	b, err := ah.Assignments.DeleteBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (ah *AdminHandler) RunMaintenanceHandler(c *gin.Context) {
	report, err := ah.Sweeper.Run(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
