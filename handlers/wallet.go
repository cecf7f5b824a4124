package handlers

import (
	"net/http"

	"installhub/domain"
	"installhub/models"
	"installhub/services/ledger"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	Ledger ledger.LedgerService
}

func NewWalletHandler(ls ledger.LedgerService) *WalletHandler {
	return &WalletHandler{Ledger: ls}
}

func (h *WalletHandler) GetInstallerWalletHandler(c *gin.Context) {
	w, err := h.Ledger.GetInstallerWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) GetCustomerWalletHandler(c *gin.Context) {
	w, err := h.Ledger.GetCustomerWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) ListTransactionsHandler(c *gin.Context) {
	kind, err := models.ParseWalletKind(c.Param("kind"))
	if err != nil {
		utils.RespondError(c, domain.Validation("%v", err))
		return
	}
	txs, err := h.Ledger.ListTransactions(c.Request.Context(), kind, c.Param("id"), queryLimit(c, 100))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

type topUpRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

func (h *WalletHandler) TopUpHandler(c *gin.Context) {
	var req topUpRequest
	if !bindJSON(c, &req) {
		return
	}
	txn, err := h.Ledger.TopUpCustomer(c.Request.Context(), c.Param("id"), req.PaymentIntentID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

type aiUsageRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description"`
}

func (h *WalletHandler) ChargeAIUsageHandler(c *gin.Context) {
	var req aiUsageRequest
	if !bindJSON(c, &req) {
		return
	}
	txn, err := h.Ledger.ChargeAIUsage(c.Request.Context(), c.Param("id"), req.Amount, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}
