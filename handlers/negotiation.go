package handlers

import (
	"net/http"

	"installhub/domain"
	"installhub/services/negotiation"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

type NegotiationHandler struct {
	Negotiations negotiation.NegotiationService
}

func NewNegotiationHandler(ns negotiation.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{Negotiations: ns}
}

func (h *NegotiationHandler) ProposeHandler(c *gin.Context) {
	var input negotiation.ProposeInput
	if !bindJSON(c, &input) {
		return
	}
	party, actorID := callerParty(c)
	if party == "" {
		utils.RespondError(c, domain.New(domain.CodeForbidden, "only installers and customers negotiate schedules"))
		return
	}
	input.BookingID, input.By, input.ActorID = c.Param("id"), party, actorID

	n, err := h.Negotiations.Propose(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *NegotiationHandler) RespondHandler(c *gin.Context) {
	var input negotiation.RespondInput
	if !bindJSON(c, &input) {
		return
	}
	party, actorID := callerParty(c)
	if party == "" {
		utils.RespondError(c, domain.New(domain.CodeForbidden, "only installers and customers negotiate schedules"))
		return
	}
	input.NegotiationID, input.By, input.ActorID = c.Param("id"), party, actorID

	n, err := h.Negotiations.Respond(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NegotiationHandler) ListHandler(c *gin.Context) {
	ctx := c.Request.Context()
	history, err := h.Negotiations.List(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	active, err := h.Negotiations.Active(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"negotiations": history, "active": active})
}
