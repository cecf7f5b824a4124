package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	CreateBookingHandler   gin.HandlerFunc
	GetBookingHandler      gin.HandlerFunc
	ListBookingJobsHandler gin.HandlerFunc
	RateBookingHandler     gin.HandlerFunc
	ProcessRefundHandler   gin.HandlerFunc

	// Lead and job endpoints
	ClaimLeadHandler         gin.HandlerFunc
	DeclineLeadHandler       gin.HandlerFunc
	AdvanceJobHandler        gin.HandlerFunc
	CancelJobHandler         gin.HandlerFunc
	GetJobHandler            gin.HandlerFunc
	ListInstallerJobsHandler gin.HandlerFunc

	// Wallet endpoints
	GetInstallerWalletHandler gin.HandlerFunc
	GetCustomerWalletHandler  gin.HandlerFunc
	ListTransactionsHandler   gin.HandlerFunc
	TopUpHandler              gin.HandlerFunc
	ChargeAIUsageHandler      gin.HandlerFunc

	// Negotiation endpoints
	ProposeScheduleHandler  gin.HandlerFunc
	RespondScheduleHandler  gin.HandlerFunc
	ListNegotiationsHandler  gin.HandlerFunc

	// Device endpoints
	UpdateFCMTokenHandler gin.HandlerFunc

	// Admin endpoints
	AdminHandler *AdminHandler
}
