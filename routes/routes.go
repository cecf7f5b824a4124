package routes

import (
	"time"

	"installhub/handlers"
	"installhub/middleware"
	"installhub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterBookingRoutes registers booking, rating and negotiation endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", middleware.RequireRole(utils.RoleAdmin), hb.CreateBookingHandler)
		api.GET("/:id", hb.GetBookingHandler)
		api.GET("/:id/jobs", hb.ListBookingJobsHandler)
		api.POST("/:id/rating", middleware.RequireRole(utils.RoleCustomer, utils.RoleAdmin), hb.RateBookingHandler)
		api.POST("/:id/refund", middleware.RequireRole(utils.RoleAdmin), hb.ProcessRefundHandler)

		parties := middleware.RequireRole(utils.RoleInstaller, utils.RoleCustomer)
		api.POST("/:id/negotiations", parties, hb.ProposeScheduleHandler)
		api.GET("/:id/negotiations", hb.ListNegotiationsHandler)
	}

	negotiations := r.Group("/api/negotiations")
	{
		negotiations.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(utils.RoleInstaller, utils.RoleCustomer))
		negotiations.POST("/:id/respond", hb.RespondScheduleHandler)
	}
}

// RegisterLeadRoutes registers the installer-facing lead and job endpoints.
func RegisterLeadRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	leads := r.Group("/api/leads")
	{
		leads.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(utils.RoleInstaller))
		leads.POST("/:bookingId/claim", hb.ClaimLeadHandler)
		leads.POST("/:bookingId/decline", hb.DeclineLeadHandler)
	}

	jobs := r.Group("/api/jobs")
	{
		jobs.Use(middleware.JWTAuthMiddleware())
		jobs.GET("/:jobId", hb.GetJobHandler)
		jobs.POST("/:jobId/advance", middleware.RequireRole(utils.RoleInstaller, utils.RoleAdmin), hb.AdvanceJobHandler)
		jobs.POST("/:jobId/cancel", hb.CancelJobHandler)
	}

	installers := r.Group("/api/installers")
	{
		installers.Use(middleware.JWTAuthMiddleware(), middleware.RequireOwnerOrAdmin("id"))
		installers.GET("/:id/jobs", hb.ListInstallerJobsHandler)
	}
}

// RegisterWalletRoutes registers wallet reads and customer top-ups.
func RegisterWalletRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/wallets")
	{
		api.Use(middleware.JWTAuthMiddleware())
		owner := middleware.RequireOwnerOrAdmin("id")
		api.GET("/installers/:id", owner, hb.GetInstallerWalletHandler)
		api.GET("/customers/:id", owner, hb.GetCustomerWalletHandler)
		api.GET("/:kind/:id/transactions", owner, hb.ListTransactionsHandler)
		api.POST("/customers/:id/top-up", owner, hb.TopUpHandler)
		api.POST("/customers/:id/ai-usage", middleware.RequireRole(utils.RoleAdmin), hb.ChargeAIUsageHandler)
	}
}

// RegisterDeviceRoutes registers push token management.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/fcm-token", hb.UpdateFCMTokenHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(utils.RoleAdmin))
		ah := hb.AdminHandler

		adminGroup.GET("/refund-settings", ah.ListRefundSettingsHandler)
		adminGroup.PUT("/refund-settings", ah.UpsertRefundSettingHandler)

		adminGroup.GET("/promotion", ah.GetPromotionHandler)
		adminGroup.PUT("/promotion", ah.SetPromotionHandler)

		adminGroup.PUT("/installers/:id/vip", ah.SetVIPHandler)
		adminGroup.POST("/installers/:id/voucher", ah.IssueVoucherHandler)
		adminGroup.GET("/installers/:id/voucher", ah.GetVoucherHandler)
		adminGroup.POST("/installers/:id/suspend", ah.SuspendInstallerHandler)
		adminGroup.DELETE("/installers/:id/suspend", ah.UnsuspendInstallerHandler)

		adminGroup.GET("/flags", ah.ListFlagsHandler)
		adminGroup.POST("/flags/:id/resolve", ah.ResolveFlagHandler)

		adminGroup.POST("/wallets/:kind/:id/reconcile", ah.ReconcileWalletHandler)
		adminGroup.DELETE("/transactions/:kind/:txId", ah.DeleteTransactionHandler)

		adminGroup.DELETE("/bookings/:id", ah.DeleteBookingHandler)
		adminGroup.DELETE("/bookings/:id/negotiations/latest", ah.DeleteLatestNegotiationHandler)

		adminGroup.POST("/maintenance", ah.RunMaintenanceHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterLeadRoutes(r, hb)
	RegisterWalletRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
