package app

import (
	"installhub/handlers"
)

// HandlerBundle assembles the transport layer over the wired services.
func (s *Services) HandlerBundle(repos *Repositories) *handlers.HandlerBundle {
	bookingHandler := handlers.NewBookingHandler(s.Assignments, s.Refunds)
	jobHandler := handlers.NewJobHandler(s.Assignments)
	walletHandler := handlers.NewWalletHandler(s.Ledger)
	negotiationHandler := handlers.NewNegotiationHandler(s.Negotiations)
	deviceHandler := handlers.NewDeviceHandler(repos.Profiles)

	return &handlers.HandlerBundle{
		// Booking endpoints.
		CreateBookingHandler:   bookingHandler.CreateBookingHandler,
		GetBookingHandler:      bookingHandler.GetBookingHandler,
		ListBookingJobsHandler: bookingHandler.ListBookingJobsHandler,
		RateBookingHandler:     bookingHandler.RateBookingHandler,
		ProcessRefundHandler:   bookingHandler.ProcessRefundHandler,

		// Lead and job endpoints.
		ClaimLeadHandler:         jobHandler.ClaimLeadHandler,
		DeclineLeadHandler:       jobHandler.DeclineLeadHandler,
		AdvanceJobHandler:        jobHandler.AdvanceJobHandler,
		CancelJobHandler:         jobHandler.CancelJobHandler,
		GetJobHandler:            jobHandler.GetJobHandler,
		ListInstallerJobsHandler: jobHandler.ListInstallerJobsHandler,

		// Wallet endpoints.
		GetInstallerWalletHandler: walletHandler.GetInstallerWalletHandler,
		GetCustomerWalletHandler:  walletHandler.GetCustomerWalletHandler,
		ListTransactionsHandler:   walletHandler.ListTransactionsHandler,
		TopUpHandler:              walletHandler.TopUpHandler,
		ChargeAIUsageHandler:      walletHandler.ChargeAIUsageHandler,

		// Negotiation endpoints.
		ProposeScheduleHandler:  negotiationHandler.ProposeHandler,
		RespondScheduleHandler:  negotiationHandler.RespondHandler,
		ListNegotiationsHandler: negotiationHandler.ListHandler,

		// Device endpoints.
		UpdateFCMTokenHandler: deviceHandler.UpdateFCMTokenHandler,

		// Admin endpoints.
		AdminHandler: &handlers.AdminHandler{
			Refunds:      s.Refunds,
			Policy:       s.Policy,
			Tracker:      s.Tracker,
			Ledger:       s.Ledger,
			Negotiations: s.Negotiations,
			Assignments:  s.Assignments,
			Sweeper:      s.Sweeper,
		},
	}
}
