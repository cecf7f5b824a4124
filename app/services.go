package app

import (
	"time"

	"installhub/cron"
	"installhub/services/antimanipulation"
	"installhub/services/assignment"
	"installhub/services/cache"
	"installhub/services/exemption"
	"installhub/services/ledger"
	"installhub/services/negotiation"
	"installhub/services/notification"
	"installhub/services/payment"
	"installhub/services/refund"
	"installhub/services/tasks"

	"go.uber.org/zap"
)

// Options carries the policy knobs and integrations the services need.
type Options struct {
	Cache    cache.SettingsCache
	Notifier notification.Notifier
	Payments payment.PaymentVerifier
	// Enqueuer defaults to running refunds inline.
	Enqueuer tasks.Enqueuer

	MinRefundStars   int
	DeclineThreshold int
	DeclineWindow    time.Duration
	VoucherValidity  time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// Services is the wired engine.
type Services struct {
	Ledger       *ledger.DefaultLedgerService
	Policy       *exemption.DefaultFeePolicy
	Tracker      *antimanipulation.DefaultTracker
	Refunds      *refund.DefaultRefundEngine
	Assignments  *assignment.DefaultAssignmentService
	Negotiations *negotiation.DefaultNegotiationService
	Sweeper      *cron.Sweeper
}

func BuildServices(repos *Repositories, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settingsCache := opts.Cache
	if settingsCache == nil {
		settingsCache = cache.NewLocalSettingsCache(30 * time.Second)
	}

	ledgerSvc := ledger.NewDefaultLedgerService(repos.Ledger, repos.Tx, opts.Payments, logger.Named("ledger"))
	policy := &exemption.DefaultFeePolicy{
		Profiles:        repos.Profiles,
		Vouchers:        repos.Vouchers,
		Settings:        repos.Settings,
		Cache:           settingsCache,
		VoucherValidity: opts.VoucherValidity,
		Logger:          logger.Named("exemption"),
		Now:             opts.Now,
	}
	tracker := &antimanipulation.DefaultTracker{
		Flags:     repos.Flags,
		Jobs:      repos.Jobs,
		Profiles:  repos.Profiles,
		Threshold: opts.DeclineThreshold,
		Window:    opts.DeclineWindow,
		Logger:    logger.Named("antimanipulation"),
		Now:       opts.Now,
	}
	refunds := &refund.DefaultRefundEngine{
		Bookings: repos.Bookings,
		Jobs:     repos.Jobs,
		Settings: repos.Settings,
		Ledger:   ledgerSvc,
		Tx:       repos.Tx,
		Cache:    settingsCache,
		Logger:   logger.Named("refund"),
		Now:      opts.Now,
	}
	enqueuer := opts.Enqueuer
	if enqueuer == nil {
		enqueuer = &tasks.InlineEnqueuer{Refunds: refunds, Logger: logger.Named("tasks")}
	}
	assignments := &assignment.DefaultAssignmentService{
		Bookings:       repos.Bookings,
		Jobs:           repos.Jobs,
		Profiles:       repos.Profiles,
		Ledger:         ledgerSvc,
		Policy:         policy,
		Tracker:        tracker,
		Notifier:       opts.Notifier,
		Refunds:        enqueuer,
		Tx:             repos.Tx,
		MinRefundStars: opts.MinRefundStars,
		Logger:         logger.Named("assignment"),
		Now:            opts.Now,
	}
	negotiations := &negotiation.DefaultNegotiationService{
		Bookings:     repos.Bookings,
		Negotiations: repos.Negotiations,
		Notifier:     opts.Notifier,
		Tx:           repos.Tx,
		Logger:       logger.Named("negotiation"),
		Now:          opts.Now,
	}
	return &Services{
		Ledger:       ledgerSvc,
		Policy:       policy,
		Tracker:      tracker,
		Refunds:      refunds,
		Assignments:  assignments,
		Negotiations: negotiations,
		Sweeper:      &cron.Sweeper{Tracker: tracker, Policy: policy, Refunds: refunds, Logger: logger.Named("sweeper")},
	}
}
