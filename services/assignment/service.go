package assignment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"installhub/database"
	bookingRepo "installhub/database/repository/booking"
	jobRepo "installhub/database/repository/job"
	profileRepo "installhub/database/repository/profile"
	"installhub/domain"
	"installhub/models"
	"installhub/services/antimanipulation"
	"installhub/services/exemption"
	"installhub/services/ledger"
	"installhub/services/notification"
	"installhub/services/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DefaultAssignmentService struct {
	Bookings bookingRepo.BookingRepository
	Jobs     jobRepo.JobRepository
	Profiles profileRepo.ProfileRepository
	Ledger   ledger.LedgerService
	Policy   exemption.FeePolicy
	Tracker  antimanipulation.Tracker
	Notifier notification.Notifier
	Refunds  tasks.Enqueuer
	Tx       database.TxRunner

	MinRefundStars int
	Logger         *zap.Logger
	Now            func() time.Time
}

func (s *DefaultAssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultAssignmentService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultAssignmentService) CreateBooking(ctx context.Context, input models.CreateBookingInput) (*models.Booking, error) {
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, domain.Validation("customer id is required")
	}
	if strings.TrimSpace(input.Service) == "" {
		return nil, domain.Validation("service is required")
	}
	if input.TotalPrice < 0 {
		return nil, domain.Validation("total price must not be negative")
	}
	if input.LeadFee != nil && *input.LeadFee < 0 {
		return nil, domain.Validation("lead fee must not be negative")
	}
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()
	b := &models.Booking{
		ID:         id,
		CustomerID: input.CustomerID,
		Service:    input.Service,
		TotalPrice: input.TotalPrice,
		LeadFee:    input.LeadFee,
		Status:     models.BookingPending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.logger().Info("booking created", zap.String("bookingId", b.ID), zap.String("customerId", b.CustomerID))
	return b, nil
}

func (s *DefaultAssignmentService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, bookingID)
}

func (s *DefaultAssignmentService) DeleteBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	deleted, err := s.Bookings.MarkDeleted(ctx, bookingID, s.now())
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		current, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return nil, domain.InvalidTransition(string(current.Status), string(models.BookingDeleted))
	}
	s.logger().Info("booking deleted", zap.String("bookingId", bookingID))
	return deleted, nil
}

// claimRejection explains why a pending-and-unheld precondition failed.
func claimRejection(b *models.Booking) error {
	if b.InstallerID != "" || b.Status.Held() {
		return domain.New(domain.CodeAlreadyHeld, "booking %s is already held", b.ID)
	}
	return domain.InvalidTransition(string(b.Status), string(models.BookingAssigned))
}

func (s *DefaultAssignmentService) Claim(ctx context.Context, bookingID, installerID string) (*ClaimResult, error) {
	if installerID == "" {
		return nil, domain.Validation("installer id is required")
	}
	now := s.now()

	inst, err := s.Profiles.GetInstaller(ctx, installerID)
	if err != nil {
		return nil, err
	}
	if inst.Suspended(now) {
		return nil, domain.New(domain.CodeSuspended, "installer %s is suspended until %s", installerID, inst.SuspendedUntil.Format(time.RFC3339))
	}

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPending || b.InstallerID != "" {
		return nil, claimRejection(b)
	}
	if b.LeadFee == nil {
		return nil, domain.New(domain.CodeFeeMissing, "booking %s has no stored lead fee", bookingID)
	}

	var result *ClaimResult
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		result = nil
		claimed, err := s.Bookings.Claim(ctx, bookingID, installerID, now)
		if err != nil {
			return err
		}
		if claimed == nil {
			current, err := s.Bookings.GetByID(ctx, bookingID)
			if err != nil {
				return err
			}
			return claimRejection(current)
		}
		fee := *claimed.LeadFee

		// A zero fee leaves the exemption path untouched so no voucher is spent.
		decision := exemption.Decision{Reason: exemption.ReasonNone}
		if fee > 0 {
			decision, err = s.Policy.ShouldChargeFee(ctx, installerID)
			if err != nil {
				return err
			}
			waived, err := s.Policy.ConsumeVoucher(ctx, decision, installerID, bookingID)
			if err != nil {
				return err
			}
			if !waived {
				decision = exemption.Decision{Charge: true, Reason: exemption.ReasonNone}
			}
		}

		job := &models.JobAssignment{
			ID:              uuid.New().String(),
			BookingID:       bookingID,
			InstallerID:     installerID,
			Status:          models.JobAssigned,
			Active:          true,
			LeadFeeStatus:   models.LeadFeeWaived,
			LeadFeeAmount:   fee,
			ExemptionReason: string(decision.Reason),
			VoucherID:       decision.VoucherID,
			AssignedAt:      now,
		}
		out := &ClaimResult{Booking: claimed, Job: job, Decision: decision}

		if decision.Charge && fee > 0 {
			txn, wallet, err := s.Ledger.Post(ctx, models.PostEntry{
				Kind:        models.InstallerWallet,
				OwnerID:     installerID,
				Amount:      -fee,
				Type:        models.TxLeadPurchase,
				BookingID:   bookingID,
				Description: fmt.Sprintf("Lead purchase for %s booking", claimed.Service),
				Reference:   "lead:" + job.ID,
			})
			if err != nil {
				return err
			}
			job.LeadFeeStatus = models.LeadFeePaid
			out.Transaction, out.Wallet = txn, wallet
		}

		if err := s.Jobs.Create(ctx, job); err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("lead claimed",
		zap.String("bookingId", bookingID),
		zap.String("installerId", installerID),
		zap.String("jobId", result.Job.ID),
		zap.String("exemption", string(result.Decision.Reason)),
		zap.String("leadFeeStatus", string(result.Job.LeadFeeStatus)),
	)

	if s.Tracker != nil {
		if _, err := s.Tracker.CheckReclaim(ctx, installerID, bookingID); err != nil {
			s.logger().Warn("reclaim check failed", zap.String("bookingId", bookingID), zap.String("installerId", installerID), zap.Error(err))
		}
	}
	data := map[string]string{"bookingId": bookingID, "jobId": result.Job.ID}
	s.notifyInstaller(ctx, installerID, "Lead claimed", "You have claimed a new installation lead.", data)
	s.notifyCustomer(ctx, result.Booking.CustomerID, "Installer assigned", "An installer has picked up your booking.", data)
	return result, nil
}

func (s *DefaultAssignmentService) Advance(ctx context.Context, jobID, installerID string, next models.JobStatus) (*models.JobAssignment, error) {
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if installerID != "" && job.InstallerID != installerID {
		return nil, domain.New(domain.CodeForbidden, "job %s is not held by installer %s", jobID, installerID)
	}
	if !job.Active || !job.Status.CanAdvanceTo(next) {
		return nil, domain.InvalidTransition(string(job.Status), string(next))
	}
	now := s.now()

	var advanced *models.JobAssignment
	var booking *models.Booking
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		j, err := s.Jobs.Advance(ctx, jobID, job.Status, next, now)
		if err != nil {
			return err
		}
		if j == nil {
			return domain.InvalidTransition(string(job.Status), string(next))
		}
		b, err := s.Bookings.Transition(ctx, job.BookingID, job.InstallerID, job.Status.BookingStatus(), next.BookingStatus(), now)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.InvalidTransition(string(job.Status.BookingStatus()), string(next.BookingStatus()))
		}
		advanced, booking = j, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("job advanced",
		zap.String("jobId", jobID),
		zap.String("bookingId", job.BookingID),
		zap.String("from", string(job.Status)),
		zap.String("to", string(next)),
	)

	data := map[string]string{"bookingId": booking.ID, "jobId": jobID, "status": string(next)}
	if next == models.JobCompleted {
		s.notifyCustomer(ctx, booking.CustomerID, "Installation completed", "Your installation is complete. Please rate the work.", data)
	} else {
		s.notifyCustomer(ctx, booking.CustomerID, "Booking update", fmt.Sprintf("Your booking is now %s.", next), data)
	}
	return advanced, nil
}

func (s *DefaultAssignmentService) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, domain.Validation("cancellation reason is required")
	}
	if _, err := models.ParseCancelledBy(string(input.By)); err != nil {
		return nil, domain.Validation("%v", err)
	}

	job, err := s.Jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCancel(ctx, job, input); err != nil {
		return nil, err
	}
	if !job.Active || !job.Status.Cancellable() {
		return nil, domain.InvalidTransition(string(job.Status), string(models.JobCancelled))
	}
	now := s.now()

	feeStatus := job.LeadFeeStatus
	if feeStatus == models.LeadFeePaid {
		feeStatus = models.LeadFeeReversed
	}

	var result *CancelResult
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		result = nil
		cancelled, err := s.Jobs.Cancel(ctx, job.ID, jobRepo.CancelUpdate{
			Reason:        reason,
			By:            input.By,
			LeadFeeStatus: feeStatus,
			At:            now,
		})
		if err != nil {
			return err
		}
		if cancelled == nil {
			return domain.InvalidTransition(string(job.Status), string(models.JobCancelled))
		}
		released, err := s.Bookings.Release(ctx, job.BookingID, job.InstallerID, now)
		if err != nil {
			return err
		}
		if released == nil {
			return domain.New(domain.CodeConflict, "booking %s is no longer held by installer %s", job.BookingID, job.InstallerID)
		}
		out := &CancelResult{Job: cancelled, Booking: released}

		if job.LeadFeeStatus == models.LeadFeePaid && job.LeadFeeAmount > 0 {
			txn, _, err := s.Ledger.Post(ctx, models.PostEntry{
				Kind:        models.InstallerWallet,
				OwnerID:     job.InstallerID,
				Amount:      job.LeadFeeAmount,
				Type:        models.TxLeadReversal,
				BookingID:   job.BookingID,
				Description: fmt.Sprintf("Lead fee reversed: cancelled by %s", input.By),
				Reference:   "reversal:" + job.ID,
			})
			if err != nil {
				return err
			}
			out.Reversal = txn
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("job cancelled",
		zap.String("jobId", job.ID),
		zap.String("bookingId", job.BookingID),
		zap.String("installerId", job.InstallerID),
		zap.String("by", string(input.By)),
		zap.Bool("reversed", result.Reversal != nil),
	)

	if input.By == models.CancelledByInstaller && s.Tracker != nil {
		if _, err := s.Tracker.RecordDecline(ctx, job.InstallerID, job.BookingID, reason); err != nil {
			s.logger().Warn("decline tracking failed", zap.String("installerId", job.InstallerID), zap.Error(err))
		}
	}
	data := map[string]string{"bookingId": job.BookingID, "jobId": job.ID}
	s.notifyCustomer(ctx, result.Booking.CustomerID, "Booking reopened", "Your booking is looking for a new installer.", data)
	if input.By != models.CancelledByInstaller {
		s.notifyInstaller(ctx, job.InstallerID, "Job cancelled", "A job you held was cancelled: "+reason, data)
	}
	return result, nil
}

func (s *DefaultAssignmentService) authorizeCancel(ctx context.Context, job *models.JobAssignment, input CancelInput) error {
	if input.ActorID == "" {
		return nil
	}
	switch input.By {
	case models.CancelledByInstaller:
		if job.InstallerID != input.ActorID {
			return domain.New(domain.CodeForbidden, "job %s is not held by installer %s", job.ID, input.ActorID)
		}
	case models.CancelledByCustomer:
		b, err := s.Bookings.GetByID(ctx, job.BookingID)
		if err != nil {
			return err
		}
		if b.CustomerID != input.ActorID {
			return domain.New(domain.CodeForbidden, "booking %s does not belong to customer %s", b.ID, input.ActorID)
		}
	}
	return nil
}

func (s *DefaultAssignmentService) Decline(ctx context.Context, bookingID, installerID, reason string) (*CancelResult, error) {
	job, err := s.Jobs.GetActiveByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if job.InstallerID != installerID {
		return nil, domain.New(domain.CodeForbidden, "booking %s is not held by installer %s", bookingID, installerID)
	}
	return s.Cancel(ctx, CancelInput{
		JobID:   job.ID,
		Reason:  reason,
		By:      models.CancelledByInstaller,
		ActorID: installerID,
	})
}

func (s *DefaultAssignmentService) Rate(ctx context.Context, bookingID, customerID string, stars float64) (*models.Booking, error) {
	if math.IsNaN(stars) || stars < 0 || stars > 5 {
		return nil, domain.Validation("quality stars must be between 0 and 5, got %v", stars)
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && b.CustomerID != customerID {
		return nil, domain.New(domain.CodeForbidden, "booking %s does not belong to customer %s", bookingID, customerID)
	}
	if b.Status != models.BookingCompleted {
		return nil, domain.InvalidTransition(string(b.Status), "rated")
	}

	eligible := int(math.Floor(stars)) >= s.MinRefundStars
	rated, err := s.Bookings.SetRating(ctx, bookingID, stars, eligible, s.now())
	if err != nil {
		return nil, err
	}
	if rated == nil {
		current, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current.RefundProcessed {
			return nil, domain.New(domain.CodeAlreadyProcessed, "refund for booking %s already processed", bookingID)
		}
		return nil, domain.InvalidTransition(string(current.Status), "rated")
	}

	s.logger().Info("booking rated",
		zap.String("bookingId", bookingID),
		zap.Float64("stars", stars),
		zap.Bool("eligibleForRefund", eligible),
	)
	if eligible {
		s.enqueueRefund(ctx, bookingID)
	}
	return rated, nil
}

func (s *DefaultAssignmentService) GetJob(ctx context.Context, jobID string) (*models.JobAssignment, error) {
	return s.Jobs.GetByID(ctx, jobID)
}

func (s *DefaultAssignmentService) ListJobsForBooking(ctx context.Context, bookingID string) ([]models.JobAssignment, error) {
	return s.Jobs.ListByBooking(ctx, bookingID)
}

func (s *DefaultAssignmentService) ListJobsForInstaller(ctx context.Context, installerID string, limit int64) ([]models.JobAssignment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Jobs.ListByInstaller(ctx, installerID, limit)
}

// enqueueRefund hands the booking to the refund engine. Failures are left to
// the periodic sweep.
func (s *DefaultAssignmentService) enqueueRefund(ctx context.Context, bookingID string) {
	if s.Refunds == nil {
		return
	}
	if err := s.Refunds.EnqueueRefund(ctx, bookingID); err != nil {
		s.logger().Warn("refund not applied yet", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

func (s *DefaultAssignmentService) notifyInstaller(ctx context.Context, id, title, body string, data map[string]string) {
	if s.Notifier == nil || id == "" {
		return
	}
	if err := s.Notifier.NotifyInstaller(ctx, id, title, body, data); err != nil {
		s.logger().Debug("installer notification not sent", zap.String("installerId", id), zap.Error(err))
	}
}

func (s *DefaultAssignmentService) notifyCustomer(ctx context.Context, id, title, body string, data map[string]string) {
	if s.Notifier == nil || id == "" {
		return
	}
	if err := s.Notifier.NotifyCustomer(ctx, id, title, body, data); err != nil {
		s.logger().Debug("customer notification not sent", zap.String("customerId", id), zap.Error(err))
	}
}
