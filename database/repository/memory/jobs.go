package memoryRepo

import (
	"context"
	"time"

	jobRepo "installhub/database/repository/job"
	"installhub/domain"
	"installhub/models"
)

var _ jobRepo.JobRepository = (*JobRepo)(nil)

type JobRepo struct{ s *Store }

func (r *JobRepo) Create(ctx context.Context, job *models.JobAssignment) error {
	defer r.s.lock(ctx)()
	for _, j := range r.s.st.jobs {
		if j.ID == job.ID {
			return domain.New(domain.CodeConflict, "job assignment %s already exists", job.ID)
		}
		if job.Active && j.Active && j.BookingID == job.BookingID {
			return domain.New(domain.CodeAlreadyHeld, "booking %s already has an active assignment", job.BookingID)
		}
	}
	r.s.st.jobs = append(r.s.st.jobs, *job)
	return nil
}

func (r *JobRepo) find(ctx context.Context, match func(models.JobAssignment) bool, latest bool, what string) (*models.JobAssignment, error) {
	defer r.s.lock(ctx)()
	var found *models.JobAssignment
	for i := range r.s.st.jobs {
		if match(r.s.st.jobs[i]) {
			j := r.s.st.jobs[i]
			found = &j
			if !latest {
				break
			}
		}
	}
	if found == nil {
		return nil, domain.NotFound("job assignment", what)
	}
	return found, nil
}

func (r *JobRepo) GetByID(ctx context.Context, id string) (*models.JobAssignment, error) {
	return r.find(ctx, func(j models.JobAssignment) bool { return j.ID == id }, false, id)
}

func (r *JobRepo) GetActiveByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error) {
	return r.find(ctx, func(j models.JobAssignment) bool { return j.BookingID == bookingID && j.Active }, false, "for booking "+bookingID)
}

func (r *JobRepo) GetLatestByBooking(ctx context.Context, bookingID string) (*models.JobAssignment, error) {
	return r.find(ctx, func(j models.JobAssignment) bool { return j.BookingID == bookingID }, true, "for booking "+bookingID)
}

func (r *JobRepo) list(ctx context.Context, match func(models.JobAssignment) bool, limit int64) []models.JobAssignment {
	defer r.s.lock(ctx)()
	out := []models.JobAssignment{}
	for _, j := range r.s.st.jobs {
		if match(j) {
			out = append(out, j)
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out
}

func (r *JobRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.JobAssignment, error) {
	return r.list(ctx, func(j models.JobAssignment) bool { return j.BookingID == bookingID }, 0), nil
}

func (r *JobRepo) ListByInstaller(ctx context.Context, installerID string, limit int64) ([]models.JobAssignment, error) {
	return r.list(ctx, func(j models.JobAssignment) bool { return j.InstallerID == installerID }, limit), nil
}

func (r *JobRepo) CountReleasedBy(ctx context.Context, bookingID, installerID string) (int64, error) {
	jobs := r.list(ctx, func(j models.JobAssignment) bool {
		return j.BookingID == bookingID && j.InstallerID == installerID && j.Status == models.JobCancelled
	}, 0)
	return int64(len(jobs)), nil
}

func (r *JobRepo) cas(ctx context.Context, id string, match func(models.JobAssignment) bool, mutate func(*models.JobAssignment)) *models.JobAssignment {
	defer r.s.lock(ctx)()
	for i := range r.s.st.jobs {
		j := r.s.st.jobs[i]
		if j.ID != id {
			continue
		}
		if !match(j) {
			return nil
		}
		mutate(&j)
		r.s.st.jobs[i] = j
		return &j
	}
	return nil
}

func (r *JobRepo) Advance(ctx context.Context, jobID string, from, to models.JobStatus, now time.Time) (*models.JobAssignment, error) {
	return r.cas(ctx, jobID,
		func(j models.JobAssignment) bool { return j.Active && j.Status == from },
		func(j *models.JobAssignment) {
			j.Status = to
			switch to {
			case models.JobAccepted:
				j.AcceptedAt = &now
			case models.JobInProgress:
				j.StartedAt = &now
			case models.JobCompleted:
				j.CompletedAt = &now
			}
		}), nil
}

func (r *JobRepo) Cancel(ctx context.Context, jobID string, upd jobRepo.CancelUpdate) (*models.JobAssignment, error) {
	return r.cas(ctx, jobID,
		func(j models.JobAssignment) bool { return j.Active && j.Status.Cancellable() },
		func(j *models.JobAssignment) {
			at := upd.At
			j.Status = models.JobCancelled
			j.Active = false
			j.LeadFeeStatus = upd.LeadFeeStatus
			j.CancelReason = upd.Reason
			j.CancelledBy = upd.By
			j.CancelledAt = &at
		}), nil
}
