package memoryRepo

import (
	"context"
	"time"

	flagRepo "installhub/database/repository/flag"
	"installhub/domain"
	"installhub/models"
)

var _ flagRepo.FlagRepository = (*FlagRepo)(nil)

type FlagRepo struct{ s *Store }

func (r *FlagRepo) Append(ctx context.Context, rec *models.AntiManipulationRecord) error {
	defer r.s.lock(ctx)()
	r.s.st.flags = append(r.s.st.flags, *rec)
	return nil
}

func (r *FlagRepo) GetByID(ctx context.Context, id string) (*models.AntiManipulationRecord, error) {
	defer r.s.lock(ctx)()
	for _, rec := range r.s.st.flags {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, domain.NotFound("anti-manipulation record", id)
}

func (r *FlagRepo) List(ctx context.Context, f flagRepo.ListFilter) ([]models.AntiManipulationRecord, error) {
	defer r.s.lock(ctx)()
	out := []models.AntiManipulationRecord{}
	flags := r.s.st.flags
	for i := len(flags) - 1; i >= 0; i-- {
		rec := flags[i]
		if f.InstallerID != "" && rec.InstallerID != f.InstallerID {
			continue
		}
		if f.Pattern != "" && rec.Pattern != f.Pattern {
			continue
		}
		if f.UnresolvedOnly && rec.Resolved {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && int64(len(out)) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *FlagRepo) CountSince(ctx context.Context, installerID, pattern string, since time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for _, rec := range r.s.st.flags {
		if rec.InstallerID == installerID && rec.Pattern == pattern && !rec.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *FlagRepo) HasOpen(ctx context.Context, installerID, bookingID, pattern string) (bool, error) {
	defer r.s.lock(ctx)()
	for _, rec := range r.s.st.flags {
		if rec.InstallerID == installerID && rec.Pattern == pattern && !rec.Resolved &&
			(bookingID == "" || rec.BookingID == bookingID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *FlagRepo) Resolve(ctx context.Context, id, by, note string, now time.Time) (*models.AntiManipulationRecord, error) {
	defer r.s.lock(ctx)()
	for i, rec := range r.s.st.flags {
		if rec.ID != id {
			continue
		}
		if rec.Resolved {
			return nil, nil
		}
		rec.Resolved = true
		rec.ResolvedBy = by
		rec.ResolutionNote = note
		rec.ResolvedAt = &now
		r.s.st.flags[i] = rec
		return &rec, nil
	}
	return nil, nil
}
