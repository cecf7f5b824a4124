package memoryRepo

import (
	"context"
	"time"

	profileRepo "installhub/database/repository/profile"
	"installhub/models"
)

var _ profileRepo.ProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct{ s *Store }

func (r *ProfileRepo) GetInstaller(ctx context.Context, id string) (*models.Installer, error) {
	defer r.s.lock(ctx)()
	inst, ok := r.s.st.installers[id]
	if !ok {
		return &models.Installer{ID: id}, nil
	}
	return &inst, nil
}

func (r *ProfileRepo) update(ctx context.Context, id string, mutate func(*models.Installer)) {
	defer r.s.lock(ctx)()
	inst, ok := r.s.st.installers[id]
	if !ok {
		inst = models.Installer{ID: id}
	}
	mutate(&inst)
	r.s.st.installers[id] = inst
}

func (r *ProfileRepo) SetVIP(ctx context.Context, id string, vip bool, now time.Time) error {
	r.update(ctx, id, func(i *models.Installer) {
		i.VIP = vip
		i.UpdatedAt = now
	})
	return nil
}

func (r *ProfileRepo) SetSuspension(ctx context.Context, id string, until *time.Time, now time.Time) error {
	r.update(ctx, id, func(i *models.Installer) {
		i.SuspendedUntil = until
		i.UpdatedAt = now
	})
	return nil
}

func (r *ProfileRepo) LiftExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, inst := range r.s.st.installers {
		if inst.SuspendedUntil != nil && !inst.SuspendedUntil.After(now) {
			inst.SuspendedUntil = nil
			inst.UpdatedAt = now
			r.s.st.installers[id] = inst
			n++
		}
	}
	return n, nil
}

func (r *ProfileRepo) SetInstallerToken(ctx context.Context, id, token string) error {
	r.update(ctx, id, func(i *models.Installer) { i.FCMToken = token })
	return nil
}

func (r *ProfileRepo) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.customers[id]
	if !ok {
		return &models.Customer{ID: id}, nil
	}
	return &c, nil
}

func (r *ProfileRepo) SetCustomerToken(ctx context.Context, id, token string) error {
	defer r.s.lock(ctx)()
	r.s.st.customers[id] = models.Customer{ID: id, FCMToken: token}
	return nil
}
