package antimanipulation

import (
	"context"
	"errors"
	"testing"
	"time"

	memoryRepo "installhub/database/repository/memory"
	"installhub/domain"
	"installhub/models"
)

func newTracker(now time.Time) (*DefaultTracker, *memoryRepo.Store) {
	store := memoryRepo.NewStore()
	return &DefaultTracker{
		Flags:     store.Flags(),
		Jobs:      store.Jobs(),
		Profiles:  store.Profiles(),
		Threshold: 3,
		Window:    24 * time.Hour,
		Now:       func() time.Time { return now },
	}, store
}

func TestExcessiveDeclinesFlaggedOnceAtThreshold(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr, _ := newTracker(now)
	ctx := context.Background()

	for i, booking := range []string{"b1", "b2"} {
		recs, err := tr.RecordDecline(ctx, "i1", booking, "busy")
		if err != nil || len(recs) != 1 {
			t.Fatalf("decline %d: %v records, %v", i, len(recs), err)
		}
	}
	recs, err := tr.RecordDecline(ctx, "i1", "b3", "busy")
	if err != nil {
		t.Fatalf("third decline: %v", err)
	}
	if len(recs) != 2 || recs[1].Pattern != models.PatternExcessiveDeclines || recs[1].Count != 3 {
		t.Fatalf("expected excessive_declines flag, got %+v", recs)
	}

	recs, _ = tr.RecordDecline(ctx, "i1", "b4", "busy")
	if len(recs) != 1 {
		t.Fatalf("open flag should not be duplicated, got %+v", recs)
	}
}

func TestDeclinesOutsideWindowIgnored(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr, _ := newTracker(now)
	ctx := context.Background()

	_, _ = tr.RecordDecline(ctx, "i1", "b1", "")
	_, _ = tr.RecordDecline(ctx, "i1", "b2", "")
	later := now.Add(48 * time.Hour)
	tr.Now = func() time.Time { return later }

	recs, _ := tr.RecordDecline(ctx, "i1", "b3", "")
	if len(recs) != 1 {
		t.Fatalf("stale declines counted: %+v", recs)
	}
}

func TestCheckReclaimCountsCycles(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr, store := newTracker(now)
	ctx := context.Background()

	if rec, err := tr.CheckReclaim(ctx, "i1", "b1"); err != nil || rec != nil {
		t.Fatalf("first claim flagged: %+v %v", rec, err)
	}
	_ = store.Jobs().Create(ctx, &models.JobAssignment{ID: "j1", BookingID: "b1", InstallerID: "i1", Status: models.JobCancelled})

	rec, err := tr.CheckReclaim(ctx, "i1", "b1")
	if err != nil || rec == nil {
		t.Fatalf("expected reclaim flag, got %+v %v", rec, err)
	}
	if rec.Pattern != models.PatternDeclineReclaimCycle || rec.Count != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestResolveOnce(t *testing.T) {
	tr, _ := newTracker(time.Now())
	ctx := context.Background()
	recs, _ := tr.RecordDecline(ctx, "i1", "b1", "")

	if _, err := tr.Resolve(ctx, recs[0].ID, "ops", "benign"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := tr.Resolve(ctx, recs[0].ID, "ops", "again"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected Conflict on second resolve, got %v", err)
	}
	open, _ := tr.List(ctx, "i1", true)
	if len(open) != 0 {
		t.Fatalf("expected no open records, got %d", len(open))
	}
}

func TestSuspensionLifecycle(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr, store := newTracker(now)
	ctx := context.Background()

	if err := tr.Suspend(ctx, "i1", now.Add(time.Hour), "ops"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	inst, _ := store.Profiles().GetInstaller(ctx, "i1")
	if !inst.Suspended(now) {
		t.Fatalf("expected suspension")
	}

	later := now.Add(2 * time.Hour)
	tr.Now = func() time.Time { return later }
	if n, err := tr.LiftExpiredSuspensions(ctx); err != nil || n != 1 {
		t.Fatalf("lift = %d, %v", n, err)
	}
	inst, _ = store.Profiles().GetInstaller(ctx, "i1")
	if inst.SuspendedUntil != nil {
		t.Fatalf("suspension not cleared")
	}
}
