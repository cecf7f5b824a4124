package memoryRepo

import (
	"time"

	jobRepo "installhub/database/repository/job"
	"installhub/models"
)

func jobRepoCancel(at time.Time) jobRepo.CancelUpdate {
	return jobRepo.CancelUpdate{
		Reason:        "changed mind",
		By:            models.CancelledByInstaller,
		LeadFeeStatus: models.LeadFeeReversed,
		At:            at,
	}
}
