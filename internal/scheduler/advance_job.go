package scheduler

import (
	"context"
	"fmt"

	"github.com/nfl-analytics/backend/internal/season"
)

// AdvanceDayJob wraps one dynasty's SeasonController so it can be driven by
// the cron scheduler instead of an interactive caller.
type AdvanceDayJob struct {
	dynasty    string
	controller *season.Controller
}

// NewAdvanceDayJob builds a scheduled advance-day job for one dynasty.
func NewAdvanceDayJob(dynasty string, controller *season.Controller) *AdvanceDayJob {
	return &AdvanceDayJob{dynasty: dynasty, controller: controller}
}

func (j *AdvanceDayJob) Name() string {
	return fmt.Sprintf("advance-day:%s", j.dynasty)
}

func (j *AdvanceDayJob) Run(ctx context.Context) error {
	_, err := j.controller.AdvanceDay(ctx)
	return err
}
