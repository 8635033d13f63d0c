package main

import (
	"context"
	"time"

	"FuseGate/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartSweepCron starts the periodic event sweep.
// Runs at the top of every minute; each run prunes expired success/failure
// events for all tracked services and refreshes the registry TTL.
func StartSweepCron(task *biz.SweepTask, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Cron expression: second minute hour day month weekday
	_, err := c.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := task.Sweep(ctx); err != nil {
			helper.Errorw("event sweep failed", "error", err)
		}
	})

	if err != nil {
		helper.Errorw("failed to register sweep cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Info("event sweep cron job started: runs every minute")

	return c
}
