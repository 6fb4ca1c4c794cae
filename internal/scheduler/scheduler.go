package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"autonomous-agent/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task now and then on each tick until ctx is done. Runs never
// overlap: a tick that fires while the task is running is dropped.
func Every(ctx context.Context, logger *logrus.Logger, interval time.Duration, name string, task Task) {
	log := logging.Component(logger, "scheduler").WithField("task", name)

	run := func() {
		if err := task(ctx); err != nil {
			log.WithError(err).Error("task failed")
		}
	}

	// run immediately
	run()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("scheduler stopped")
			return
		case <-t.C:
			run()
		}
	}
}
