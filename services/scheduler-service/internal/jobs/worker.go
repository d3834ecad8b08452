// Package jobs runs the periodic reminder sweep against booking-service.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
)

const sweepLockKey = "scheduler:reminders:sweep"

type Trigger interface {
	Run(ctx context.Context) (internalapi.SweepResult, error)
}

// Locker keeps replicas from triggering the same period twice.
type Locker interface {
	TryObtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type Worker struct {
	trigger    Trigger
	locker     Locker
	logger     *slog.Logger
	interval   time.Duration
	runOnStart bool
}

type WorkerConfig struct {
	Interval   time.Duration
	RunOnStart bool
}

func NewWorker(trigger Trigger, locker Locker, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Worker{
		trigger:    trigger,
		locker:     locker,
		logger:     logger,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if w.runOnStart {
		w.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.Sweep(ctx); err != nil && !errors.Is(err, redisx.ErrLockBusy) {
		w.logger.Error("reminder sweep failed", "err", err)
	}
}

// Sweep triggers one reminder run. The lock is held for the whole period so a
// second replica ticking shortly after skips with redisx.ErrLockBusy.
func (w *Worker) Sweep(ctx context.Context) (internalapi.SweepResult, error) {
	if w.locker != nil {
		if _, err := w.locker.TryObtain(ctx, sweepLockKey, w.interval/2); err != nil {
			if errors.Is(err, redisx.ErrLockBusy) {
				w.logger.Debug("reminder sweep already claimed")
			}
			return internalapi.SweepResult{}, err
		}
	}

	res, err := w.trigger.Run(ctx)
	if err != nil {
		return internalapi.SweepResult{}, err
	}
	w.logger.Info("reminder sweep done",
		"total", res.Total,
		"successful", res.Successful,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	return res, nil
}
