package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avetisov/investline/internal/app/logger"
)

type AccrualProcessor interface {
	Run(ctx context.Context)
}

// AccrualProcessorImpl drives the daily accrual on a fixed interval. The
// engine itself is idempotent per calendar day, so the interval may be much
// shorter than 24h without double paying.
type AccrualProcessorImpl struct {
	accrualService AccrualService
	interval       time.Duration
}

func NewAccrualProcessor(accrualService AccrualService, interval time.Duration) *AccrualProcessorImpl {
	return &AccrualProcessorImpl{
		accrualService: accrualService,
		interval:       interval,
	}
}

func (ap *AccrualProcessorImpl) Run(ctx context.Context) {
	logger.Log.Info("accrual processor started", zap.Duration("interval", ap.interval))
	ap.runOnce(ctx)

	ticker := time.NewTicker(ap.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ap.runOnce(ctx)
		case <-ctx.Done():
			logger.Log.Info("accrual processor stopped")
			return
		}
	}
}

func (ap *AccrualProcessorImpl) runOnce(ctx context.Context) {
	result, err := ap.accrualService.RunDailyAccrual(ctx, time.Now())
	if err != nil {
		logger.Log.Error("accrual run failed", zap.Error(err))
		return
	}
	if result.Processed > 0 || result.Failed > 0 {
		logger.Log.Info("accrual run completed",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed))
	}
}
