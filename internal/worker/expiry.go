package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer flips discounts past their expiry to the expired status.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper periodically marks due discounts expired so listings and
// reports see the same state the engine enforces at apply time.
type ExpirySweeper struct {
	store    Expirer
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewExpirySweeper creates a sweeper running every interval.
func NewExpirySweeper(store Expirer, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpirySweeper{store: store, interval: interval, logger: logger, now: time.Now}
}

// Sweep runs one pass.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("discounts expired", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}
