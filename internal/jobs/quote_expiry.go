// Package jobs holds background work that runs beside the HTTP server.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer lapses pending quotes whose validUntil is before now.
type Expirer interface {
	ExpireQuotes(ctx context.Context, now time.Time) (int, error)
}

type QuoteExpiry struct {
	Expirer  Expirer
	Interval time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewQuoteExpiry(e Expirer, interval time.Duration, logger *zap.Logger) *QuoteExpiry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteExpiry{Expirer: e, Interval: interval, Logger: logger, Now: time.Now}
}

// Run sweeps once immediately and then every Interval until ctx is done.
// A non-positive Interval disables the job.
func (j *QuoteExpiry) Run(ctx context.Context) {
	if j.Interval <= 0 {
		j.Logger.Info("jobs.quote_expiry.disabled")
		return
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.Logger.Info("jobs.quote_expiry.stopped")
			return
		case <-t.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and logs the outcome.
func (j *QuoteExpiry) Sweep(ctx context.Context) int {
	start := time.Now()
	n, err := j.Expirer.ExpireQuotes(ctx, j.Now().UTC())
	if err != nil {
		j.Logger.Error("jobs.quote_expiry.failed", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		j.Logger.Info("jobs.quote_expiry", zap.Int("expired", n), zap.Duration("took", time.Since(start)))
	}
	return n
}
