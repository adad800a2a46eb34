package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitdesk/fitdesk/internal/observability/logger"
)

// Sweeper periodically expires subscriptions whose end date has passed. It
// is the only background task of the core and stays entirely outside the
// request path.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

// NewSweeper creates a sweeper with the given interval.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{service: service, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.service.SweepExpired(ctx, time.Now())
			if err != nil {
				slog.ErrorContext(ctx, "subscription sweep failed",
					logger.Component("sweeper"),
					logger.Error(err),
				)
				continue
			}
			if expired > 0 {
				slog.InfoContext(ctx, "subscription sweep completed",
					logger.Component("sweeper"),
					slog.Int("expired", expired),
				)
			}
		}
	}
}
