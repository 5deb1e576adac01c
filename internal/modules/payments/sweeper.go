package payments

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = 10 * time.Minute

// Sweeper periodically purges expired provisional orders so abandoned
// checkouts do not accumulate in the ledger.
type Sweeper struct {
	ledger   *ProvisionalLedger
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(ledger *ProvisionalLedger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{ledger: ledger, interval: interval, logger: slog.Default()}
}

func (s *Sweeper) SetLogger(l *slog.Logger) { s.logger = l }

// Run blocks until ctx is cancelled, sweeping once per interval. It is
// meant to be started as a goroutine next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.ledger.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "provisional order sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired provisional orders purged", "count", n)
	}
}
