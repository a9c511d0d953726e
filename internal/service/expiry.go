package service

import (
	"context"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ExpiryMonitor periodically sweeps OPEN sessions past due time plus
// grace and expires them through the same exclusive close path as a
// manual return, so a racing return and sweep resolve to one winner.
type ExpiryMonitor struct {
	log      *zap.Logger
	svc      *Service
	interval time.Duration
	grace    time.Duration
}

func NewExpiryMonitor(svc *Service, interval, grace time.Duration, log *zap.Logger) *ExpiryMonitor {
	return &ExpiryMonitor{
		log:      log.Named("sweep"),
		svc:      svc,
		interval: interval,
		grace:    grace,
	}
}

// Run blocks until ctx is cancelled.
func (m *ExpiryMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep expires every eligible session, isolating per-record failures:
// one bad record never aborts the batch. Losing the close race to a
// manual return is not a failure.
func (m *ExpiryMonitor) Sweep(ctx context.Context) {
	cutoff := m.svc.now().Add(-m.grace)
	recs, err := m.svc.repo.ListExpirable(ctx, cutoff)
	if err != nil {
		m.log.Error("list expirable", zap.Error(err))
		return
	}
	expired := 0
	for _, rec := range recs {
		if _, err := m.svc.Expire(ctx, rec); err != nil {
			if errors.Is(err, errs.ErrAlreadyClosed) {
				continue
			}
			m.log.Error("expire session",
				zap.String("session", rec.SessionUID),
				zap.String("resource", rec.ResourceID),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	if expired > 0 {
		m.log.Info("sweep finished", zap.Int("expired", expired), zap.Int("candidates", len(recs)))
	}
}
