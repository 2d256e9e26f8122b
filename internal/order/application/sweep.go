package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

// Sweep is the background reconciler for the webhook-only path: an order
// paid via webhook alone, with the browser never returning, would otherwise
// sit at status=pending forever. It also purges orders whose payment was
// never initiated.
type Sweep struct {
	log      *slog.Logger
	repo     OrderRepository
	interval time.Duration
	minAge   time.Duration
	purgeAge time.Duration
	batch    int
}

func NewSweep(log *slog.Logger, repo OrderRepository) *Sweep {
	return &Sweep{
		log:      log,
		repo:     repo,
		interval: time.Minute,
		minAge:   2 * time.Minute,
		purgeAge: 24 * time.Hour,
		batch:    100,
	}
}

func (s *Sweep) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep stopping")
			return nil
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep pass. Split out from Run so it can be driven directly.
func (s *Sweep) Tick(ctx context.Context) {
	refs, err := s.repo.PaidStuckPending(ctx, s.minAge, s.batch)
	if err != nil {
		s.log.Error("sweep: stuck order lookup failed", "err", err)
	}
	for _, ref := range refs {
		if err := s.repo.EscalateStatus(ctx, ref, domain.StatusPending, domain.StatusConfirmed); err != nil {
			s.log.Error("sweep: escalation failed", "reference", ref, "err", err)
			continue
		}
		s.log.Info("sweep: escalated paid order", "reference", ref)
	}

	n, err := s.repo.PurgeAbandoned(ctx, s.purgeAge)
	if err != nil {
		s.log.Error("sweep: purge failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("sweep: purged abandoned orders", "count", n)
	}
}
