package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/logging"
)

// ShopSource tells the scheduler which shop is active.
type ShopSource interface {
	CurrentShop(ctx context.Context) (string, error)
}

// Scheduler runs Engine.Sync every interval and on Trigger.
type Scheduler struct {
	engine   *Engine
	shops    ShopSource
	interval time.Duration
	trigger  chan struct{}
	log      logging.Logger
}

func NewScheduler(e *Engine, shops ShopSource, interval time.Duration, l logging.Logger) *Scheduler {
	return &Scheduler{
		engine:   e,
		shops:    shops,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		log:      l.With("module", "sync_scheduler"),
	}
}

// Trigger asks for a run as soon as possible. Triggers coalesce: it reports
// false when one is already queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is done. A non-positive interval disables the timer,
// leaving only manual triggers.
func (s *Scheduler) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			s.runOnce(ctx, "timer")
		case <-s.trigger:
			s.runOnce(ctx, "manual")
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	shop, err := s.shops.CurrentShop(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to read current shop", "err", err)
		return
	}
	if shop == "" {
		s.log.Info(ctx, "no current shop, skipping sync", "reason", reason)
		return
	}
	res := s.engine.Sync(ctx, shop)
	if res.Err != nil {
		s.log.Warn(ctx, "scheduled sync failed", "reason", reason, "err", res.Err)
	}
}
