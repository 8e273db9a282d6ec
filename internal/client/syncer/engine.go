package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/metrics"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/dmitrijs2005/possync/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// LocalStore is the part of the local cache the engine drives.
type LocalStore interface {
	// The list calls return rows that cannot be decoded apart, in the
	// second result.
	ListPendingSales(ctx context.Context) ([]models.LocalSale, []common.RecordError, error)
	MarkSaleSynced(ctx context.Context, shop string, ts time.Time) error

	ListModified(ctx context.Context) ([]models.LocalProduct, []common.RecordError, error)
	MarkProductSynced(ctx context.Context, productID string, expectedRevision int64, remoteID string, lastUpdated time.Time) (bool, error)

	ListAllLocal(ctx context.Context) ([]models.LocalProduct, []common.RecordError, error)
	ApplyRemote(ctx context.Context, p models.Product, shop string) (bool, error)
	DeleteSynced(ctx context.Context, ids []string) (int, error)
	ClearShopPrice(ctx context.Context, productID, shop string) (bool, error)

	Cursor(ctx context.Context, shop string) (*time.Time, error)
	SetCursor(ctx context.Context, shop string, ts time.Time) error
	ResetCursor(ctx context.Context) error

	SetCachedShops(ctx context.Context, shops []string) error
	SetShopConfig(ctx context.Context, shop string, cfg map[string]string) error
}

// Engine replicates between the local cache and the remote store.
type Engine struct {
	local  LocalStore
	remote remote.Store
	opts   Options
	log    logging.Logger
	tracer trace.Tracer

	now     func() time.Time
	running sync.Mutex
	scan    rate.Sometimes
	limiter *rate.Limiter
	events  chan Event
}

func NewEngine(local LocalStore, rs remote.Store, opts Options, l logging.Logger) *Engine {
	opts = opts.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.UploadRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadRate), opts.UploadConcurrency)
	}
	return &Engine{
		local:   local,
		remote:  rs,
		opts:    opts,
		log:     l.With("module", "sync_engine"),
		tracer:  tracing.Tracer("possync/syncer"),
		now:     time.Now,
		scan:    rate.Sometimes{Interval: opts.DeletionScanInterval},
		limiter: limiter,
		events:  make(chan Event, opts.EventBuffer),
	}
}

// Events returns the progress channel. Events are dropped when nobody keeps
// up with them; the engine never waits on a reader.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// ResetCursor forces the next run into full mode.
func (e *Engine) ResetCursor(ctx context.Context) error {
	return e.local.ResetCursor(ctx)
}

// Sync runs one replication pass for shop.
func (e *Engine) Sync(ctx context.Context, shop string) Result {
	if !e.running.TryLock() {
		res := Result{Err: common.ErrSyncInProgress}
		res.Message = res.summary()
		metrics.SyncRunsTotal.WithLabelValues("", "busy").Inc()
		return res
	}
	defer e.running.Unlock()

	start := e.now()
	ctx, span := e.tracer.Start(ctx, "sync.run", trace.WithAttributes(attribute.String("shop", shop)))
	defer span.End()

	r := &run{Engine: e, shop: shop, log: e.log.With("shop", shop)}
	r.log.Info(ctx, "sync started", "deletion_scan", string(e.opts.DeletionScan), "scope_to_shop", e.opts.ScopeToShop)
	r.execute(ctx)

	res := r.res
	res.Success = res.Err == nil
	res.Message = res.summary()

	outcome := "success"
	switch {
	case errors.Is(res.Err, common.ErrCancelled):
		outcome = "cancelled"
	case errors.Is(res.Err, common.ErrAuthorization):
		outcome = "unauthorized"
	case res.Err != nil:
		outcome = "aborted"
	case res.Degraded:
		outcome = "degraded"
	case res.Failed > 0:
		outcome = "partial"
	}
	metrics.SyncRunsTotal.WithLabelValues(string(res.Mode), outcome).Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("mode", string(res.Mode)),
		attribute.Int("downloaded", res.Downloaded),
		attribute.Int("failed", res.Failed),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		r.log.Warn(ctx, "sync failed", "err", res.Err, "outcome", outcome)
	} else {
		r.log.Info(ctx, "sync finished",
			"mode", string(res.Mode),
			"uploaded_sales", res.UploadedSales,
			"products_uploaded", res.ProductsUploaded,
			"downloaded", res.Downloaded,
			"deleted_local", res.DeletedLocal,
			"failed", res.Failed,
			"degraded", res.Degraded,
			"cursor_advanced", res.CursorAdvanced,
		)
	}

	e.emit(Event{Kind: Finished, Result: &res})
	return res
}

// call runs fn against the remote store with the per-call timeout.
func (e *Engine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return fn(cctx)
}

// scanDue reports whether a delta run should enumerate remote ids.
func (e *Engine) scanDue() bool {
	switch e.opts.DeletionScan {
	case ScanAlways:
		return true
	case ScanInterval:
		due := false
		e.scan.Do(func() { due = true })
		return due
	}
	return false
}

// connectivity wraps err so that errors.Is(err, common.ErrConnectivity) holds.
func connectivity(err error) error {
	if errors.Is(err, common.ErrConnectivity) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrConnectivity, err)
}
