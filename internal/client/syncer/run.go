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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// run is the state of one Sync call.
type run struct {
	*Engine
	shop string
	log  logging.Logger

	mu  sync.Mutex
	res Result

	// fetched holds the ids returned by the catalog fetch, remoteIDs the
	// full id enumeration; both stay nil when not obtained this run.
	fetched      map[string]bool
	remoteIDs    map[string]bool
	pendingApply []models.Product
	fetchedAt    time.Time
	fetchOK      bool
	applyOK      bool

	// unreadable holds the keys of local rows already counted as malformed.
	unreadable map[string]bool
}

func (r *run) fail(phase Phase, key string, err error) {
	r.mu.Lock()
	r.res.fail(phase, key, err)
	r.mu.Unlock()
	metrics.SyncItemsTotal.WithLabelValues(string(phase), "failed").Inc()
}

// setAside counts each undecodable local row once per run. The rows stay
// untouched; other records carry on.
func (r *run) setAside(ctx context.Context, phase Phase, bad []common.RecordError) {
	for _, rec := range bad {
		if r.unreadable[rec.Key] {
			continue
		}
		if r.unreadable == nil {
			r.unreadable = make(map[string]bool)
		}
		r.unreadable[rec.Key] = true
		r.log.Warn(ctx, "skipping unreadable local row", "phase", string(phase), "key", rec.Key, "err", rec.Err)
		r.fail(phase, rec.Key, rec)
	}
}

// lost records that the remote store became unreachable after the gate.
func (r *run) lost(phase Phase, key string, err error) {
	r.fail(phase, key, connectivity(err))
	r.mu.Lock()
	r.res.Degraded = true
	r.mu.Unlock()
}

// itemFailed classifies a failed remote write of one item. A timeout or a
// rejection fails that item only. It returns an error when the rest of the
// phase has to be skipped: the run was cancelled or the store is gone.
func (r *run) itemFailed(ctx context.Context, phase Phase, key string, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		r.fail(phase, key, fmt.Errorf("%w: %v", common.ErrItemWrite, err))
		return nil
	case common.IsConnectivity(err):
		r.lost(phase, key, err)
		return connectivity(err)
	default:
		r.fail(phase, key, fmt.Errorf("%w: %v", common.ErrItemWrite, err))
		return nil
	}
}

func (r *run) done(phase Phase, counter *int) {
	r.mu.Lock()
	*counter++
	r.mu.Unlock()
	metrics.SyncItemsTotal.WithLabelValues(string(phase), "ok").Inc()
}

// phase wraps one step in a span and its start/finish events. A non-nil
// error from fn stops the run and becomes Result.Err. Only the gate returns
// errors; later steps record their failures and let the run go on.
func (r *run) phase(ctx context.Context, p Phase, fn func(ctx context.Context) (int, error)) error {
	ctx, span := r.tracer.Start(ctx, "sync."+string(p))
	defer span.End()

	r.emit(Event{Kind: PhaseStarted, Phase: p})
	failedBefore := r.res.Failed
	n, err := fn(ctx)
	failed := r.res.Failed - failedBefore
	span.SetAttributes(attribute.Int("done", n), attribute.Int("failed", failed))
	if err != nil {
		span.RecordError(err)
	}
	r.emit(Event{Kind: PhaseFinished, Phase: p, Done: n, Failed: failed})
	return err
}

func (r *run) execute(ctx context.Context) {
	steps := []struct {
		phase Phase
		fn    func(ctx context.Context) (int, error)
	}{
		{PhaseGate, r.gate},
		{PhaseUploadSales, r.uploadSales},
		{PhaseUploadProducts, r.uploadProducts},
		{PhaseFetch, r.fetch},
		{PhaseApply, r.apply},
		{PhaseReconcile, r.reconcile},
		{PhaseCursor, r.advanceCursor},
	}
	for _, s := range steps {
		if ctx.Err() != nil {
			r.res.Err = fmt.Errorf("%w before %s", common.ErrCancelled, s.phase)
			return
		}
		if err := r.phase(ctx, s.phase, s.fn); err != nil {
			r.res.Err = err
			return
		}
	}
}

// gate checks reachability and the shop before any data moves.
func (r *run) gate(ctx context.Context) (int, error) {
	if r.shop == "" {
		return 0, common.ErrNoCurrentShop
	}
	if err := r.call(ctx, r.remote.Ping); err != nil {
		return 0, connectivity(err)
	}

	var shop *models.Shop
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		shop, err = r.remote.CheckShop(ctx, r.shop)
		return err
	})
	if err != nil {
		if common.IsConnectivity(err) {
			return 0, connectivity(err)
		}
		if errors.Is(err, common.ErrAuthorization) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", common.ErrAuthorization, err)
	}
	if err := r.local.SetShopConfig(ctx, r.shop, shop.Config); err != nil {
		r.log.Warn(ctx, "failed to cache shop config", "err", err)
	}

	var names []string
	err = r.call(ctx, func(ctx context.Context) error {
		var err error
		names, err = r.remote.ListShops(ctx)
		return err
	})
	if err == nil {
		err = r.local.SetCachedShops(ctx, names)
	}
	if err != nil {
		r.log.Warn(ctx, "failed to refresh shop list", "err", err)
	}
	return 1, nil
}

// fanOut runs fn for every item with bounded concurrency. fn returns an
// error only when the remaining items of the phase must be skipped.
func fanOut[T any](ctx context.Context, r *run, phase Phase, items []T, fn func(ctx context.Context, item T) error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.UploadConcurrency)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := r.limiter.Wait(gctx); err != nil {
				return nil
			}
			return fn(gctx, item)
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		r.log.Warn(ctx, "phase cut short", "phase", string(phase), "err", err)
	}
}

func (r *run) uploadSales(ctx context.Context) (int, error) {
	pending, bad, err := r.local.ListPendingSales(ctx)
	if err != nil {
		r.fail(PhaseUploadSales, "list", err)
		return 0, nil
	}
	r.setAside(ctx, PhaseUploadSales, bad)

	fanOut(ctx, r, PhaseUploadSales, pending, func(ctx context.Context, row models.LocalSale) error {
		key := fmt.Sprintf("%s@%s", row.Shop, row.Timestamp.Format(common.TimestampLayout))
		sale, err := row.Decode()
		if err != nil {
			r.fail(PhaseUploadSales, key, fmt.Errorf("%w: %v", common.ErrDataIntegrity, err))
			return nil
		}
		err = r.call(ctx, func(ctx context.Context) error {
			return r.remote.AppendSale(ctx, row.Shop, sale)
		})
		if err != nil {
			return r.itemFailed(ctx, PhaseUploadSales, key, err)
		}
		if err := r.local.MarkSaleSynced(ctx, row.Shop, row.Timestamp); err != nil {
			r.fail(PhaseUploadSales, key, err)
			return nil
		}
		r.done(PhaseUploadSales, &r.res.UploadedSales)
		return nil
	})
	return r.res.UploadedSales, nil
}

func (r *run) uploadProducts(ctx context.Context) (int, error) {
	modified, bad, err := r.local.ListModified(ctx)
	if err != nil {
		r.fail(PhaseUploadProducts, "list", err)
		return 0, nil
	}
	r.setAside(ctx, PhaseUploadProducts, bad)

	fanOut(ctx, r, PhaseUploadProducts, modified, func(ctx context.Context, p models.LocalProduct) error {
		var rev models.Revision
		err := r.call(ctx, func(ctx context.Context) error {
			var err error
			rev, err = r.remote.UpsertProduct(ctx, p.ID, r.shop, p.ProductFields, p.Price)
			return err
		})
		if err != nil {
			return r.itemFailed(ctx, PhaseUploadProducts, p.ID, err)
		}
		r.done(PhaseUploadProducts, &r.res.ProductsUploaded)

		ok, err := r.local.MarkProductSynced(ctx, p.ID, p.Revision, rev.ProductID, rev.LastUpdated)
		if err != nil {
			r.fail(PhaseUploadProducts, p.ID, err)
			return nil
		}
		if !ok {
			r.log.Info(ctx, "product edited during upload, keeping it modified", "product_id", p.ID)
		}
		return nil
	})
	return r.res.ProductsUploaded, nil
}

// fetch downloads the full catalog or the delta since the cursor, and the
// id enumeration when deletions are to be reconciled.
func (r *run) fetch(ctx context.Context) (int, error) {
	since, err := r.local.Cursor(ctx, r.shop)
	if err != nil {
		r.log.Warn(ctx, "failed to read cursor, falling back to full sync", "err", err)
		since = nil
	}
	if since == nil {
		r.res.Mode = ModeFull
	} else {
		r.res.Mode = ModeDelta
		s := since.Add(-r.opts.CursorSkew)
		since = &s
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("mode", string(r.res.Mode)))

	scope := ""
	if r.opts.ScopeToShop {
		scope = r.shop
	}

	// captured before the query so writes landing meanwhile are seen next run
	r.fetchedAt = r.now()
	var products []models.Product
	err = r.call(ctx, func(ctx context.Context) error {
		var err error
		products, err = r.remote.QueryDelta(ctx, scope, since)
		return err
	})
	switch {
	case err == nil:
		r.fetchOK = true
		r.fetched = make(map[string]bool, len(products))
		for _, p := range products {
			r.fetched[p.ID] = true
		}
		r.pendingApply = products
	case ctx.Err() != nil:
		return 0, nil
	case common.IsConnectivity(err):
		r.lost(PhaseFetch, "catalog", err)
		return 0, nil
	default:
		r.fail(PhaseFetch, "catalog", err)
	}

	if r.res.Mode == ModeFull || r.scanDue() {
		var keys []models.ProductKey
		err = r.call(ctx, func(ctx context.Context) error {
			var err error
			keys, err = r.remote.ListAllIDs(ctx)
			return err
		})
		switch {
		case err == nil:
			r.remoteIDs = make(map[string]bool, len(keys))
			for _, k := range keys {
				r.remoteIDs[k.ID] = true
			}
		case ctx.Err() != nil:
			return len(products), nil
		case common.IsConnectivity(err):
			r.lost(PhaseFetch, "ids", err)
		default:
			r.fail(PhaseFetch, "ids", err)
		}
	}
	return len(products), nil
}

// apply stores downloaded products unless a local edit is pending. A local
// row that cannot be read is skipped without holding the cursor back.
func (r *run) apply(ctx context.Context) (int, error) {
	r.applyOK = true
	for _, p := range r.pendingApply {
		applied, err := r.local.ApplyRemote(ctx, p, r.shop)
		var rec common.RecordError
		if errors.As(err, &rec) {
			r.setAside(ctx, PhaseApply, []common.RecordError{rec})
			continue
		}
		if err != nil {
			r.applyOK = false
			r.fail(PhaseApply, p.ID, fmt.Errorf("%w: %v", common.ErrItemWrite, err))
			continue
		}
		if applied {
			r.done(PhaseApply, &r.res.Downloaded)
		}
	}
	return r.res.Downloaded, nil
}

// reconcile purges synced rows missing from the id enumeration. In a scoped
// full run it also clears the shop's price from rows the shop no longer
// lists.
func (r *run) reconcile(ctx context.Context) (int, error) {
	if r.remoteIDs == nil {
		return 0, nil
	}
	local, bad, err := r.local.ListAllLocal(ctx)
	if err != nil {
		r.fail(PhaseReconcile, "list", err)
		return 0, nil
	}
	r.setAside(ctx, PhaseReconcile, bad)

	delist := r.opts.ScopeToShop && r.res.Mode == ModeFull && r.fetchOK
	var gone []string
	for _, p := range local {
		if p.SyncStatus != models.StatusSynced {
			continue
		}
		// Keyed by id: variants share a barcode.
		if !r.remoteIDs[p.ID] {
			gone = append(gone, p.ID)
			continue
		}
		if delist && p.Price != nil && !r.fetched[p.ID] {
			cleared, err := r.local.ClearShopPrice(ctx, p.ID, r.shop)
			if err != nil {
				r.fail(PhaseReconcile, p.ID, err)
				continue
			}
			if cleared {
				r.res.Delisted++
			}
		}
	}

	if len(gone) > 0 {
		n, err := r.local.DeleteSynced(ctx, gone)
		r.res.DeletedLocal += n
		if err != nil {
			r.fail(PhaseReconcile, "delete", err)
		}
		metrics.SyncItemsTotal.WithLabelValues(string(PhaseReconcile), "ok").Add(float64(n))
	}
	return r.res.DeletedLocal + r.res.Delisted, nil
}

func (r *run) advanceCursor(ctx context.Context) (int, error) {
	if !r.fetchOK || !r.applyOK || r.res.Degraded {
		r.log.Warn(ctx, "cursor kept", "fetch_ok", r.fetchOK, "apply_ok", r.applyOK, "degraded", r.res.Degraded)
		return 0, nil
	}
	if err := r.local.SetCursor(ctx, r.shop, r.fetchedAt); err != nil {
		r.fail(PhaseCursor, "cursor", err)
		return 0, nil
	}
	r.res.CursorAdvanced = true
	return 1, nil
}
