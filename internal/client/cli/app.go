package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/config"
	"github.com/dmitrijs2005/possync/internal/client/services"
	"github.com/dmitrijs2005/possync/internal/client/store"
	"github.com/dmitrijs2005/possync/internal/client/syncer"
	"github.com/dmitrijs2005/possync/internal/filex"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/dmitrijs2005/possync/internal/remote/dynamo"
	"github.com/dmitrijs2005/possync/internal/remote/grpcstore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Backend is a remote store that can also log a device into a shop.
type Backend interface {
	remote.Store
	services.Authenticator
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	local     *store.Store
	pos       services.POSService
	auth      services.AuthService
	engine    *syncer.Engine
	scheduler *syncer.Scheduler
	closers   []func() error

	reader *bufio.Reader
	out    io.Writer

	mu   sync.RWMutex
	mode Mode
}

// NewApp opens the local cache, connects the configured remote backend and
// wires the services, the sync engine and its scheduler.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stderr, slog.LevelWarn)

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}
	local, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	backend, closeBackend, err := newBackend(ctx, c, logger)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	app := newApp(c, logger, local, backend, os.Stdin, os.Stdout)
	app.closers = append(app.closers, closeBackend, local.Close)
	return app, nil
}

// newBackend builds the remote store selected by RemoteBackend.
func newBackend(ctx context.Context, c *config.Config, l logging.Logger) (Backend, func() error, error) {
	switch c.RemoteBackend {
	case "grpc":
		client, err := grpcstore.New(c.ServerEndpointAddr, c.CallTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to server: %w", err)
		}
		return client, client.Close, nil

	case "dynamodb":
		s, err := dynamo.New(ctx, dynamo.Config{
			Region:          c.Dynamo.Region,
			Endpoint:        c.Dynamo.Endpoint,
			AccessKeyID:     c.Dynamo.AccessKeyID,
			SecretAccessKey: c.Dynamo.SecretAccessKey,
			Tables: dynamo.Tables{
				Products: c.Dynamo.ProductsTable,
				Sales:    c.Dynamo.SalesTable,
				Shops:    c.Dynamo.ShopsTable,
			},
		}, l)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing dynamodb: %w", err)
		}
		return s, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", c.RemoteBackend)
}

func newApp(c *config.Config, l logging.Logger, local *store.Store, backend Backend, in io.Reader, out io.Writer) *App {
	pos := services.NewPOSService(local, backend, c.CallTimeout, l)
	engine := syncer.NewEngine(local, backend, c.SyncerOptions(), l)

	return &App{
		config:    c,
		logger:    l,
		local:     local,
		pos:       pos,
		auth:      services.NewAuthService(backend, local, pos),
		engine:    engine,
		scheduler: syncer.NewScheduler(engine, local, c.SyncInterval, l),
		reader:    bufio.NewReader(in),
		out:       out,
		mode:      ModeOffline,
	}
}

func (a *App) getMode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// setMode records the connectivity mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) getStatus() string {
	shop, _ := a.pos.CurrentShop(context.Background())
	if shop == "" {
		return fmt.Sprintf("(%s)", a.getMode())
	}
	return fmt.Sprintf("(%s %s)", shop, a.getMode())
}

// Run restores the saved session, starts the background workers and blocks
// in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.close()
	}()

	printlnFn("Welcome to the POS CLI (type 'help' for commands)")

	restored, err := a.auth.Restore(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to restore session", "err", err)
	}
	if !restored {
		printlnFn("No saved session, type 'login' to connect a shop")
	}

	var wg sync.WaitGroup
	workers := []func(ctx context.Context){
		a.scheduler.Run,
		a.printEvents,
		a.StartOnlineStatusWatcher,
	}
	if a.config.MetricsAddr != "" {
		workers = append(workers, a.serveMetrics)
	}
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w(ctx)
		}()
	}

	// A blocked stdin read cannot be interrupted, so the REPL is left behind on shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, a.reader)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		printlnFn("Shutting down...")
	}

	cancel()
	wg.Wait()
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "err", err)
		}
	}
	a.closers = nil
}

// StartOnlineStatusWatcher pings the remote store every OnlineCheckInterval
// and switches between online and offline mode. Coming back online queues a
// sync, so work recorded offline is uploaded without waiting for the timer.
func (a *App) StartOnlineStatusWatcher(ctx context.Context) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.auth.Ping(pctx)
		cancel()

		if err != nil {
			if a.setMode(ModeOffline) {
				a.logger.Warn(ctx, "remote store unreachable, working offline", "err", err)
			}
			return
		}
		if a.setMode(ModeOnline) {
			a.scheduler.Trigger()
		}
	}

	check()
	if a.config.OnlineCheckInterval <= 0 {
		return
	}

	ticker := time.NewTicker(a.config.OnlineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

// serveMetrics exposes the sync engine collectors for a local scraper.
func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "metrics server failed", "err", err)
	}
}
