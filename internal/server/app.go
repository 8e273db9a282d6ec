// Package server wires and runs the catalog server: the selected remote
// catalog backend with its cache and event decorators, the device-facing
// gRPC endpoint and the admin HTTP endpoint.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/dmitrijs2005/possync/internal/remote/dynamo"
	"github.com/dmitrijs2005/possync/internal/remote/memory"
	"github.com/dmitrijs2005/possync/internal/server/cache"
	"github.com/dmitrijs2005/possync/internal/server/config"
	"github.com/dmitrijs2005/possync/internal/server/events"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/possync/internal/server/services"
	"github.com/dmitrijs2005/possync/internal/tracing"

	gs "github.com/dmitrijs2005/possync/internal/server/grpc"
	hs "github.com/dmitrijs2005/possync/internal/server/http"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   remote.Admin
	closers []func() error
	tracing func(context.Context) error
}

// NewLogger returns the logger selected by config: slog JSON lines by
// default, zap with LogFormat "zap".
func NewLogger(c *config.Config, w io.Writer) (logging.Logger, func() error, error) {
	if c.LogFormat == "zap" {
		z, err := logging.NewZap(c.Environment)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Sync, nil
	}
	return logging.NewJSON(w), func() error { return nil }, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, syncLog, err := NewLogger(c, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	app := &App{config: c, logger: logger}
	app.closers = append(app.closers, syncLog)

	shutdown, err := tracing.Init("possync-server", c.JaegerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}
	app.tracing = shutdown

	store, err := app.openBackend(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	if c.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, 0)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("cache init error: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
		store = cache.NewBarcodeCache(store, rdb, c.BarcodeCacheTTL, logger)
	}

	if len(c.KafkaBrokers) > 0 {
		pub := events.NewSalePublisher(store, events.NewKafkaWriter(c.KafkaBrokers, c.KafkaTopic), logger)
		app.closers = append(app.closers, pub.Close)
		store = pub
	}

	app.store = store
	return app, nil
}

// openBackend connects the configured catalog backend.
func (app *App) openBackend(ctx context.Context) (remote.Admin, error) {
	c := app.config
	switch c.Backend {
	case config.BackendPostgres:
		db, err := repomanager.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db.Close)

		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		return services.NewBackend(db, m, app.logger), nil

	case config.BackendDynamoDB:
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
		}, app.logger)
		if err != nil {
			return nil, fmt.Errorf("dynamodb init error: %w", err)
		}
		if c.Dynamo.CreateTables {
			if err := s.EnsureTables(ctx); err != nil {
				return nil, fmt.Errorf("dynamodb tables error: %w", err)
			}
		}
		return s, nil

	case config.BackendMemory:
		app.logger.Warn(ctx, "using in-memory backend, data is lost on exit")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "err", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store, app.config.SecretKey, app.config.AccessTokenValidityDuration)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "err", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewServer(app.config.EndpointAddrHTTP, app.store, app.config.AdminToken, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "err", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.Backend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.tracing(context.Background()); err != nil {
		app.logger.Warn(ctx, "tracing shutdown failed", "err", err)
	}
	app.close()
	app.logger.Info(ctx, "App stopped")
}
