package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relux-laundry/api/internal/config"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/handler"
	"github.com/relux-laundry/api/internal/relay"
	"github.com/relux-laundry/api/internal/router"
	"github.com/relux-laundry/api/internal/service"
	"github.com/relux-laundry/api/internal/settings"
	"github.com/relux-laundry/api/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)
	handler.ExposeErrors(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	queries := database.New(pool)

	store := settings.NewStore(queries, logger)
	if err := store.Load(ctx); err != nil {
		return err
	}

	hub := ws.NewHub(logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })

	var publisher service.Publisher = relay.NewLocal(hub)
	if cfg.RedisURL != "" {
		rdb, err := relay.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		rr := relay.NewRedisRelay(rdb, hub, logger, store.Load)
		store.OnChange(rr.AnnounceSettings)
		publisher = rr
		g.Go(func() error { return rr.Run(gctx) })
		logger.Info("redis relay enabled")
	}

	srv := &http.Server{
		Addr: cfg.RunAddress,
		Handler: router.New(router.Deps{
			Config:    cfg,
			Queries:   queries,
			Pool:      pool,
			Hub:       hub,
			Publisher: publisher,
			Settings:  store,
			Logger:    logger,
		}),
	}

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", cfg.RunAddress), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
