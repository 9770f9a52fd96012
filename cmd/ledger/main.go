package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/report"
	"ledger/internal/storage"
	"ledger/internal/view"

	"golang.org/x/sync/errgroup"
)

const cacheSweepInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	opts := []ledger.Option{ledger.WithLogger(logger.WithComponent(log.ComponentLedger))}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Change events are optional; the ledger works without them.
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, ledger.WithObserver(amqp.NewNotifier(client)))
			logger.Info("Publishing change events", "exchange", cfg.AMQPExchange)
		}
	}

	snapshots := storage.NewSnapshots(res.Backend, logger)
	svc, err := ledger.Open(ctx, snapshots, opts...)
	if err != nil {
		return err
	}

	format := view.NewFormatter(cfg.CurrencySymbol, cfg.AmountFormat)
	reportCache := cache.BytesCache(cfg.ReportCacheSize, cfg.ReportCacheBytes, cfg.ReportCacheTTL)
	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())

	manager := cache.NewManager(logger)
	manager.Register(reportCache)
	manager.Register(limiter)
	manager.StartCleanup(cacheSweepInterval)
	defer manager.Stop()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:     cfg.Addr(),
		Ledger:   svc,
		Renderer: view.NewRenderer(format, view.ChartJS{}),
		Reports:  report.NewCached(report.NewGenerator(format), reportCache),
		Ping:     res.Ping,
		Limiter:  limiter,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"addr", cfg.Addr(),
			"backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer shutdownCancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := svc.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
