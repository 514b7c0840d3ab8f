package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/api"
	"github.com/Checker-Finance/adviser-fees/internal/jobs"
	"github.com/Checker-Finance/adviser-fees/internal/pool"
	"github.com/Checker-Finance/adviser-fees/internal/rabbitmq"
	"github.com/Checker-Finance/adviser-fees/internal/rate"
	"github.com/Checker-Finance/adviser-fees/pkg/logger"
	"github.com/Checker-Finance/adviser-fees/pkg/utils"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the records queue consumer and the input directory watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *options) error {
	cfg := opts.cfg
	log := logger.L()
	log.Info("starting", zap.String("service", cfg.ServiceName), zap.String("version", Version))

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("store.close_failed", zap.Error(err))
		}
	}()

	nc, pub, err := connectNATS(cfg, log)
	if err != nil {
		return err
	}
	var recordPub jobs.RecordPublisher
	if pub != nil {
		recordPub = pub
	}

	proc := newProcessor(cfg, log)
	batch := pool.New(proc, cfg.Workers, log.Named("pool"))

	var consumer *rabbitmq.Consumer
	if cfg.RabbitMQURL != "" {
		job := jobs.NewRecordJob(proc, st, recordPub, log.Named("jobs"))
		consumer, err = rabbitmq.NewConsumer(cfg.RabbitMQURL, cfg.RecordsQueue, cfg.QueuePrefetch, job, log.Named("rabbitmq"))
		if err != nil {
			return fmt.Errorf("%w (%s)", err, utils.MaskURL(cfg.RabbitMQURL))
		}
		if err := consumer.Start(ctx); err != nil {
			consumer.Close()
			return err
		}
	}

	var watcher *jobs.Watcher
	if cfg.WatchEnabled {
		watcher = jobs.NewWatcher(log.Named("watcher"), newDirProcessor(cfg, proc, st, pub, log), cfg.ScanInterval)
		go watcher.Start(ctx)
	}

	limiter := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
	go pruneLimiters(ctx, limiter)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	handler := api.NewHandler(log.Named("api"), proc, batch, st, st).
		WithMaxBatch(cfg.MaxBatch).
		WithSeparator(cfg.Separator)
	api.RegisterRoutes(app, nc, st, handler, limiter)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("http.listening", zap.Int("port", cfg.Port))
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	log.Info("running",
		zap.String("env", cfg.Env),
		zap.String("input_dir", cfg.InputDir),
		zap.Bool("watch", cfg.WatchEnabled),
		zap.Bool("queue", consumer != nil),
		zap.Bool("nats", nc != nil))

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			log.Error("fiber.listen_failed", zap.Error(err))
		}
	}
	log.Info("shutting down")

	if watcher != nil {
		watcher.Stop()
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Warn("rabbitmq.close_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("fiber.shutdown_failed", zap.Error(err))
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Warn("nats.drain_failed", zap.Error(err))
		}
	}
	return nil
}

// pruneLimiters drops idle per-IP limiters so the map does not grow without bound.
func pruneLimiters(ctx context.Context, m *rate.Manager) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Prune(10 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}
