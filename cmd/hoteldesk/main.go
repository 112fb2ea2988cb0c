package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	roomsapp "hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/app/schedule"
	"hoteldesk/internal/infra/broker/kafka"
	"hoteldesk/internal/infra/config"
	"hoteldesk/internal/infra/fixtures"
	ginserver "hoteldesk/internal/infra/http/gin"
	"hoteldesk/internal/infra/obs"
	"hoteldesk/internal/infra/outbox"
	"hoteldesk/internal/infra/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("cannot read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, nil, logger)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err, "brokers", cfg.KafkaBrokers)
			os.Exit(1)
		}
		defer producer.Close()
	}

	st, err := openStores(ctx, cfg, producer, logger)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st.close(closeCtx)
	}()

	if err := loadFixtures(ctx, cfg, st, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	hub := websocket.NewHub(logger)
	app := buildApplication(cfg, st, hub, logger)

	var wg sync.WaitGroup
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "task", name, "error", err)
			}
		}()
	}
	goRun("websocket hub", func(ctx context.Context) error { hub.Run(ctx); return nil })

	if st.queue != nil && producer != nil {
		worker := &outbox.Worker{
			Queue:       st.queue,
			Producer:    producer,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		goRun("outbox worker", worker.Run)
	} else if st.queue != nil {
		logger.Warn("KAFKA_BROKERS not set, outbox records stay queued")
	}

	if len(cfg.KafkaBrokers) > 0 {
		handler := &kafka.BookingEventsHandler{Inbox: st.inbox, Reconciler: app.reconciler, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, handler, logger)
		if err != nil {
			logger.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		goRun("booking events consumer", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{cfg.BookingEventsTopic})
		})
	}

	scheduler := schedule.New(logger)
	if err := scheduleJobs(scheduler, cfg, st, app.bus); err != nil {
		logger.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}
	scheduler.Start(ctx)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: st.checks}, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop timed out", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "timezone", cfg.HotelTimezone.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

func scheduleJobs(s *schedule.Scheduler, cfg config.Config, st *stores, b bus.Bus) error {
	sweep := schedule.Job{
		Name:    "rooms.sweep",
		Spec:    cfg.ReconcileSchedule,
		Timeout: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := bus.Send[roomsapp.SweepRoomsCommand, *dto.SweepReport](ctx, b, roomsapp.SweepRoomsCommand{})
			return err
		},
	}
	if err := s.Add(sweep); err != nil {
		return err
	}
	if st.queue == nil {
		return nil
	}
	return s.Add(schedule.Job{
		Name:    "outbox.release_stale",
		Spec:    "@every 1m",
		Timeout: 30 * time.Second,
		Run: func(ctx context.Context) error {
			_, err := st.queue.ReleaseStale(ctx, 2*time.Minute)
			return err
		},
	})
}

func loadFixtures(ctx context.Context, cfg config.Config, st *stores, logger *slog.Logger) error {
	f, err := fixtures.Load(cfg.FixturesPath)
	if err != nil {
		return err
	}
	if len(f.Rooms) == 0 && len(f.Reservations) == 0 {
		return nil
	}
	_, err = fixtures.Seed(ctx, f, st.seed, time.Now(), logger)
	return err
}
