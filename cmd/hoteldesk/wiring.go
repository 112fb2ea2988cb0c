package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"hoteldesk/internal/app/bus"
	availabilityapp "hoteldesk/internal/app/handlers/availability"
	bookingapp "hoteldesk/internal/app/handlers/booking"
	roomsapp "hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/app/middleware"
	appoutbox "hoteldesk/internal/app/outbox"
	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/infra/broker/kafka"
	"hoteldesk/internal/infra/config"
	mongodb "hoteldesk/internal/infra/db/mongo"
	"hoteldesk/internal/infra/db/postgres"
	"hoteldesk/internal/infra/fixtures"
	ginserver "hoteldesk/internal/infra/http/gin"
	mongoinbox "hoteldesk/internal/infra/inbox"
	"hoteldesk/internal/infra/obs"
	"hoteldesk/internal/infra/outbox"
	"hoteldesk/internal/infra/storage/memory"
	"hoteldesk/internal/infra/websocket"
)

const eventSource = "app://hoteldesk"

// stores is everything that depends on the selected STORE_DRIVER.
type stores struct {
	factory     uow.Factory
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	// queue is set when outbox records are persisted and relayed by a worker.
	queue  *outbox.Store
	seed   fixtures.Target
	checks []obs.Check
	close  func(ctx context.Context)
}

func openStores(ctx context.Context, cfg config.Config, producer *kafka.Producer, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, producer, logger)
	default:
		return openMemory(cfg, producer), nil
	}
}

// memoryOutbox relays straight to kafka on flush when a producer exists.
func memoryOutbox(cfg config.Config, producer *kafka.Producer) *memory.Outbox {
	var pub appoutbox.Publisher
	if producer != nil {
		pub = producer
	}
	return memory.NewOutbox(pub, cfg.KafkaTopicPrefix, eventSource)
}

func openMemory(cfg config.Config, producer *kafka.Producer) *stores {
	reservations := memory.NewReservationRepository()
	rooms := memory.NewRoomRepository()
	return &stores{
		factory:     memory.Factory{ReservationsRepo: reservations, RoomsRepo: rooms},
		outbox:      memoryOutbox(cfg, producer),
		idempotency: memory.NewIdempotencyStore(),
		inbox:       memory.NewInbox(),
		seed:        fixtures.Target{Rooms: rooms, Reservations: reservations},
		close:       func(context.Context) {},
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	reservations := mongodb.NewReservationRepository(client.DB)
	rooms := mongodb.NewRoomRepository(client.DB)
	if err := reservations.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("reservation indexes: %w", err)
	}
	if err := rooms.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("room indexes: %w", err)
	}
	queue, err := outbox.NewStore(ctx, client.DB)
	if err != nil {
		return nil, fmt.Errorf("outbox store: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB)
	if err != nil {
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	inbox, err := mongoinbox.NewStore(ctx, client.DB, cfg.KafkaConsumerGroup)
	if err != nil {
		return nil, fmt.Errorf("inbox store: %w", err)
	}
	logger.Info("mongo connected", "database", cfg.MongoDB)
	return &stores{
		factory:     mongodb.Factory{DB: client.DB, ReservationsRepo: reservations, RoomsRepo: rooms},
		outbox:      queue,
		idempotency: idem,
		inbox:       inbox,
		queue:       queue,
		seed:        fixtures.Target{Rooms: rooms, Reservations: reservations},
		checks:      []obs.Check{{Name: "mongo", Probe: client.Ping}},
		close: func(ctx context.Context) {
			if err := client.Close(ctx); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		},
	}, nil
}

// openPostgres keeps the outbox, idempotency keys and the inbox in memory; the
// relational store only holds rooms and reservations.
func openPostgres(ctx context.Context, cfg config.Config, producer *kafka.Producer, logger *slog.Logger) (*stores, error) {
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	reservations := postgres.NewReservationRepository(db)
	rooms := postgres.NewRoomRepository(db)
	logger.Info("postgres connected")
	return &stores{
		factory:     postgres.Factory{DB: db, ReservationsRepo: reservations, RoomsRepo: rooms},
		outbox:      memoryOutbox(cfg, producer),
		idempotency: memory.NewIdempotencyStore(),
		inbox:       memory.NewInbox(),
		seed:        fixtures.Target{Rooms: rooms, Reservations: reservations},
		checks:      []obs.Check{{Name: "postgres", Probe: pinger(db)}},
		close: func(context.Context) {
			if err := db.Close(); err != nil {
				logger.Warn("postgres close failed", "error", err)
			}
		},
	}, nil
}

func pinger(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

type application struct {
	bus        bus.Bus
	reconciler *roomsapp.Reconciler
	handlers   ginserver.Handlers
}

func buildApplication(cfg config.Config, st *stores, hub *websocket.Hub, logger *slog.Logger) application {
	reconciler := &roomsapp.Reconciler{
		UoWFactory: st.factory,
		Logger:     logger,
		Outbox:     st.outbox,
		Notifier:   hub,
		Location:   cfg.HotelTimezone,
	}
	today := func() time.Time { return time.Now().In(cfg.HotelTimezone) }

	registry := bus.NewRegistry()
	availabilityapp.Register(registry, &availabilityapp.Handler{UoWFactory: st.factory, Logger: logger, Today: today})
	roomsapp.Register(registry, reconciler)
	bookingapp.Register(registry, &bookingapp.Service{
		UoWFactory: st.factory,
		Outbox:     st.outbox,
		Reconciler: reconciler,
		Notifier:   hub,
		Logger:     logger,
	})

	b := bus.Chain(registry,
		middleware.Logging(logger),
		middleware.Idempotency(st.idempotency),
		middleware.Transaction(st.factory),
		middleware.OutboxFlush(st.outbox),
	)
	logger.Info("bus ready", "handlers", registry.Keys())

	return application{
		bus:        b,
		reconciler: reconciler,
		handlers: ginserver.Handlers{
			Availability: ginserver.AvailabilityHandler{Bus: b, Logger: logger, DisablePast: cfg.DisablePastDays},
			Rooms:        ginserver.RoomHandler{Bus: b, Logger: logger},
			Reservations: ginserver.ReservationHandler{Bus: b, Logger: logger},
			Live:         websocket.Serve(hub, websocket.Upgrader(cfg.CORSOrigins)),
		},
	}
}
