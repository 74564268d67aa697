package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/evencore/seat-reservation/internal/broadcast"
	"github.com/evencore/seat-reservation/internal/config"
	"github.com/evencore/seat-reservation/internal/database"
	"github.com/evencore/seat-reservation/internal/handler"
	"github.com/evencore/seat-reservation/internal/queue"
	"github.com/evencore/seat-reservation/internal/repository"
	"github.com/evencore/seat-reservation/internal/reservation"
	"github.com/evencore/seat-reservation/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and response cache
	// disable themselves.
	rdb := config.NewRedisClient()

	seatRepo := repository.NewSeatRepo(db)
	ledger := repository.NewReservationRepo(db)

	// The in-process hub feeds live seat-map streams; the queue bridge
	// mirrors the same events onto RabbitMQ for out-of-process listeners.
	hub := broadcast.NewHub()
	var publisher broadcast.Publisher = hub
	if cfg.BrokerEnabled {
		publisher = broadcast.Multi{hub, queue.Bridge{}}
		go func() {
			if err := queue.StartSeatStateConsumer(); err != nil {
				log.Printf("seat-state consumer exited: %v", err)
			}
		}()
	}

	manager := reservation.NewManager(ledger, seatRepo, publisher,
		reservation.WithHoldTTL(cfg.HoldTTL))

	if cfg.SweepEnabled {
		sweeper := reservation.NewSweeper(manager, ledger, cfg.SweepInterval)
		go sweeper.Start(context.Background())
	}

	seatHandler := handler.NewSeatHandler(manager, seatRepo, ledger)
	liveHandler := handler.NewLiveHandler(hub)
	adminHandler := handler.NewAdminSeatHandler(seatRepo)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSeats(e, seatHandler, liveHandler, cfg.JWTSecret, rdb)
	router.RegisterAdmin(e, adminHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, hold_ttl=%s)", addr, cfg.Env, cfg.HoldTTL)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
