package main // background task runner: queue consumers + periodic scheduler

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/movie-store/internal/config"
	"github.com/iliyamo/movie-store/internal/database"
	"github.com/iliyamo/movie-store/internal/mailer"
	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
	"github.com/iliyamo/movie-store/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := mailer.New(ctx, cfg)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	orders := repository.NewOrderRepo(db, repository.NewCartRepo(db))
	tokens := repository.NewTokenRepo(db)
	users := repository.NewUserRepo(db)
	checkout := &service.Checkout{Orders: orders, Users: users}

	go queue.Consume(queue.EmailQueueName, worker.EmailHandler(m))
	go queue.Consume(queue.MaintenanceQueueName, worker.MaintenanceHandler(checkout, tokens, cfg.OrderExpireAfter))

	sched := &worker.Scheduler{
		Pub:          queue.NewPublisher(),
		SweepEvery:   cfg.OrderSweepInterval,
		CleanupEvery: cfg.TokenCleanupEvery,
	}
	log.Printf("worker running (sweep=%s, cleanup=%s)", cfg.OrderSweepInterval, cfg.TokenCleanupEvery)
	sched.Run(ctx)

	log.Println("worker shutting down")
}
