package main // HTTP API entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/config"
	"github.com/iliyamo/movie-store/internal/database"
	"github.com/iliyamo/movie-store/internal/handler"
	"github.com/iliyamo/movie-store/internal/middleware"
	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/router"
	"github.com/iliyamo/movie-store/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db, cfg.DBName, "migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	genres := repository.NewGenreRepo(db)
	stars := repository.NewStarRepo(db)
	directors := repository.NewDirectorRepo(db)
	certs := repository.NewCertificationRepo(db)
	engagement := repository.NewEngagementRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db, carts)

	emails := queue.NewPublisher()
	payments := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey)
	checkout := &service.Checkout{
		Orders:     orders,
		Users:      users,
		Payments:   payments,
		Emails:     emails,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, tokens, emails)
	movieH := handler.NewMovieHandler(movies, engagement)
	adminMovieH := handler.NewAdminMovieHandler(movies, genres, stars, directors, certs)
	engH := handler.NewEngagementHandler(engagement, movies)
	cartH := handler.NewCartHandler(carts, movies)
	orderH := handler.NewOrderHandler(checkout, orders)
	webhookH := handler.NewWebhookHandler(checkout, cfg.PaymentWebhookSecret)

	e := echo.New()

	cat := router.CatalogRepos{Genres: genres, Stars: stars, Directors: directors, Certifications: certs}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, movieH, cat,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterCustomer(e, cartH, orderH, engH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminMovieH, cat, cartH, orderH, cfg.JWTSecret)
	router.RegisterWebhook(e, webhookH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
