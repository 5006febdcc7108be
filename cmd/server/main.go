package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/config"
	"github.com/openshelf/library-api/internal/database"
	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/queue"
	"github.com/openshelf/library-api/internal/repository"
	"github.com/openshelf/library-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the catalog response cache and the rate limiter. A nil
	// client turns both middlewares into pass-throughs.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	borrows := repository.NewBorrowRepo(db)
	holds := repository.NewHoldRepo(db)
	requests := repository.NewRequestRepo(db)
	ratings := repository.NewRatingRepo(db)
	notifications := repository.NewNotificationRepo(db)
	reports := repository.NewReportRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	catalogH := handler.NewCatalogHandler(books, ratings)
	bookH := handler.NewBookHandler(books)
	borrowH := handler.NewBorrowHandler(cfg, borrows, books, holds, users)
	studentH := handler.NewStudentHandler(cfg, borrows, books, holds, requests, ratings, notifications)
	requestH := handler.NewRequestHandler(requests)
	adminH := handler.NewAdminHandler(users, tokens, reports)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, catalogH, rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterStudent(e, studentH, cfg.JWTSecret)
	router.RegisterLibrarian(e, bookH, borrowH, requestH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// The consumer turns broker events into user notifications. It runs a
	// reconnect loop of its own, so a dead broker never blocks startup.
	go func() {
		if err := queue.StartEventConsumer(notifications); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
