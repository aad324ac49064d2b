package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/config"
	"github.com/iliyamo/canteen-meal-service/internal/database"
	"github.com/iliyamo/canteen-meal-service/internal/handler"
	"github.com/iliyamo/canteen-meal-service/internal/queue"
	"github.com/iliyamo/canteen-meal-service/internal/repository"
	"github.com/iliyamo/canteen-meal-service/internal/router"
	"github.com/iliyamo/canteen-meal-service/internal/service"
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

	rdb := config.NewRedisClient() // nil when redis is unreachable

	userRepo := repository.NewUserRepo(db)
	deptRepo := repository.NewDepartmentRepo(db)
	menuRepo := repository.NewMenuRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	confirmationRepo := repository.NewConfirmationRepo(db)

	schedule := cfg.Schedule()
	publisher := queue.NewPublisher()

	orderSvc := service.NewOrderService(userRepo, deptRepo, menuRepo, orderRepo)
	confirmationSvc := service.NewConfirmationService(userRepo, orderRepo, confirmationRepo, schedule, publisher)
	reportSvc := service.NewReportService(orderRepo, schedule)

	// The consumer appends one audit line per meal.confirmed event; it
	// reconnects on its own and must not block startup.
	go func() {
		if err := queue.StartConfirmationConsumer(); err != nil {
			log.Printf("confirmation consumer disabled: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Orders:        handler.NewOrderHandler(orderSvc, confirmationSvc),
		Confirmations: handler.NewConfirmationHandler(confirmationSvc, cfg.JWTSecret),
		Reports:       handler.NewReportHandler(reportSvc),
		JWTSecret:     cfg.JWTSecret,
		RateLimit:     config.LoadRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		RDB:           rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
