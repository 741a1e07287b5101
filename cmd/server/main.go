package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/IGDevX/marche-conclu-payment-service/internal/config"
	"github.com/IGDevX/marche-conclu-payment-service/internal/database"
	"github.com/IGDevX/marche-conclu-payment-service/internal/metrics"
	"github.com/IGDevX/marche-conclu-payment-service/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	metrics.Register()
	metrics.Serve(cfg.MetricsPort)

	app := fiber.New(fiber.Config{
		AppName: "Payment Service",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
