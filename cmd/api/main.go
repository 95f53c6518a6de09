package main

import (
	"log"
	"time"

	config "ec-payment/configs"
	"ec-payment/database"
	"ec-payment/handlers"
	"ec-payment/jobs"
	"ec-payment/notifications"
	"ec-payment/payments"
	"ec-payment/routes"
	"ec-payment/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedOrders()

	serverKey := config.Config("MIDTRANS_SERVER_KEY")
	if serverKey == "" {
		log.Fatal("🔥 MIDTRANS_SERVER_KEY is not set")
	}

	repo := database.NewPaymentRepository(database.DB)
	provider := payments.NewMidtransService(serverKey)
	emailService := notifications.NewEmailService()

	paymentService := services.NewPaymentService(repo, repo, provider, emailService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	c := cron.New()
	c.AddJob("*/5 * * * *", jobs.NewReconcileJob(paymentService))
	go c.Start()
	log.Println("✅ Cron job for payment reconciliation scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "EC Payment",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Length",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to EC Payment API",
		})
	})

	routes.PaymentRoutes(app, paymentHandler, serverKey)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.ConfigOr("PORT", "8080")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
