package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// NewApp creates the Fiber app with the service's timeouts and JSON error
// handler.
func NewApp(readTimeout, writeTimeout time.Duration) *fiber.App {
	return fiber.New(fiber.Config{
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		ErrorHandler: ErrorHandler,
	})
}

func SetupRoutes(app *fiber.App, handler *Handler, log *zap.Logger) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	// API v1 routes
	api := app.Group("/api/v1")

	api.Get("/health", handler.GetHealth)
	api.Get("/metrics", handler.GetMetrics)
	api.Post("/refresh", handler.PostRefresh)

	// Weather routes
	weather := api.Group("/weather")
	weather.Get("/", handler.GetWeather)
	weather.Get("/current", handler.GetCurrent)
	weather.Get("/forecast", handler.GetForecast)
	weather.Get("/hourly", handler.GetHourly)

	preferences := api.Group("/preferences")
	preferences.Get("/units", handler.GetUnitPreference)
	preferences.Put("/units", handler.PutUnitPreference)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
			"path":  c.Path(),
		})
	})

	log.Debug("Routes registered", zap.Int("handlers", int(app.HandlersCount())))
}

// ErrorHandler renders handler errors as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	// Default to 500 status code
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}
