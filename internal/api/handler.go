package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/display"
	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/bobby-s-dev/calver-weather/internal/scheduler"
	"github.com/bobby-s-dev/calver-weather/internal/services"
	"github.com/bobby-s-dev/calver-weather/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const waitTimeout = 90 * time.Second

type Handler struct {
	pipeline    *services.Pipeline
	refresher   *scheduler.Refresher
	preferences storage.PreferenceStore
	clock       *display.Clock
	logger      *zap.Logger
	startTime   time.Time
}

func NewHandler(
	pipeline *services.Pipeline,
	refresher *scheduler.Refresher,
	preferences storage.PreferenceStore,
	clock *display.Clock,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		pipeline:    pipeline,
		refresher:   refresher,
		preferences: preferences,
		clock:       clock,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// GetWeather handles GET /api/v1/weather
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	metric, err := h.resolveMetric(c)
	if err != nil {
		return err
	}

	view := display.Render(h.pipeline.Store().Snapshot(), metric, h.clock)
	return c.JSON(view)
}

// GetCurrent handles GET /api/v1/weather/current
func (h *Handler) GetCurrent(c *fiber.Ctx) error {
	current, ok := h.pipeline.Store().Current()
	if !ok {
		return notLoaded(c, models.KindCurrent)
	}
	return c.JSON(current)
}

// GetForecast handles GET /api/v1/weather/forecast
func (h *Handler) GetForecast(c *fiber.Ctx) error {
	forecast, ok := h.pipeline.Store().Forecast()
	if !ok {
		return notLoaded(c, models.KindForecast)
	}
	return c.JSON(forecast)
}

// GetHourly handles GET /api/v1/weather/hourly
func (h *Handler) GetHourly(c *fiber.Ctx) error {
	hourly, ok := h.pipeline.Store().Hourly()
	if !ok {
		return notLoaded(c, models.KindHourly)
	}
	return c.JSON(fiber.Map{
		"entries": hourly,
	})
}

// PostRefresh handles POST /api/v1/refresh
func (h *Handler) PostRefresh(c *fiber.Ctx) error {
	kinds, err := parseKinds(c.Query("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	run := h.refresher.ForceRun(kinds...)

	if !c.QueryBool("wait") {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"run_id":    run.ID,
			"triggered": run.Triggered,
			"skipped":   run.Skipped,
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), waitTimeout)
	defer cancel()

	if err := run.Wait(ctx); err != nil {
		h.logger.Warn("Gave up waiting for refresh", zap.String("run_id", run.ID), zap.Error(err))
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error":  "Refresh still in progress",
			"run_id": run.ID,
		})
	}

	snap := h.pipeline.Store().Snapshot()
	return c.JSON(fiber.Map{
		"run_id":    run.ID,
		"triggered": run.Triggered,
		"skipped":   run.Skipped,
		"versions":  snap.Versions,
		"updated":   snap.Updated,
	})
}

// GetUnitPreference handles GET /api/v1/preferences/units
func (h *Handler) GetUnitPreference(c *fiber.Ctx) error {
	metric, err := h.preferences.IsMetric(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to read unit preference", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to read unit preference",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"metric": metric})
}

type unitPreferenceRequest struct {
	Metric *bool `json:"metric"`
}

// PutUnitPreference handles PUT /api/v1/preferences/units
func (h *Handler) PutUnitPreference(c *fiber.Ctx) error {
	var req unitPreferenceRequest
	if err := c.BodyParser(&req); err != nil || req.Metric == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body must be {\"metric\": true|false}",
		})
	}

	if err := h.preferences.SetMetric(c.UserContext(), *req.Metric); err != nil {
		h.logger.Error("Failed to store unit preference", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to store unit preference",
			"details": err.Error(),
		})
	}

	h.logger.Info("Unit preference changed", zap.Bool("metric", *req.Metric))
	return c.JSON(fiber.Map{"metric": *req.Metric})
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	snap := h.pipeline.Store().Snapshot()

	loaded := make(map[models.Kind]bool, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		loaded[kind] = snap.Loaded(kind)
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
		"loaded":    loaded,
		"updated":   snap.Updated,
	})
}

// GetMetrics handles GET /api/v1/metrics
func (h *Handler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"metrics": fiber.Map{
			"pipeline":  h.pipeline.GetStats(),
			"store":     h.pipeline.Store().GetStats(),
			"refresher": h.refresher.GetStatus(),
		},
		"timestamp": time.Now(),
	})
}

// resolveMetric honors ?units= and falls back to the stored preference.
func (h *Handler) resolveMetric(c *fiber.Ctx) (bool, error) {
	switch strings.ToLower(c.Query("units")) {
	case "metric", "c":
		return true, nil
	case "imperial", "f":
		return false, nil
	case "":
	default:
		return false, fiber.NewError(fiber.StatusBadRequest, "units must be metric or imperial")
	}

	metric, err := h.preferences.IsMetric(c.UserContext())
	if err != nil {
		h.logger.Warn("Falling back to metric units", zap.Error(err))
		return true, nil
	}
	return metric, nil
}

func parseKinds(raw string) ([]models.Kind, error) {
	if raw == "" {
		return nil, nil
	}

	var kinds []models.Kind
	for _, part := range strings.Split(raw, ",") {
		kind := models.Kind(strings.TrimSpace(part))
		switch kind {
		case models.KindCurrent, models.KindForecast, models.KindHourly:
			kinds = append(kinds, kind)
		default:
			return nil, fiber.NewError(fiber.StatusBadRequest, "unknown kind "+strconv.Quote(string(kind)))
		}
	}
	return kinds, nil
}

func notLoaded(c *fiber.Ctx, kind models.Kind) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "No " + string(kind) + " data loaded yet",
	})
}
