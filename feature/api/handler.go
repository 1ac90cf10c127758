package api

import (
	"filament-sync/core/logger"
	"filament-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reconciliation state.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the reconciliation routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/profiles")
	group.Get("/", h.HandleListProfiles)
	group.Get("/:name", h.HandleGetProfile)
	app.Post("/reconcile", h.HandleReconcile)
}

// HandleListProfiles lists the last outcome for every known profile.
func (h *Handler) HandleListProfiles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"profiles": h.service.Profiles(),
	})
}

// HandleGetProfile returns the last outcome for one profile.
func (h *Handler) HandleGetProfile(c *fiber.Ctx) error {
	name := c.Params("name")
	entry, ok := h.service.Profile(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown profile: " + name,
		})
	}
	return c.JSON(entry)
}

// HandleReconcile triggers a pass over the whole profile directory. The
// dry_run query flag forces a preview that persists nothing.
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	dryRun := utils.ToBool(c.Query("dry_run"))

	l.Info("reconciliation triggered via API", zap.Bool("dry_run", dryRun))

	entries, err := h.service.ReconcileAll(c.Context(), dryRun)
	if err != nil {
		l.Error("triggered reconciliation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"dry_run":  dryRun,
		"profiles": entries,
	})
}
