package rayid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"filament-sync/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayIDMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(rayid.New())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("ray_id").(string))
	})

	t.Run("GeneratesID", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get(rayid.Header))
	})

	t.Run("ReusesIncomingID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(rayid.Header, "trace-123")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "trace-123", resp.Header.Get(rayid.Header))
	})
}
