package loader_test

import (
	"testing"

	"filament-sync/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	loaded  bool
	loadErr error
}

func (f *stubFeature) Name() string    { return f.name }
func (f *stubFeature) IsEnabled() bool { return f.enabled }
func (f *stubFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.loadErr
}

func TestManagerLoadAll(t *testing.T) {
	t.Run("LoadsEnabledSkipsDisabled", func(t *testing.T) {
		enabled := &stubFeature{name: "api", enabled: true}
		disabled := &stubFeature{name: "extras", enabled: false}

		mgr := loader.NewManager()
		mgr.Register(enabled)
		mgr.Register(disabled)

		require.NoError(t, mgr.LoadAll(fiber.New()))
		assert.True(t, enabled.loaded)
		assert.False(t, disabled.loaded)
	})

	t.Run("LoadErrorNamesFeature", func(t *testing.T) {
		failing := &stubFeature{name: "api", enabled: true, loadErr: assert.AnError}

		mgr := loader.NewManager()
		mgr.Register(failing)

		err := mgr.LoadAll(fiber.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api")
	})
}
