// Package providers exposes authentication provider discovery and
// configuration inspection endpoints.
package providers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
)

const (
	// Path is the public provider discovery path.
	Path = "/auth/providers"

	// ConfigPath is the admin provider configuration path.
	ConfigPath = "/admin/providers/:name"
)

// Service is the providers handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the providers handler.
var Handler = Service{}

// Init initializes the providers handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	// Discovery is public: the login page needs it before authentication.
	app.Get(Path, s.List)

	app.Get(ConfigPath,
		auth.RequirePermission(deps.Auth, auth.PermAdminProviders),
		s.GetConfig)

	return nil
}

// List returns the enabled providers sorted by priority, highest first.
func (s *Service) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"providers": s.deps.Manager.ListProviders(),
	})
}

// GetConfig returns the named provider's configuration with secrets
// redacted.
func (s *Service) GetConfig(c *fiber.Ctx) error {
	cfg, err := s.deps.Manager.GetProviderConfig(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "provider not found"})
	}

	return c.JSON(cfg)
}
