// Package profile exposes the authenticated user's own profile and effective
// permissions.
package profile

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

const (
	// Path is the path of the profile endpoint.
	Path = "/api/me"
)

// Service is the profile handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the profile handler.
var Handler = Service{}

// Init initializes the profile handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	app.Get(Path, s.Get)

	return nil
}

// Get returns the profile of the session user as seen through the provider
// that authenticated them, plus their effective permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	sessionID := c.Cookies(handler.SessionCookie)
	if sessionID == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	sessData := new(session.Data)
	if err := sessData.Read(sessionID); err != nil || sessData.User.ID == 0 {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	profile, err := s.deps.Manager.GetUserInfo(c.UserContext(), sessData.Provider, sessData.User.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", sessData.User.ID).Msg("failed to load profile")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	permissions, err := s.deps.Auth.GetUserPermissions(sessData.User.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", sessData.User.ID).Msg("failed to load permissions")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	profile["groups"] = sessData.Groups
	profile["permissions"] = permissions

	return c.JSON(profile)
}
