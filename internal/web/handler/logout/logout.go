// Package logout provides the session termination endpoint.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

const (
	// Path is the path of the logout endpoint.
	Path = "/logout"
)

// Service is the logout handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	app.Post(Path, s.Post)

	return nil
}

// Post invalidates the current session and clears the cookie. Logging out
// without a session is not an error.
func (s *Service) Post(c *fiber.Ctx) error {
	sessionID := c.Cookies(handler.SessionCookie)

	if sessionID != "" {
		sessData := new(session.Data)
		if err := sessData.Delete(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     handler.SessionCookie,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
	})

	return c.SendStatus(fiber.StatusNoContent)
}
