// Package login provides the credential login endpoint for password based
// providers (local database and LDAP).
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

const (
	// Path is the path of the login endpoint.
	Path = "/login"
)

// request is the login request body.
type request struct {
	Provider string `json:"provider"`
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

// response is the successful login response body.
type response struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Provider string   `json:"provider"`
	Groups   []string `json:"groups"`
}

// Service is the login handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	app.Post(Path, s.Post)

	return nil
}

// Post handles a credential login. The provider field selects the backend;
// all failures surface the same generic message.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(request)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidRequestBody.Error()})
	}

	if req.Provider == "" || req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrMissingFields.Error()})
	}

	ctx := c.UserContext()

	user, data, err := s.deps.Manager.Authenticate(ctx, req.Provider, auth.Credentials{
		Username: req.Username,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrProviderNotConfigured), errors.Is(err, auth.ErrProviderDisabled):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrUnknownProvider.Error()})
		case errors.Is(err, auth.ErrMalformedCredentials):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrMissingFields.Error()})
		default:
			// Detail stays in the log; the client gets one generic message.
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrInvalidCredentials.Error()})
		}
	}

	rawGroups, _ := data["groups"].([]string)

	groups, err := s.deps.Manager.SyncUserGroups(ctx, req.Provider, user, rawGroups)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("group sync failed during login")

		groups = []string{}
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternalServerError.Error()})
	}

	userSession := &session.Data{
		User:     *user,
		Provider: req.Provider,
		Groups:   groups,
	}

	if err = userSession.Write(sessionID, s.deps.Cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternalServerError.Error()})
	}

	c.Cookie(sessionCookie(sessionID, s.deps))

	return c.JSON(response{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName(),
		Provider: req.Provider,
		Groups:   groups,
	})
}

// sessionCookie builds the session cookie for a fresh login.
func sessionCookie(sessionID string, deps *handler.Deps) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     handler.SessionCookie,
		Value:    sessionID,
		MaxAge:   int(deps.Cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if deps.Cfg.DevMode {
		cookie.Secure = false
	}

	return cookie
}
