// Package sso provides the browser redirect flow for OAuth2 and OIDC
// providers: login initiation with CSRF state and the authorization code
// callback.
package sso

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

const (
	// LoginPath initiates the redirect to the provider.
	LoginPath = "/auth/sso/:provider/login"

	// CallbackPath receives the authorization code.
	CallbackPath = "/auth/sso/:provider/callback"

	// stateCookie carries the CSRF state between the two requests.
	stateCookie = "oauth_state"

	// stateMaxAge bounds how long a pending login may take, in seconds.
	stateMaxAge = 600
)

// Service is the SSO handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the SSO handler.
var Handler = Service{}

// Init initializes the SSO handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Login generates the CSRF state, stores it in a short lived cookie and
// redirects to the provider's authorization endpoint.
func (s *Service) Login(c *fiber.Ctx) error {
	providerName := c.Params("provider")

	p, err := s.deps.Manager.Provider(providerName)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown or disabled provider"})
	}

	state := auth.GenerateStateToken()

	var authURL string

	switch provider := p.(type) {
	case *auth.OAuthProvider:
		authURL = provider.LoginURL(state)
	case *auth.OIDCProvider:
		authURL, err = provider.LoginURL(c.UserContext(), state)
		if err != nil {
			log.Error().Err(err).Str("provider", providerName).Msg("failed to build authorization URL")

			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "identity provider unavailable"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "provider does not support this flow"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   stateMaxAge,
		Secure:   !s.deps.Cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback verifies the CSRF state, exchanges the code through the provider
// and establishes the session.
func (s *Service) Callback(c *fiber.Ctx) error {
	providerName := c.Params("provider")

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "state mismatch"})
	}

	// The state is single-use.
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", MaxAge: -1, HTTPOnly: true})

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
	}

	ctx := c.UserContext()

	user, data, err := s.deps.Manager.Authenticate(ctx, providerName, auth.Credentials{
		Code:  code,
		State: state,
	})
	if err != nil {
		if errors.Is(err, auth.ErrProviderNotConfigured) || errors.Is(err, auth.ErrProviderDisabled) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown or disabled provider"})
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	}

	rawGroups, _ := data["groups"].([]string)

	groups, err := s.deps.Manager.SyncUserGroups(ctx, providerName, user, rawGroups)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("group sync failed during login")

		groups = []string{}
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	userSession := &session.Data{
		User:     *user,
		Provider: providerName,
		Groups:   groups,
	}

	if err = userSession.Write(sessionID, s.deps.Cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     handler.SessionCookie,
		Value:    sessionID,
		MaxAge:   int(s.deps.Cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.deps.Cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect("/", fiber.StatusFound)
}
