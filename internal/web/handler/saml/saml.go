// Package saml provides the SAML 2.0 browser flow: login initiation, the
// assertion consumer service endpoint and the service provider metadata
// document.
package saml

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

const (
	// LoginPath initiates the redirect to the identity provider.
	LoginPath = "/auth/saml/:provider/login"

	// ACSPath receives the POSTed SAMLResponse.
	ACSPath = "/auth/saml/:provider/acs"

	// MetadataPath serves the service provider metadata.
	MetadataPath = "/auth/saml/:provider/metadata"
)

// Service is the SAML handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the SAML handler.
var Handler = Service{}

// Init initializes the SAML handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	app.Get(LoginPath, s.Login)
	app.Post(ACSPath, s.ACS)
	app.Get(MetadataPath, s.Metadata)

	return nil
}

// samlProvider resolves the route parameter to a SAML backend.
func (s *Service) samlProvider(c *fiber.Ctx) (*auth.SAMLProvider, error) {
	p, err := s.deps.Manager.Provider(c.Params("provider"))
	if err != nil {
		return nil, err
	}

	sp, ok := p.(*auth.SAMLProvider)
	if !ok {
		return nil, auth.ErrProviderNotConfigured
	}

	return sp, nil
}

// Login redirects to the identity provider with a fresh AuthnRequest.
func (s *Service) Login(c *fiber.Ctx) error {
	sp, err := s.samlProvider(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown or disabled provider"})
	}

	loginURL, err := sp.LoginURL(auth.GenerateStateToken())
	if err != nil {
		log.Error().Err(err).Str("provider", c.Params("provider")).Msg("failed to build SAML login URL")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Redirect(loginURL, fiber.StatusFound)
}

// ACS validates the POSTed assertion and establishes the session.
func (s *Service) ACS(c *fiber.Ctx) error {
	providerName := c.Params("provider")

	samlResponse := c.FormValue("SAMLResponse")
	if samlResponse == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing SAMLResponse"})
	}

	ctx := c.UserContext()

	user, data, err := s.deps.Manager.Authenticate(ctx, providerName, auth.Credentials{
		SAMLResponse: samlResponse,
		RelayState:   c.FormValue("RelayState"),
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

// Metadata serves the service provider metadata XML for IdP registration.
func (s *Service) Metadata(c *fiber.Ctx) error {
	sp, err := s.samlProvider(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown or disabled provider"})
	}

	meta, err := sp.Metadata()
	if err != nil {
		log.Error().Err(err).Str("provider", c.Params("provider")).Msg("failed to build SP metadata")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Set(fiber.HeaderContentType, "application/samlmetadata+xml")

	return c.Send(meta)
}
