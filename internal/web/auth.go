package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

// publicPrefixes are reachable without a session: the login endpoints, the
// provider flows and the health endpoints.
var publicPrefixes = []string{
	"/login",
	"/logout",
	"/auth/",
	"/healthz",
	"/checkalive",
	"/metrics",
}

// AuthMiddleware is a Fiber middleware that rejects unauthenticated requests
// to protected paths.
func AuthMiddleware(c *fiber.Ctx) error {
	originalURL := strings.ToLower(c.OriginalURL())

	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(originalURL, prefix) {
			return c.Next()
		}
	}

	sessionID := c.Cookies(handler.SessionCookie)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	sessData := new(session.Data)
	if err := sessData.Read(sessionID); err != nil || sessData.User.ID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	return c.Next()
}
