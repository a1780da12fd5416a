// Package handler holds the shared pieces of the web handlers: the
// dependency bundle passed to every handler and the route registration
// interface.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
)

const (
	// RouterRootPath is the root path inside a route group.
	RouterRootPath = "/"

	// SessionCookie is the name of the session cookie.
	SessionCookie = "session"

	// ErrNilDepsFatalLogMsg is used if the app or a dependency pointer is nil.
	ErrNilDepsFatalLogMsg = "app, cfg, db or manager is nil"
)

// Deps bundles the dependencies shared by the web handlers.
type Deps struct {
	Cfg     *config.Config
	DB      *gorm.DB
	Manager *auth.Manager
	Auth    *auth.Service
}

// Valid reports whether the required dependencies are set.
func (d *Deps) Valid() bool {
	return d != nil && d.Cfg != nil && d.DB != nil && d.Manager != nil && d.Auth != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
