// Package web wires the HTTP surface: the Fiber application, the access
// logging middleware, the session guard and the handler routes.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	fiberlogger "github.com/GoAuthBridge/GoAuthBridge/internal/logger/adapter/fiber"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/login"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/logout"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/profile"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/providers"
	samlhandler "github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/saml"
	ssohandler "github.com/GoAuthBridge/GoAuthBridge/internal/web/handler/sso"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
	manager      *auth.Manager
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, manager *auth.Manager) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	if manager == nil {
		panic("manager cannot be nil")
	}

	title := cfg.Title
	if title == "" {
		title = "GoAuthBridge"
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: "/checkalive",
	}))

	// session guard for everything outside the public prefixes
	app.Use(AuthMiddleware)

	authService := auth.NewService(db)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
		manager:     manager,
	}

	service.alive.Store(true)

	// operational endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/checkalive", func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("alive")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	deps := &handler.Deps{
		Cfg:     cfg,
		DB:      db,
		Manager: manager,
		Auth:    authService,
	}

	// init handlers (they register their own routes with permission checks)
	for name, h := range map[string]handler.Service{
		"login":     &login.Handler,
		"logout":    &logout.Handler,
		"providers": &providers.Handler,
		"sso":       &ssohandler.Handler,
		"saml":      &samlhandler.Handler,
		"profile":   &profile.Handler,
	} {
		if err := h.Init(app, deps); err != nil {
			log.Fatal().Err(err).Str("handler", name).Msg("failed to initialize handler")
		}
	}

	return service
}
