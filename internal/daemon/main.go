// Package daemon assembles the application: database, identity store,
// authentication manager and the web service.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmemory "github.com/gofiber/storage/memory/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/dsn"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
	"github.com/GoAuthBridge/GoAuthBridge/internal/logger"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web"
	"github.com/GoAuthBridge/GoAuthBridge/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.Group{},
		&models.GroupMapping{},
		&models.UserGroup{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}

	if err = seed(cfg, db); err != nil {
		return nil, errors.Wrap(err, "seed database")
	}

	session.Init(sessionStorage(cfg))

	identityStore := store.NewGorm(db)

	manager, err := auth.NewManager(cfg.Providers, identityStore, cfg.Webserver.URL)
	if err != nil {
		return nil, errors.Wrap(err, "build auth manager")
	}

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, manager),
	}, nil
}

// openDatabase opens the gorm connection for the configured driver.
// TranslateError is enabled so duplicate key errors surface as
// gorm.ErrDuplicatedKey on every driver.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(dsn.Create(cfg))
	case "postgres":
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default: // mysql
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

// sessionStorage selects the fiber session backend for the configured
// driver. The sqlite driver keeps sessions in memory so login state does
// not outlive the process in single-node deployments.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.Driver {
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case "sqlite":
		return sessionmemory.New()
	default: // mysql
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}
