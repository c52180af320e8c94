package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wikihub/app/internal/data/database"
	"wikihub/app/internal/data/migrations"
	datawiki "wikihub/app/internal/data/wiki"
	domainwiki "wikihub/app/internal/domain/wiki"
	"wikihub/app/internal/infrastructure/markdown"
	"wikihub/app/internal/platform/config"
	presentationhttp "wikihub/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Storage is the migrated database and the per-container wiki stores on top of it.
type Storage struct {
	Database *gorm.DB
	Stores   *datawiki.Stores
	Applied  []string
}

// Close releases the database connection.
func (s Storage) Close() error {
	return database.Close(s.Database)
}

type Result struct {
	WikiService domainwiki.Service
	HTTPServer  *presentationhttp.Server
	Database    *gorm.DB
	Cleanup     func() error
}

// OpenStorage opens the database, applies pending migrations and builds the store factory.
func OpenStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (Storage, error) {
	db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: logger})
	if err != nil {
		return Storage{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Storage, error) {
		if closeErr := database.Close(db); closeErr != nil && logger != nil {
			logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Storage{}, wrapper
	}

	applied, err := migrations.Run(ctx, db, logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "running migrations"))
	}

	stores, err := datawiki.NewStores(db, logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki stores"))
	}

	return Storage{Database: db, Stores: stores, Applied: applied}, nil
}

// NewWikiService wires the wiki service over the given stores.
func NewWikiService(cfg config.Config, stores domainwiki.StoreFactory, logger *logrus.Logger, hub *sentry.Hub) (domainwiki.Service, error) {
	return domainwiki.NewService(domainwiki.ServiceOptions{
		Stores:       stores,
		Renderer:     markdown.NewRenderer(logger),
		Logger:       logger,
		SentryHub:    hub,
		SidebarLimit: cfg.SidebarLimit,
	})
}

// Build composes the wikihub application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	storage, err := OpenStorage(ctx, deps.Config, deps.Logger)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := storage.Close(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	wikiService, err := NewWikiService(deps.Config, storage.Stores, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		WikiService: wikiService,
		Authorizer:  domainwiki.ContainerPolicy{},
		Containers:  storage.Stores,
		Database:    storage.Database,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return storage.Close()
	}

	return Result{
		WikiService: wikiService,
		HTTPServer:  httpServer,
		Database:    storage.Database,
		Cleanup:     cleanup,
	}, nil
}
