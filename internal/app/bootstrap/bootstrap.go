package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tavern/app/internal/config"
	"tavern/app/internal/db"
	apphttp "tavern/app/internal/http"
	"tavern/app/internal/roster"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Storage is an opened roster database together with the service built on it.
type Storage struct {
	Roster   roster.Service
	Database *gorm.DB
	Cleanup  func() error
}

type Result struct {
	Storage
	HTTPServer *apphttp.Server
}

// OpenStorage opens the roster database and builds the service over it. The
// caller owns Cleanup.
func OpenStorage(deps Dependencies) (Storage, error) {
	database, err := db.Open(db.Options{
		Path:         deps.Config.DBPath,
		Logger:       deps.Logger,
		BusyTimeout:  deps.Config.DBBusyTimeout,
		MaxOpenConns: 1,
	})
	if err != nil {
		return Storage{}, eris.Wrap(err, "opening database")
	}

	cleanup := func() error {
		return db.Close(database)
	}

	store, err := roster.NewStore(database, deps.Logger)
	if err != nil {
		closeAfterFailure(cleanup, deps.Logger)
		return Storage{}, eris.Wrap(err, "creating roster store")
	}

	service, err := roster.NewService(store, deps.Logger, deps.SentryHub)
	if err != nil {
		closeAfterFailure(cleanup, deps.Logger)
		return Storage{}, eris.Wrap(err, "creating roster service")
	}

	return Storage{Roster: service, Database: database, Cleanup: cleanup}, nil
}

// Build composes the roster storage and HTTP layers for the server binary.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	storage, err := OpenStorage(deps)
	if err != nil {
		return Result{}, err
	}

	if err := storage.Roster.Bootstrap(ctx); err != nil {
		closeAfterFailure(storage.Cleanup, deps.Logger)
		return Result{}, eris.Wrap(err, "bootstrapping roster table")
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Roster:    storage.Roster,
		Database:  storage.Database,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		closeAfterFailure(storage.Cleanup, deps.Logger)
		return Result{}, eris.Wrap(err, "initialising http server")
	}

	closeStorage := storage.Cleanup
	storage.Cleanup = func() error {
		httpServer.Close()
		return closeStorage()
	}

	return Result{Storage: storage, HTTPServer: httpServer}, nil
}

func closeAfterFailure(cleanup func() error, logger *logrus.Logger) {
	if err := cleanup(); err != nil && logger != nil {
		logger.WithError(err).Error("closing database after bootstrap failure")
	}
}
