// Package server wires the LMS backend together: configuration, the
// PostgreSQL pool and migrations, the authentication core, media storage,
// business services and the HTTP and gRPC servers. Shutdown is graceful on
// SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/lms/internal/dbx"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"github.com/dmitrijs2005/lms/internal/server/config"
	"github.com/dmitrijs2005/lms/internal/server/httpapi"
	"github.com/dmitrijs2005/lms/internal/server/metrics"
	"github.com/dmitrijs2005/lms/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lms/internal/server/services"
	"github.com/dmitrijs2005/lms/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/lms/internal/server/grpc"
)

const dbPingTimeout = 5 * time.Second

// seams for tests
var (
	logOutput     io.Writer = os.Stdout
	openDB                  = dbx.Open
	newRepoManager          = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
	newMediaStore = func(ctx context.Context, st storage.Settings, l logging.Logger) (services.MediaStore, error) {
		return storage.NewS3Storage(ctx, st, l)
	}
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	grpc    *gs.GRPCServer
}

// NewApp validates c and builds every component. The database is opened
// and migrated here, so a returned App is ready to serve.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := c.SlogLevel()
	logger := logging.NewJSONLogger(logOutput, level)

	db, err := openDB(ctx, c.DatabaseDSN, dbPingTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	if err := m.RegisterDB(db, "lms"); err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	secret := []byte(c.SecretKey)
	authOpts := []auth.Option{
		auth.WithTTLs(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration),
		auth.WithLeeway(c.TokenLeeway),
		auth.WithObserver(m),
	}
	issuer, err := auth.NewIssuer(secret, logger, authOpts...)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(secret, logger, authOpts...)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewHasher(c.BcryptCost)

	store, err := newMediaStore(ctx, storage.Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Users:         services.NewUserService(db, rm, hasher, issuer, verifier, logger),
		Contents:      services.NewContentService(db, rm, store, logger),
		Analytics:     services.NewAnalyticsService(db, rm),
		Verifier:      verifier,
		Logger:        logger,
		MaxUploadSize: c.MaxUploadSize,
		AllowedOrigin: c.AllowedOrigin,
		Metrics:       m.Handler(),
		Instrument:    m.Middleware,
	})

	app := &App{config: c, logger: logger, db: db, handler: handler}
	if c.EndpointAddrGRPC != "" {
		app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, verifier, logger)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then closes the database pool.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.grpc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
