// Package server wires the account subsystem together: database and
// migrations, user service, mail queue, dashboard assets, metrics, and the
// HTTP and gRPC transports. It also owns graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/assets"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
	"github.com/dmitrijs2005/skeleton/internal/server/httpapi"
	"github.com/dmitrijs2005/skeleton/internal/server/mail"
	"github.com/dmitrijs2005/skeleton/internal/server/metrics"
	"github.com/dmitrijs2005/skeleton/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/skeleton/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	postman     *mail.Postman
	assets      assets.Store
	public      assets.Store
	registry    *prometheus.Registry
}

// NewApp opens the database, applies migrations and builds every component.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	sender, err := mail.NewSender(c.SMTPURL, c.SMTPCredential, c.SMTPPassword, logger.With("module", "mail"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	store, err := assets.New(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("assets init error: %w", err)
	}

	public, err := assets.NewPublic(c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("public files init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterMetrics(registry)

	us := services.NewUserService(db, rm, c, services.WithLogger(logger.With("module", "users")))

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		postman:     mail.NewPostman(sender, c.MailQueueSize, logger.With("module", "postman")),
		assets:      store,
		public:      public,
		registry:    registry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.userService, app.postman, app.assets, app.public, app.registry, app.config.PlatformName, app.logger.With("module", "http_server"))
	if err := s.Run(ctx, app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// waits for every component to stop and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.postman.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
