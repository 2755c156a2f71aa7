// Package server wires the configuration, storage, authentication core and
// transports together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filmkeeper/internal/logging"
	"github.com/dmitrijs2005/filmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/filmkeeper/internal/server/config"
	"github.com/dmitrijs2005/filmkeeper/internal/server/guard"
	"github.com/dmitrijs2005/filmkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/filmkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filmkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/filmkeeper/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	httpServer  *httpapi.Server
	grpcServer  *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	hasher := auth.NewPasswordHasher(auth.HashParams{
		Memory:      c.HashMemoryKiB,
		Iterations:  c.HashIterations,
		Parallelism: c.HashParallelism,
	}, c.MaxConcurrentHashes)

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		SecretKey: []byte(c.SecretKey),
		TTL:       c.AccessTokenValidityDuration,
		Issuer:    c.TokenIssuer,
		ClockSkew: c.ClockSkew,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	us := services.NewUserService(db, rm, hasher, codec, logger)

	if c.SeedFile != "" {
		seed, err := services.LoadSeedFile(c.SeedFile)
		if err != nil {
			return nil, err
		}
		n, err := us.SeedUsers(ctx, seed.Users)
		if err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
		logger.Info(ctx, "Seed applied", "created", n)
	}

	policy := guard.NewPolicy().Default(guard.Authenticated())
	g := guard.New(codec, rm.Users(db), policy, logger)

	hs, err := httpapi.New(httpapi.Deps{
		Address: c.EndpointAddrHTTP,
		Users:   us,
		Guard:   g,
		Logger:  logger,
		Health:  db.PingContext,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		httpServer:  hs,
		grpcServer:  gs.NewGRPCServer(c.EndpointAddrGRPC, logger, g),
	}, nil
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

// watchDB mirrors database reachability into the gRPC health status.
func (app *App) watchDB(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := app.db.PingContext(pingCtx)
			cancel()
			if err != nil {
				app.logger.Warn(ctx, "database ping failed", "error", err)
			}
			app.grpcServer.SetServing(err == nil)
		}
	}
}

func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, name+" server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "gRPC", app.grpcServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "HTTP", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.watchDB(ctx, 15*time.Second)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
