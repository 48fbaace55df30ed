// Package main initializes and starts the business card directory server,
// setting up configuration, logging, storage, services, handlers and
// optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/bcards/internal/auth"
	"github.com/atinyakov/bcards/internal/cache"
	"github.com/atinyakov/bcards/internal/config"
	"github.com/atinyakov/bcards/internal/db"
	"github.com/atinyakov/bcards/internal/logger"
	"github.com/atinyakov/bcards/internal/metrics"
	"github.com/atinyakov/bcards/internal/repository"
	"github.com/atinyakov/bcards/internal/repository/memory"
	"github.com/atinyakov/bcards/internal/server/handler/http"
	"github.com/atinyakov/bcards/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// stores groups the repositories the services depend on.
type stores struct {
	cards  service.CardRepository
	users  service.UserRepository
	pruner db.LikePruner
	close  func() error
}

func openStores(dsn string, log *zap.Logger) (*stores, error) {
	if dsn == "" {
		log.Warn("DATABASE_DSN is empty, using the in-memory store")
		m := memory.New()
		return &stores{cards: m, users: m, pruner: m, close: func() error { return nil }}, nil
	}
	conn, err := db.InitPostgres(dsn)
	if err != nil {
		return nil, err
	}
	cards := repository.NewPostgresCardRepository(conn)
	return &stores{
		cards:  cards,
		users:  repository.NewPostgresUserRepository(conn),
		pruner: cards,
		close:  conn.Close,
	}, nil
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	err := run(options, log.Log)
	_ = log.Log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// run serves until the process is interrupted. Every deferred cleanup runs
// before it returns.
func run(options *config.Options, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(options.DatabaseDSN, zapLogger)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer func() { _ = st.close() }()

	// Drop likes of deleted users in the background.
	db.StartOrphanLikeCleaner(ctx, st.pruner, time.Duration(options.CleanupInterval), zapLogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsHandler, err := metrics.Register(reg)
	if err != nil {
		return fmt.Errorf("cannot register metrics: %w", err)
	}

	// Initialize business-logic services.
	summaries := cache.New(time.Duration(options.OwnerCacheTTL))
	tokens := auth.NewTokenAuth(options.JWTSecret, time.Duration(options.TokenTTL))
	cardService := service.NewCardService(st.cards, st.users,
		service.WithCardLogger(zapLogger),
		service.WithOwnerCache(summaries),
		service.WithCreateAttempts(options.CreateAttempts),
	)
	userService := service.NewUserService(st.users,
		service.WithUserLogger(zapLogger),
		service.WithSummaryCache(summaries),
	)
	authService := service.NewAuthService(st.users, tokens)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.CardHandler{Cards: cardService, Log: zapLogger},
		&http.UserHandler{Users: userService, Auth: authService, Log: zapLogger},
		tokens,
		zapLogger,
		http.RouterOptions{
			CORSOrigins: options.CORSOrigins,
			RateLimit:   options.RateLimit,
			Metrics:     metricsHandler,
		},
	)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	zapLogger.Info("server stopped")
	return nil
}
