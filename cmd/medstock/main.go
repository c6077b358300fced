package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	authhandler "github.com/medflow/medstock/internal/auth/handler"
	"github.com/medflow/medstock/internal/auth/jwt"
	authmw "github.com/medflow/medstock/internal/auth/middleware"
	authrepo "github.com/medflow/medstock/internal/auth/repository"
	authservice "github.com/medflow/medstock/internal/auth/service"
	"github.com/medflow/medstock/internal/inventory/events"
	"github.com/medflow/medstock/internal/inventory/handler"
	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/internal/inventory/service"
	"github.com/medflow/medstock/internal/web"
	"github.com/medflow/medstock/pkg/config"
	"github.com/medflow/medstock/pkg/database"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/messaging"
	"github.com/medflow/medstock/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const serviceName = "medstock"

// sessionBackend is a session store that can report its health
type sessionBackend interface {
	authservice.SessionStore
	Health(ctx context.Context) map[string]string
}

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting MedStock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Credentials
	credentials := authrepo.NewCredentialRepository(db, &cfg.Auth, log)
	if _, err := credentials.GetPasswordHash(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialise admin credential")
	}

	// Sessions
	var sessions sessionBackend
	var janitor *authservice.SessionJanitor
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to Redis")
		}
		sessions = authrepo.NewRedisSessionStore(rdb)
	default:
		pgSessions := authrepo.NewPostgresSessionStore(db)
		sessions = pgSessions
		if cfg.Session.CleanupInterval > 0 {
			janitor = authservice.NewSessionJanitor(pgSessions, cfg.Session.CleanupInterval, log)
			janitor.Start(ctx)
		}
	}
	log.Info().Str("store", cfg.Session.Store).Msg("session store ready")

	sessionManager := authservice.NewSessionManager(sessions, jwt.NewManager(&cfg.Session), cfg.Session.TTL, log)
	authService := authservice.NewAuthService(credentials, sessionManager, &cfg.Auth, log)

	// Events are optional; without a broker the publisher stays nil and publishing is skipped.
	var rmq *messaging.RabbitMQ
	var publisher *events.InventoryEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, inventory events disabled")
		} else {
			defer rmq.Close()
			publisher, err = events.NewInventoryEventPublisher(rmq, cfg.RabbitMQ.Exchange, log)
			if err != nil {
				log.Warn().Err(err).Msg("failed to create event publisher, inventory events disabled")
			}
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(serviceName)
	}

	// Inventory
	itemRepo := repository.NewItemRepository(db)
	ledgerRepo := repository.NewTransactionRepository(db)
	reportRepo := repository.NewReportRepository(db)

	ledgerService := service.NewLedgerService(db, itemRepo, ledgerRepo, &cfg.Inventory, publisher, m, log)
	reportService := service.NewReportService(reportRepo, &cfg.Inventory, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authService, authhandler.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie || config.IsProductionLike(cfg.Server.Environment),
	}, log)
	itemHandler := handler.NewItemHandler(ledgerService, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	pages := web.NewPages(cfg.Server.StaticDir, log)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Observe(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(60 * time.Second))
	publicPaths := append([]string{}, authmw.DefaultPublicPaths...)
	if m != nil && cfg.Metrics.Public {
		publicPaths = append(publicPaths, "/metrics")
	}
	r.Use(authmw.Guard(sessionManager, authmw.GuardConfig{
		CookieName:     cfg.Session.CookieName,
		PublicPaths:    publicPaths,
		PublicPrefixes: cfg.Auth.PublicPrefixes,
		AssetExts:      authmw.DefaultAssetExts,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		rabbit := map[string]string{"status": "disabled"}
		if rmq != nil {
			rabbit = rmq.Health()
		}

		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"sessions": sessions.Health(r.Context()),
			"rabbitmq": rabbit,
		})
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	authHandler.RegisterRoutes(r)
	itemHandler.RegisterRoutes(r)
	reportHandler.RegisterRoutes(r)
	pages.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop background work before draining requests
	cancel()
	if janitor != nil {
		janitor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
