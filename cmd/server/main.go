// Package main is the entry point for the Sudhaar complaint portal
// server. It provides a REST API for citizen grievance submission and
// tracking: accounts, complaint filing with photos, status workflow,
// admin responses, and integrity verification via Merkle proofs.
//
// Architecture:
//   - All records live in a versioned key-value document store
//     (memory, PostgreSQL or Redis backed, selected by STORE_BACKEND)
//   - Writes are compare-and-swap on per-record versions, so concurrent
//     writers never silently overwrite each other
//   - Credentials are bcrypt hashes; sessions are signed JWTs
//   - A Merkle tree root is published for tamper detection
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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/audit"
	"github.com/sudhaar/complaint-server/internal/complaints"
	"github.com/sudhaar/complaint-server/internal/config"
	"github.com/sudhaar/complaint-server/internal/database"
	"github.com/sudhaar/complaint-server/internal/handlers"
	"github.com/sudhaar/complaint-server/internal/identity"
	"github.com/sudhaar/complaint-server/internal/integrity"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/middleware"
	"github.com/sudhaar/complaint-server/internal/session"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting Sudhaar Complaint Portal Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"store", cfg.StoreBackend,
	)

	// Initialize the key-value document store
	store, cleanup, err := newStore(cfg)
	if err != nil {
		sugar.Fatalf("Failed to initialize store: %v", err)
	}
	defer cleanup()

	// Initialize services
	tokens, err := identity.NewTokenService(cfg.JWTSecret)
	if err != nil {
		sugar.Fatalf("Failed to create token service: %v", err)
	}
	identitySvc := identity.NewService(store, tokens, sugar)
	complaintSvc := complaints.NewService(store, sugar)
	sessionSvc := session.NewService(store, sugar)
	auditSvc := audit.NewService(store, sugar)
	integritySvc := integrity.NewService(sugar)
	integrityWorker := integrity.NewWorker(integritySvc, complaintSvc, sugar)

	// Seed bootstrap accounts and sample complaints
	if cfg.Seed {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := identitySvc.Seed(ctx); err != nil {
			cancel()
			sugar.Fatalf("Failed to seed accounts: %v", err)
		}
		if err := complaintSvc.Seed(ctx, identity.SeedUserID, identity.SeedAdminID); err != nil {
			cancel()
			sugar.Fatalf("Failed to seed complaints: %v", err)
		}
		_ = auditSvc.Record(ctx, audit.ActionSeed, "system", "", "bootstrap data seeded")
		cancel()
	}

	// Start background integrity worker (rebuilds Merkle tree periodically)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go integrityWorker.Start(workerCtx, time.Duration(cfg.IntegrityInterval)*time.Minute)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identitySvc, sugar)
	profileHandler := handlers.NewProfileHandler(sessionSvc, auditSvc, sugar)
	complaintHandler := handlers.NewComplaintHandler(complaintSvc, auditSvc, sugar)
	auditHandler := handlers.NewAuditHandler(auditSvc, sugar)
	integrityHandler := handlers.NewIntegrityHandler(integritySvc, sugar)
	healthHandler := handlers.NewHealthHandler(store, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecureHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	// Health check
	r.Get("/health", healthHandler.Check)
	r.Get("/health/ready", healthHandler.Ready)

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Authentication (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/me", profileHandler.Me)
			r.Patch("/me", profileHandler.Update)

			r.Post("/complaints", complaintHandler.Submit)
			r.Get("/complaints/mine", complaintHandler.Mine)
			r.Get("/complaints/search", complaintHandler.Search)

			// Administrator routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Get("/complaints", complaintHandler.ListAll)
				r.Post("/complaints/{id}/response", complaintHandler.Respond)
				r.Get("/admin/stats", complaintHandler.Stats)
				r.Get("/admin/audit", auditHandler.Recent)
				r.Get("/admin/audit/complaint/{id}", auditHandler.ByComplaint)
			})
		})

		// Integrity endpoints (Merkle tree, public)
		r.Route("/integrity", func(r chi.Router) {
			r.Get("/root", integrityHandler.GetRoot)
			r.Get("/proof/{index}", integrityHandler.GetProof)
			r.Post("/verify", integrityHandler.Verify)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}

// newStore builds the configured store backend. The returned cleanup
// releases backend resources and is safe to call once.
func newStore(cfg *config.Config) (kvstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := database.NewPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := kvstore.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := kvstore.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		return kvstore.NewMemory(), func() {}, nil
	}
}
