package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/insuite-backend/internal/config"
	"github.com/georgemunganga/insuite-backend/internal/database"
	kafkax "github.com/georgemunganga/insuite-backend/internal/kafka"
	"github.com/georgemunganga/insuite-backend/internal/modules/account"
	"github.com/georgemunganga/insuite-backend/internal/modules/auth"
	"github.com/georgemunganga/insuite-backend/internal/modules/dashboard"
	"github.com/georgemunganga/insuite-backend/internal/modules/identity"
	"github.com/georgemunganga/insuite-backend/internal/modules/inventory"
	"github.com/georgemunganga/insuite-backend/internal/modules/sales"
	"github.com/georgemunganga/insuite-backend/internal/modules/session"
	"github.com/georgemunganga/insuite-backend/internal/modules/user"
	"github.com/georgemunganga/insuite-backend/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type routes struct {
	gate      func(http.Handler) http.Handler
	auth      *auth.Handler
	inventory *inventory.Handler
	sales     *sales.Handler
	dashboard *dashboard.Handler
	account   *account.Handler
}

func newRouter(rt routes) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })

	rt.auth.RegisterRoutes(router, rt.gate)
	router.Group(func(r chi.Router) {
		r.Use(rt.gate)
		rt.dashboard.RegisterRoutes(r)
		rt.inventory.RegisterRoutes(r)
		rt.sales.RegisterRoutes(r)
		rt.account.RegisterRoutes(r)
	})
	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Println("Successfully connected to the database!")

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	revocations := identity.NewMemoryRevocationList()
	rdb, err := redisx.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		revocations = redisx.NewRevocationStore(rdb)
	}

	events := kafkax.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer events.Close()

	// ── Identity & session ──────────────────────────────────
	provider := identity.NewLocalProvider(user.NewPostgresRepository(db), identity.Options{
		Secret:                   cfg.JWTSecret,
		SessionTTL:               cfg.SessionTTL,
		RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		Revocations:              revocations,
	})
	store := session.NewStore()
	if err := store.Start(ctx, provider); err != nil {
		return err
	}
	defer store.Close()

	// ── Inventory, sales, dashboard, account ────────────────
	inventoryService := inventory.NewService(inventory.NewPostgresRepository(db))
	salesService := sales.NewService(sales.NewPostgresRepository(db), inventoryService, sales.Options{
		Compensate: cfg.SaleCompensation,
		Events:     events,
	})

	router := newRouter(routes{
		gate:      auth.RequireSession(store, provider),
		auth:      auth.NewHandler(auth.NewGateway(provider, store, cfg.EmailRedirectURL)),
		inventory: inventory.NewHandler(inventoryService),
		sales:     sales.NewHandler(salesService),
		dashboard: dashboard.NewHandler(dashboard.NewService(salesService, inventoryService)),
		account:   account.NewHandler(account.NewService(salesService, inventoryService)),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Insuite API server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
