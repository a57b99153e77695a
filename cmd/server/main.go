// Arc Wardens - Campaign session & payment gating server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcwardens/outreach/internal/api"
	"github.com/arcwardens/outreach/internal/chat"
	"github.com/arcwardens/outreach/internal/config"
	"github.com/arcwardens/outreach/internal/middleware"
	"github.com/arcwardens/outreach/internal/session"
	"github.com/arcwardens/outreach/internal/store"
	"github.com/arcwardens/outreach/internal/wallet"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize campaign persistence.
	var repo store.Repository
	if cfg.CampaignStoreURL != "" {
		repo = store.NewRemote(cfg.CampaignStoreURL, logger)
		slog.Info("Using remote campaign store", "url", cfg.CampaignStoreURL)
	} else {
		repo, err = store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		slog.Info("Using local campaign database", "path", cfg.DBPath)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Campaign store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Campaign store connected")

	// Initialize backend clients.
	chatClient := chat.NewClient(chat.DefaultClientConfig(cfg.ChatBackendURL), logger)
	walletClient := wallet.NewClient(wallet.DefaultClientConfig(cfg.Wallet.APIBaseURL), logger)

	if !cfg.PaymentsConfigured() {
		slog.Warn("Wallet payment settings incomplete, pay actions will fail at the transfer step")
	}

	// Balance poller is tied to the server lifetime.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := wallet.NewPoller(walletClient, cfg.Wallet.WalletID, cfg.Wallet.PollInterval, logger)
	poller.Start(ctx)

	// Initialize the session controller.
	controller := session.NewController(repo, chatClient, walletClient, poller, session.PaymentConfig{
		WalletID:        cfg.Wallet.WalletID,
		ReceiverAddress: cfg.Wallet.ReceiverAddress,
		TokenID:         cfg.Wallet.TokenID,
	}, logger)
	defer controller.Close()

	if err := controller.Load(ctx); err != nil {
		slog.Error("Failed to load campaigns", "error", err)
		os.Exit(1)
	}
	slog.Info("Campaigns loaded", "count", len(controller.ListCampaigns()))

	// Initialize handlers.
	baseHandler := api.NewHandler(controller, walletClient)
	campaignHandler := api.NewCampaignHandler(baseHandler)
	walletHandler := api.NewWalletHandler(baseHandler)
	feedHandler := api.NewBalanceFeedHandler(poller, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	// Outside development the configured frontend is the only allowed
	// cross-origin caller.
	corsOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	campaignHandler.RegisterRoutes(r)
	walletHandler.RegisterRoutes(r)
	r.Get("/ws/wallet", feedHandler.ServeHTTP)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Chat backend calls can take a while; give writes headroom.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
