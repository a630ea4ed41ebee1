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

	"ledgerpay/internal/config"
	"ledgerpay/internal/db"
	"ledgerpay/internal/handlers"
	"ledgerpay/internal/ledger"
	"ledgerpay/internal/services"
	"ledgerpay/internal/signing"
	"ledgerpay/internal/store"
	"ledgerpay/internal/wallet"
	"ledgerpay/internal/websocket"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.PlatformAddress == "" || cfg.PlatformSecret == "" {
		logger.Error("PLATFORM_ADDRESS and PLATFORM_SECRET are required")
		os.Exit(1)
	}
	database, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	signer, err := signing.NewLocalSigner(cfg.PlatformAddress, cfg.PlatformSecret)
	if err != nil {
		logger.Error("failed to load platform signer", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	entries := store.NewEntryStore(database)
	records := store.NewRecordStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledgerClient := ledger.NewClient(cfg.XRPLRPCURL, cfg.LedgerTimeout)
	walletClient := wallet.NewClient(wallet.Config{
		BaseURL:      cfg.XamanAPIURL,
		APIKey:       cfg.XamanAPIKey,
		APISecret:    cfg.XamanAPISecret,
		ReturnURL:    cfg.XamanReturnURL,
		ForceNetwork: cfg.XamanForceNetwork,
		Timeout:      cfg.WalletTimeout,
	})

	payments := services.NewPaymentService(services.PaymentConfig{
		PlatformAddress: cfg.PlatformAddress,
		PlatformFee:     cfg.PlatformFee,
	}, txRunner, users, accounts, entries, records, audit, ledgerClient, walletClient, signer, hub, logger)

	handler := handlers.New(database, cfg, logger, accounts, records, audit, payments, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ledgerpay API listening", "addr", server.Addr, "env", cfg.AppEnv, "platform", cfg.PlatformAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
