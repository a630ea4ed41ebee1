package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerpay/internal/config"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/store"
	"ledgerpay/internal/websocket"
)

// RequestIDHeader carries the client's idempotency key.
const RequestIDHeader = "RequestId"

type Handler struct {
	reconcileDB store.Selecter
	cfg         config.Config
	logger      *slog.Logger
	accounts    AccountStore
	records     RecordStore
	audit       AuditStore
	payments    PaymentService
	hub         *websocket.Hub
}

func New(reconcileDB store.Selecter, cfg config.Config, logger *slog.Logger, accounts AccountStore, records RecordStore, audit AuditStore, payments PaymentService, hub *websocket.Hub) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		reconcileDB: reconcileDB,
		cfg:         cfg,
		logger:      logger,
		accounts:    accounts,
		records:     records,
		audit:       audit,
		payments:    payments,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader, middleware.WebhookSecretHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/initiate", h.SendCustodial)
	})
	router.Route("/api/v2/payments", func(r chi.Router) {
		r.Post("/initiate", h.InitiatePayment)
		r.Post("/initiate/batch", h.InitiateBatchPayment)
		r.With(middleware.RequireWebhookSecret(h.cfg.WebhookSecret, h.cfg.WebhookSecretHash)).Post("/callback", h.SignCallback)
		r.With(middleware.RequireWebhookSecret(h.cfg.WebhookSecret, h.cfg.WebhookSecretHash)).Post("/callback/batch", h.BatchSignCallback)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/{requestID}", h.GetPayment)
	})
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/accounts", h.ListAccounts)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/accounts/self-check", h.SelfCheck)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/transactions", h.ListTransactions)
	websocket.Upgrader.CheckOrigin = originChecker(h.cfg.AllowedOrigins)
	router.Get("/ws/payments", h.WSPayments)
	router.Handle("/metrics", promhttp.Handler())

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
