package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerpay/internal/auth"
	"ledgerpay/internal/config"
	"ledgerpay/internal/models"
	"ledgerpay/internal/services"
	"ledgerpay/internal/store"
	"ledgerpay/internal/websocket"
)

type stubReconcileDB struct {
	selectFn func(ctx context.Context, dest any, query string, args ...any) error
}

func (s stubReconcileDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.selectFn == nil {
		return nil
	}
	return s.selectFn(ctx, dest, query, args...)
}

type stubAccountStore struct {
	getByUserFn func(ctx context.Context, userID string) ([]store.AccountBalanceSummary, error)
}

func (s stubAccountStore) GetByUser(ctx context.Context, userID string) ([]store.AccountBalanceSummary, error) {
	if s.getByUserFn == nil {
		return nil, nil
	}
	return s.getByUserFn(ctx, userID)
}

type stubRecordStore struct {
	listByRequestIDFn func(ctx context.Context, requestID string) ([]models.PaymentRecord, error)
	listByUserFn      func(ctx context.Context, userID string, status models.Status, limit, offset int) ([]models.PaymentRecord, error)
}

func (s stubRecordStore) ListByRequestID(ctx context.Context, requestID string) ([]models.PaymentRecord, error) {
	if s.listByRequestIDFn == nil {
		return nil, nil
	}
	return s.listByRequestIDFn(ctx, requestID)
}

func (s stubRecordStore) ListByUser(ctx context.Context, userID string, status models.Status, limit, offset int) ([]models.PaymentRecord, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, status, limit, offset)
}

type stubAuditStore struct {
	listByEntityFn func(ctx context.Context, entityIDs []string) ([]store.AuditEvent, error)
}

func (s stubAuditStore) ListByEntity(ctx context.Context, entityIDs []string) ([]store.AuditEvent, error) {
	if s.listByEntityFn == nil {
		return nil, nil
	}
	return s.listByEntityFn(ctx, entityIDs)
}

type stubPaymentService struct {
	sendCustodialFn func(ctx context.Context, req services.CustodialSendRequest) (services.CustodialSendResult, error)
	initiateFn      func(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error)
	initiateBatchFn func(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error)
	confirmFn       func(ctx context.Context, cb services.SignatureCallback) (services.ConfirmResult, error)
}

func (s stubPaymentService) SendCustodial(ctx context.Context, req services.CustodialSendRequest) (services.CustodialSendResult, error) {
	return s.sendCustodialFn(ctx, req)
}

func (s stubPaymentService) InitiateNonCustodial(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error) {
	return s.initiateFn(ctx, req)
}

func (s stubPaymentService) InitiateNonCustodialBatch(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error) {
	return s.initiateBatchFn(ctx, req)
}

func (s stubPaymentService) ConfirmSignature(ctx context.Context, cb services.SignatureCallback) (services.ConfirmResult, error) {
	return s.confirmFn(ctx, cb)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		WebhookSecret:  "hook-secret",
	}
}

func newTestHandler(reconcileDB store.Selecter, accounts AccountStore, records RecordStore, audit AuditStore, payments PaymentService) *Handler {
	return New(reconcileDB, testConfig(), nil, accounts, records, audit, payments, websocket.NewHub())
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
