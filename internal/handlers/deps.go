package handlers

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services"
	"ledgerpay/internal/store"
)

type AccountStore interface {
	GetByUser(ctx context.Context, userID string) ([]store.AccountBalanceSummary, error)
}

type RecordStore interface {
	ListByRequestID(ctx context.Context, requestID string) ([]models.PaymentRecord, error)
	ListByUser(ctx context.Context, userID string, status models.Status, limit, offset int) ([]models.PaymentRecord, error)
}

type AuditStore interface {
	ListByEntity(ctx context.Context, entityIDs []string) ([]store.AuditEvent, error)
}

type PaymentService interface {
	SendCustodial(ctx context.Context, req services.CustodialSendRequest) (services.CustodialSendResult, error)
	InitiateNonCustodial(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error)
	InitiateNonCustodialBatch(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error)
	ConfirmSignature(ctx context.Context, cb services.SignatureCallback) (services.ConfirmResult, error)
}
