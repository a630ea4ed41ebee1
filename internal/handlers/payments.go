package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
	"ledgerpay/internal/money"
	"ledgerpay/internal/services"
	"ledgerpay/internal/store"
)

type custodialPaymentRequest struct {
	DestinationAddress string      `json:"destinationAddress"`
	Amount             json.Number `json:"amount"`
}

type custodialPaymentResponse struct {
	RecordID        string `json:"recordId"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash,omitempty"`
	EngineResult    string `json:"engineResult,omitempty"`
	Amount          string `json:"amount"`
	PlatformFee     string `json:"platformFee"`
	NetworkFee      string `json:"networkFee"`
	TotalDebited    string `json:"totalDebited"`
	Message         string `json:"message"`
}

// SendCustodial handles POST /api/v1/payments/initiate.
func (h *Handler) SendCustodial(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	var req custodialPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	result, err := h.payments.SendCustodial(r.Context(), services.CustodialSendRequest{
		UserID:             userID,
		DestinationAddress: strings.TrimSpace(req.DestinationAddress),
		Amount:             amount,
		RequestID:          strings.TrimSpace(r.Header.Get(RequestIDHeader)),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, custodialPaymentResponse{
		RecordID:        result.RecordID,
		Status:          string(result.Status),
		TransactionHash: result.TransactionHash,
		EngineResult:    result.EngineResult,
		Amount:          money.Format(result.Amount),
		PlatformFee:     money.Format(result.PlatformFee),
		NetworkFee:      money.Format(result.NetworkFee),
		TotalDebited:    money.Format(result.TotalDebited),
		Message:         "Payment successful",
	})
}

type nonCustodialPaymentRequest struct {
	UserName           string      `json:"userName"`
	SenderAddress      string      `json:"senderAddress"`
	DestinationAddress string      `json:"destinationAddress"`
	Amount             json.Number `json:"amount"`
}

type paymentSignResponse struct {
	RequestID       string `json:"requestId"`
	Status          string `json:"status"`
	UserUUID        string `json:"userUuid"`
	UserRedirectURL string `json:"userRedirectUrl"`
	FeeUUID         string `json:"feeUuid,omitempty"`
	FeeRedirectURL  string `json:"feeRedirectUrl,omitempty"`
	Amount          string `json:"amount"`
	PlatformFee     string `json:"platformFee"`
	NetworkFee      string `json:"networkFee"`
	TotalCost       string `json:"totalCost"`
	Message         string `json:"message"`
}

// InitiatePayment handles POST /api/v2/payments/initiate.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, h.payments.InitiateNonCustodial)
}

// InitiateBatchPayment handles POST /api/v2/payments/initiate/batch.
func (h *Handler) InitiateBatchPayment(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, h.payments.InitiateNonCustodialBatch)
}

type initiateFunc func(ctx context.Context, req services.NonCustodialSendRequest) (services.SigningResponse, error)

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request, run initiateFunc) {
	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		h.respondServiceError(w, r, services.ErrMissingField.WithDetail("RequestId header"))
		return
	}
	var req nonCustodialPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	resp, err := run(r.Context(), services.NonCustodialSendRequest{
		RequestID:          requestID,
		DisplayName:        strings.TrimSpace(req.UserName),
		SenderAddress:      strings.TrimSpace(req.SenderAddress),
		DestinationAddress: strings.TrimSpace(req.DestinationAddress),
		Amount:             amount,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	out := paymentSignResponse{
		RequestID:   resp.RequestID,
		Status:      string(resp.Status),
		Amount:      money.Format(resp.Quote.Amount),
		PlatformFee: money.Format(resp.Quote.PlatformFee),
		NetworkFee:  money.Format(resp.Quote.NetworkFee),
		TotalCost:   money.Format(resp.Quote.SenderTotal()),
		Message:     "Sign the payment in your wallet",
	}
	if leg, ok := resp.Leg(models.PaymentTypeUser); ok {
		out.UserUUID = leg.Reference
		out.UserRedirectURL = leg.RedirectURL
	}
	if leg, ok := resp.Leg(models.PaymentTypePlatformFee); ok {
		out.FeeUUID = leg.Reference
		out.FeeRedirectURL = leg.RedirectURL
		out.Message = "Sign the payment and the platform fee in your wallet"
	}
	respondJSON(w, http.StatusOK, out)
}

type signCallbackRequest struct {
	PaymentUUID string `json:"paymentUuid"`
	Status      string `json:"status"`
}

type batchSignCallbackRequest struct {
	PaymentUUIDs []string `json:"paymentUuids"`
	Status       string   `json:"status"`
}

type successPaymentResponse struct {
	RequestID       string `json:"requestId,omitempty"`
	Status          string `json:"status"`
	PaymentHash     string `json:"paymentHash"`
	FeeHash         string `json:"feeHash,omitempty"`
	FeeStatus       string `json:"feeStatus,omitempty"`
	FeeEngineResult string `json:"feeEngineResult,omitempty"`
	Message         string `json:"message"`
}

// SignCallback handles POST /api/v2/payments/callback.
func (h *Handler) SignCallback(w http.ResponseWriter, r *http.Request) {
	var req signCallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload")
		return
	}
	refs := []string{}
	if req.PaymentUUID != "" {
		refs = append(refs, req.PaymentUUID)
	}
	h.confirm(w, r, services.SignatureCallback{References: refs, Status: req.Status})
}

// BatchSignCallback handles POST /api/v2/payments/callback/batch. The first
// reference is the payment leg, the second the fee leg.
func (h *Handler) BatchSignCallback(w http.ResponseWriter, r *http.Request) {
	var req batchSignCallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid payload")
		return
	}
	if len(req.PaymentUUIDs) != 2 {
		h.respondServiceError(w, r, services.ErrInvalidField.WithDetail("paymentUuids must hold the payment and fee references"))
		return
	}
	h.confirm(w, r, services.SignatureCallback{References: req.PaymentUUIDs, Status: req.Status})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, cb services.SignatureCallback) {
	result, err := h.payments.ConfirmSignature(r.Context(), cb)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, successPaymentResponse{
		RequestID:       result.RequestID,
		Status:          string(result.Status),
		PaymentHash:     result.PaymentHash,
		FeeHash:         result.FeeHash,
		FeeStatus:       string(result.FeeStatus),
		FeeEngineResult: result.FeeEngineResult,
		Message:         result.Message,
	})
}

type paymentEvent struct {
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Data      string `json:"data"`
	CreatedAt any    `json:"createdAt"`
}

type paymentLeg struct {
	models.PaymentRecord
	Events []paymentEvent `json:"events"`
}

// GetPayment handles GET /api/v2/payments/{requestID}: the legs recorded for
// a request id with their event history. Only legs drawn on the caller's
// accounts are visible; anything else reads as not found.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	requestID := chi.URLParam(r, "requestID")
	owned, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	all, err := h.records.ListByRequestID(r.Context(), requestID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	records := ownedRecords(all, owned)
	if len(records) == 0 {
		h.respondServiceError(w, r, services.ErrRecordNotFound.WithDetail(requestID))
		return
	}
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	events, err := h.audit.ListByEntity(r.Context(), ids)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	byRecord := groupEvents(events)
	legs := make([]paymentLeg, 0, len(records))
	for _, record := range records {
		history := byRecord[record.ID]
		if history == nil {
			history = []paymentEvent{}
		}
		legs = append(legs, paymentLeg{PaymentRecord: record, Events: history})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"requestId": requestID,
		"legs":      legs,
	})
}

func groupEvents(events []store.AuditEvent) map[string][]paymentEvent {
	out := make(map[string][]paymentEvent)
	for _, event := range events {
		out[event.EntityID] = append(out[event.EntityID], paymentEvent{
			Actor:     event.Actor,
			Action:    event.Action,
			Data:      event.Data,
			CreatedAt: event.CreatedAt,
		})
	}
	return out
}

func ownedRecords(records []models.PaymentRecord, accounts []store.AccountBalanceSummary) []models.PaymentRecord {
	ids := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		ids[account.ID] = struct{}{}
	}
	out := make([]models.PaymentRecord, 0, len(records))
	for _, record := range records {
		if _, ok := ids[record.AccountID]; ok {
			out = append(out, record)
		}
	}
	return out
}
