package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/db"
	"ledgerpay/internal/ledger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/money"
	"ledgerpay/internal/store"
	"ledgerpay/internal/validator"
	"ledgerpay/internal/wallet"
)

type NonCustodialSendRequest struct {
	RequestID          string
	DisplayName        string
	SenderAddress      string
	DestinationAddress string
	Amount             decimal.Decimal
}

// SigningLeg is one transaction the sender must approve in their wallet.
type SigningLeg struct {
	RecordID    string
	PaymentType models.PaymentType
	Reference   string
	RedirectURL string
	Destination string
	Amount      decimal.Decimal
	Sequence    uint32
}

type SigningResponse struct {
	RequestID string
	Status    models.Status
	UserID    string
	AccountID string
	Quote     FeeQuote
	Legs      []SigningLeg
}

// Leg returns the leg of the given type, if present.
func (r SigningResponse) Leg(paymentType models.PaymentType) (SigningLeg, bool) {
	for _, leg := range r.Legs {
		if leg.PaymentType == paymentType {
			return leg, true
		}
	}
	return SigningLeg{}, false
}

// InitiateNonCustodial prepares a single payment the sender signs in their
// wallet. Nothing is submitted until the signature is confirmed.
func (s *PaymentService) InitiateNonCustodial(ctx context.Context, req NonCustodialSendRequest) (resp SigningResponse, err error) {
	defer func() { err = s.finish(flowNonCustodial, err) }()
	return s.initiate(ctx, req, 1)
}

// InitiateNonCustodialBatch prepares the payment plus a platform fee leg
// with consecutive sequences, so the fee can only apply after the payment.
func (s *PaymentService) InitiateNonCustodialBatch(ctx context.Context, req NonCustodialSendRequest) (resp SigningResponse, err error) {
	defer func() { err = s.finish(flowBatch, err) }()
	return s.initiate(ctx, req, 2)
}

func (s *PaymentService) initiate(ctx context.Context, req NonCustodialSendRequest, legs int) (SigningResponse, error) {
	if err := s.validateNonCustodial(req); err != nil {
		return SigningResponse{}, err
	}
	if legs == 2 && req.SenderAddress == s.cfg.PlatformAddress {
		return SigningResponse{}, ErrInvalidField.WithDetail("sender_address is the platform address")
	}
	if err := s.ensureUnusedRequest(ctx, req.RequestID); err != nil {
		return SigningResponse{}, err
	}

	account, err := s.resolver.Resolve(ctx, req.SenderAddress, req.DisplayName)
	if err != nil {
		return SigningResponse{}, err
	}

	lease, err := s.sequences.Allocate(ctx, req.SenderAddress, legs)
	if err != nil {
		return SigningResponse{}, err
	}
	defer lease.Release()
	// Retries of one request share the sender, so under the lease a second
	// look settles which of them goes on to create signing requests.
	if err := s.ensureUnusedRequest(ctx, req.RequestID); err != nil {
		return SigningResponse{}, err
	}

	quote, err := s.fees.Quote(ctx, req.Amount, legs)
	if err != nil {
		return SigningResponse{}, err
	}
	if err := RequireBalance("sender", lease.Balance, quote.SenderTotal()); err != nil {
		return SigningResponse{}, err
	}

	payments := []ledger.Payment{{
		Account:     req.SenderAddress,
		Destination: req.DestinationAddress,
		Amount:      req.Amount,
		Fee:         quote.NetworkFee,
		Sequence:    lease.Sequences[0],
	}}
	types := []models.PaymentType{models.PaymentTypeUser}
	if legs == 2 {
		payments = append(payments, ledger.Payment{
			Account:     req.SenderAddress,
			Destination: s.cfg.PlatformAddress,
			Amount:      quote.PlatformFee,
			Fee:         quote.NetworkFee,
			Sequence:    lease.Sequences[1],
		})
		types = append(types, models.PaymentTypePlatformFee)
	}

	resp := SigningResponse{
		RequestID: req.RequestID,
		Status:    models.StatusInitiated,
		UserID:    account.UserID,
		AccountID: account.ID,
		Quote:     quote,
	}
	for i, payment := range payments {
		signing, err := observeWallet("create_payload", func() (wallet.SigningRequest, error) {
			return s.wallet.CreateSigningRequest(ctx, payment)
		})
		if err != nil {
			return SigningResponse{}, ErrSigningFailed.Wrap(err)
		}
		if signing.ID == "" || signing.RedirectURL == "" {
			return SigningResponse{}, ErrSigningFailed.WithDetail("provider returned an empty signing reference")
		}
		resp.Legs = append(resp.Legs, SigningLeg{
			RecordID:    uuid.NewString(),
			PaymentType: types[i],
			Reference:   signing.ID,
			RedirectURL: signing.RedirectURL,
			Destination: payment.Destination,
			Amount:      payment.Amount,
			Sequence:    payment.Sequence,
		})
	}

	platformFee := quote.PlatformFee
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, leg := range resp.Legs {
			reference := leg.Reference
			if err := s.records.Create(ctx, tx, store.RecordInput{
				ID:                 leg.RecordID,
				AccountID:          account.ID,
				DestinationAddress: leg.Destination,
				Amount:             leg.Amount,
				PlatformFee:        &platformFee,
				NetworkFee:         quote.NetworkFee,
				PaymentReference:   &reference,
				PaymentType:        leg.PaymentType,
				RequestID:          optionalString(req.RequestID),
				Status:             models.StatusInitiated,
			}); err != nil {
				return err
			}
			if err := s.audit.Log(ctx, tx, account.UserID, "payment_initiated", "payment_record", leg.RecordID, auditData(map[string]string{
				"reference": reference,
				"amount":    money.Format(leg.Amount),
				"sequence":  strconv.FormatUint(uint64(leg.Sequence), 10),
			})); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return SigningResponse{}, ErrDuplicateRequest.WithDetail(req.RequestID)
		}
		return SigningResponse{}, err
	}

	for _, leg := range resp.Legs {
		s.publish(account.UserID, req.RequestID, leg.RecordID, leg.Reference, leg.PaymentType, models.StatusInitiated, "", "")
	}
	return resp, nil
}

func (s *PaymentService) validateNonCustodial(req NonCustodialSendRequest) error {
	if strings.TrimSpace(req.RequestID) == "" {
		return ErrMissingField.WithDetail("RequestId")
	}
	if err := validator.ValidateRequestID(req.RequestID); err != nil {
		return ErrInvalidField.WithDetail("RequestId")
	}
	if strings.TrimSpace(req.SenderAddress) == "" {
		return ErrMissingField.WithDetail("sender_address")
	}
	if err := validator.ValidateAddress(req.SenderAddress); err != nil {
		return ErrInvalidField.WithDetail("sender_address")
	}
	if err := validateDestination(req.DestinationAddress); err != nil {
		return err
	}
	if req.SenderAddress == req.DestinationAddress {
		return ErrInvalidField.WithDetail("destination_address equals sender_address")
	}
	if req.DisplayName != "" {
		if err := validator.ValidateDisplayName(req.DisplayName); err != nil {
			return ErrInvalidField.WithDetail("display_name")
		}
	}
	return validateAmount(req.Amount)
}
