package services

import (
	"context"
	"strings"

	"ledgerpay/internal/ledger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/wallet"
)

const callbackActor = "wallet-callback"

// SignatureCallback is the wallet provider's notification that the sender
// acted on one signing request, or on both legs of a batch.
type SignatureCallback struct {
	References []string
	Status     string
}

type ConfirmResult struct {
	RequestID       string
	Status          models.Status
	PaymentHash     string
	EngineResult    string
	FeeHash         string
	FeeStatus       models.Status
	FeeEngineResult string
	Message         string
}

// ConfirmSignature submits the signed blobs for the referenced records. The
// payment leg goes first; the fee leg is only submitted when the payment leg
// succeeded.
func (s *PaymentService) ConfirmSignature(ctx context.Context, cb SignatureCallback) (result ConfirmResult, err error) {
	flow := flowConfirm
	if len(cb.References) == 2 {
		flow = flowConfirmBatch
	}
	defer func() { err = s.finish(flow, err) }()

	refs, err := normalizeReferences(cb.References)
	if err != nil {
		return result, err
	}
	if !strings.EqualFold(strings.TrimSpace(cb.Status), string(wallet.StatusSigned)) {
		return result, ErrNotSigned.WithDetail(cb.Status)
	}

	unlock, err := s.confirms.Lock(ctx, refs[0])
	if err != nil {
		return result, err
	}
	defer unlock()

	payment, err := s.pendingRecord(ctx, refs[0], models.PaymentTypeUser)
	if err != nil {
		return result, err
	}
	var fee *models.PaymentRecord
	if len(refs) == 2 {
		feeRecord, err := s.pendingRecord(ctx, refs[1], models.PaymentTypePlatformFee)
		if err != nil {
			return result, err
		}
		if derefString(feeRecord.RequestID) != derefString(payment.RequestID) || feeRecord.AccountID != payment.AccountID {
			return result, ErrMismatchedLegs
		}
		fee = &feeRecord
	}

	paymentBlob, err := s.signedBlob(ctx, refs[0])
	if err != nil {
		return result, err
	}
	var feeBlob string
	if fee != nil {
		if feeBlob, err = s.signedBlob(ctx, refs[1]); err != nil {
			return result, err
		}
	}

	account, err := s.accounts.GetByID(ctx, payment.AccountID)
	if err != nil {
		return result, notFound(err, ErrAccountNotFound)
	}
	requestID := derefString(payment.RequestID)
	result.RequestID = requestID

	// From the first submission on, a leg the ledger applied must be
	// recorded even if the callback connection drops.
	ctx, cancel := detach(ctx)
	defer cancel()

	submitted, err := s.submit(ctx, "payment", paymentBlob)
	if err != nil {
		return result, err
	}
	status := models.StatusConfirmed
	if !ledger.IsSuccess(submitted.EngineResult) {
		status = models.StatusFailed
	}
	if err := s.settleLeg(ctx, payment, status, submitted); err != nil {
		return result, err
	}
	s.publish(account.UserID, requestID, payment.ID, refs[0], payment.PaymentType, status, submitted.Hash, submitted.EngineResult)
	if status == models.StatusFailed {
		result.Status = models.StatusFailed
		result.EngineResult = submitted.EngineResult
		return result, ErrPaymentLegFailed.WithDetail(submitted.EngineResult)
	}

	result.Status = models.StatusCompleted
	result.PaymentHash = submitted.Hash
	result.EngineResult = submitted.EngineResult
	result.Message = "Payment successful"
	if fee == nil {
		return result, nil
	}

	feeSubmitted, err := s.submit(ctx, "fee", feeBlob)
	if err != nil {
		s.logger.Warn("fee leg submission failed", "request_id", requestID, "reference", refs[1], "error", err)
		result.FeeStatus = models.StatusInitiated
		result.Message = "Payment successful, fee submission pending"
		return result, nil
	}
	feeStatus := models.StatusConfirmed
	if !ledger.IsSuccess(feeSubmitted.EngineResult) {
		feeStatus = models.StatusFailed
		result.Message = "Payment successful, fee leg rejected"
	}
	if err := s.settleLeg(ctx, *fee, feeStatus, feeSubmitted); err != nil {
		s.logger.Error("fee leg applied but record not settled", "request_id", requestID,
			"hash", feeSubmitted.Hash, "error", err)
		return result, err
	}
	s.publish(account.UserID, requestID, fee.ID, refs[1], fee.PaymentType, feeStatus, feeSubmitted.Hash, feeSubmitted.EngineResult)
	result.FeeHash = feeSubmitted.Hash
	result.FeeStatus = feeStatus
	result.FeeEngineResult = feeSubmitted.EngineResult
	return result, nil
}

func (s *PaymentService) pendingRecord(ctx context.Context, reference string, paymentType models.PaymentType) (models.PaymentRecord, error) {
	record, err := s.records.GetByReference(ctx, reference)
	if err != nil {
		return models.PaymentRecord{}, notFound(err, ErrRecordNotFound.WithDetail(reference))
	}
	if record.PaymentType != paymentType {
		return models.PaymentRecord{}, ErrMismatchedLegs.WithDetail(reference + " is not a " + string(paymentType) + " leg")
	}
	if record.Status.Terminal() {
		return models.PaymentRecord{}, ErrAlreadyProcessed.WithDetail(reference + " is " + string(record.Status))
	}
	return record, nil
}

// signedBlob fetches the signed transaction from the provider. The callback
// is not trusted on its own.
func (s *PaymentService) signedBlob(ctx context.Context, reference string) (string, error) {
	payload, err := observeWallet("get_payload", func() (wallet.SignedPayload, error) {
		return s.wallet.GetSigningRequest(ctx, reference)
	})
	if err != nil {
		return "", ErrSigningFailed.WithDetail(reference).Wrap(err)
	}
	if payload.Status != wallet.StatusSigned || payload.SignedBlobHex == "" {
		return "", ErrNotSigned.WithDetail(reference + " is " + string(payload.Status))
	}
	return payload.SignedBlobHex, nil
}

func (s *PaymentService) settleLeg(ctx context.Context, record models.PaymentRecord, status models.Status, submitted ledger.SubmitResult) error {
	var hash *string
	if submitted.Hash != "" {
		hash = &submitted.Hash
	}
	return s.settle(ctx, record.ID, status, hash, submitted.EngineResult, callbackActor, nil)
}

func normalizeReferences(refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, ErrMissingField.WithDetail("paymentUuid")
	}
	if len(refs) > 2 {
		return nil, ErrInvalidField.WithDetail("at most two references are accepted")
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = strings.TrimSpace(ref)
		if out[i] == "" {
			return nil, ErrMissingField.WithDetail("paymentUuid")
		}
	}
	if len(out) == 2 && out[0] == out[1] {
		return nil, ErrMismatchedLegs.WithDetail("references must differ")
	}
	return out, nil
}
