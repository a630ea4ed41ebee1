package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/db"
	"ledgerpay/internal/ledger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/money"
	"ledgerpay/internal/store"
	"ledgerpay/internal/validator"
	"ledgerpay/internal/websocket"
)

const (
	maxDebitAttempts = 3
	// settleTimeout bounds the work that must finish once money has moved,
	// even after the caller has gone away.
	settleTimeout = 30 * time.Second
)

// PaymentConfig is the platform identity and fee policy.
type PaymentConfig struct {
	PlatformAddress string
	PlatformFee     decimal.Decimal
}

// PaymentService runs custodial sends and the two phases of non-custodial
// sends.
type PaymentService struct {
	cfg       PaymentConfig
	txRunner  db.TxRunner
	users     UserStore
	accounts  AccountStore
	entries   EntryStore
	records   RecordStore
	audit     AuditStore
	ledger    LedgerGateway
	wallet    WalletGateway
	signer    Signer
	hub       PaymentHub
	logger    *slog.Logger
	resolver  *AccountResolver
	fees      *FeeCalculator
	sequences *SequenceAllocator
	confirms  *keyedMutex
}

func NewPaymentService(cfg PaymentConfig, txRunner db.TxRunner, users UserStore, accounts AccountStore, entries EntryStore, records RecordStore, audit AuditStore, ledgerGateway LedgerGateway, walletGateway WalletGateway, signer Signer, hub PaymentHub, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		cfg:       cfg,
		txRunner:  txRunner,
		users:     users,
		accounts:  accounts,
		entries:   entries,
		records:   records,
		audit:     audit,
		ledger:    ledgerGateway,
		wallet:    walletGateway,
		signer:    signer,
		hub:       hub,
		logger:    logger.With("component", "payments"),
		resolver:  NewAccountResolver(txRunner, users, accounts),
		fees:      NewFeeCalculator(ledgerGateway, cfg.PlatformFee),
		sequences: NewSequenceAllocator(ledgerGateway),
		confirms:  newKeyedMutex(),
	}
}

type CustodialSendRequest struct {
	UserID             string
	DestinationAddress string
	Amount             decimal.Decimal
	RequestID          string
}

type CustodialSendResult struct {
	RecordID        string
	Status          models.Status
	TransactionHash string
	EngineResult    string
	Amount          decimal.Decimal
	PlatformFee     decimal.Decimal
	NetworkFee      decimal.Decimal
	TotalDebited    decimal.Decimal
}

// SendCustodial debits the user's stored balance, then signs and submits a
// payment from the platform address. A rejected submission refunds the debit.
func (s *PaymentService) SendCustodial(ctx context.Context, req CustodialSendRequest) (result CustodialSendResult, err error) {
	defer func() { err = s.finish(flowCustodial, err) }()

	if strings.TrimSpace(req.UserID) == "" {
		return result, ErrMissingField.WithDetail("user_id")
	}
	if err := validateDestination(req.DestinationAddress); err != nil {
		return result, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return result, err
	}
	if req.RequestID != "" {
		if err := validator.ValidateRequestID(req.RequestID); err != nil {
			return result, ErrInvalidField.WithDetail("RequestId")
		}
		if err := s.ensureUnusedRequest(ctx, req.RequestID); err != nil {
			return result, err
		}
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return result, notFound(err, ErrUserNotFound)
	}
	account, err := s.accounts.GetPrimaryByUser(ctx, user.ID)
	if err != nil {
		return result, notFound(err, ErrAccountNotFound)
	}

	platform := s.signer.Address()
	lease, err := s.sequences.Allocate(ctx, platform, 1)
	if err != nil {
		return result, err
	}
	defer lease.Release()

	quote, err := s.fees.Quote(ctx, req.Amount, 1)
	if err != nil {
		return result, err
	}
	debit := quote.CustodialDebit()
	if err := RequireBalance("account", account.Balance, debit); err != nil {
		return result, err
	}
	if err := RequireBalance("platform", lease.Balance, quote.PlatformTotal()); err != nil {
		return result, err
	}

	recordID := uuid.NewString()
	record := store.RecordInput{
		ID:                 recordID,
		AccountID:          account.ID,
		DestinationAddress: req.DestinationAddress,
		Amount:             debit,
		NetworkFee:         quote.NetworkFee,
		PaymentType:        models.PaymentTypeUser,
		RequestID:          optionalString(req.RequestID),
		Status:             models.StatusInitiated,
	}
	if err := s.debitAndClaim(ctx, account, debit, record, user.ID); err != nil {
		return result, err
	}

	// The debit is committed. Submission and settlement run to completion
	// regardless of the caller, so the record always ends terminal and a
	// failed send is always refunded.
	ctx, cancel := detach(ctx)
	defer cancel()

	result = CustodialSendResult{
		RecordID:     recordID,
		Amount:       req.Amount,
		PlatformFee:  quote.PlatformFee,
		NetworkFee:   quote.NetworkFee,
		TotalDebited: debit,
	}
	payment := ledger.Payment{
		Account:     platform,
		Destination: req.DestinationAddress,
		Amount:      req.Amount,
		Fee:         quote.NetworkFee,
		Sequence:    lease.Sequences[0],
	}
	submitted, submitErr := s.signAndSubmit(ctx, payment)
	if submitErr == nil && ledger.IsSuccess(submitted.EngineResult) {
		hash := submitted.Hash
		if err := s.settle(ctx, recordID, models.StatusCompleted, &hash, submitted.EngineResult, user.ID, nil); err != nil {
			s.logger.Error("custodial payment applied but record not settled",
				"record_id", recordID, "hash", hash, "error", err)
			return result, err
		}
		result.Status = models.StatusCompleted
		result.TransactionHash = hash
		result.EngineResult = submitted.EngineResult
		s.publish(user.ID, req.RequestID, recordID, "", models.PaymentTypeUser, models.StatusCompleted, hash, submitted.EngineResult)
		return result, nil
	}

	refund := &store.EntryInput{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Amount:      debit,
		Reference:   recordID,
		Description: "custodial send refund",
	}
	var hash *string
	if submitted.Hash != "" {
		hash = &submitted.Hash
	}
	if err := s.settle(ctx, recordID, models.StatusFailed, hash, submitted.EngineResult, user.ID, refund); err != nil {
		s.logger.Error("custodial refund failed", "record_id", recordID, "account_id", account.ID,
			"amount", money.Format(debit), "error", err)
		return result, err
	}
	result.Status = models.StatusFailed
	result.EngineResult = submitted.EngineResult
	s.publish(user.ID, req.RequestID, recordID, "", models.PaymentTypeUser, models.StatusFailed, submitted.Hash, submitted.EngineResult)
	if submitErr != nil {
		return result, submitErr
	}
	return result, ErrLedgerRejected.WithDetail(submitted.EngineResult)
}

// detach returns a context that keeps the caller's values but ignores its
// cancellation, bounded by settleTimeout.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// debitAndClaim takes total from the account with a version-checked update
// and writes the journal entry, the INITIATED record and the audit row in the
// same transaction. Losing the version race re-reads and re-checks.
func (s *PaymentService) debitAndClaim(ctx context.Context, account models.Account, total decimal.Decimal, record store.RecordInput, actor string) error {
	current := account
	for attempt := 1; attempt <= maxDebitAttempts; attempt++ {
		if err := RequireBalance("account", current.Balance, total); err != nil {
			return err
		}
		applied := false
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			applied = false
			rows, err := s.accounts.Debit(ctx, tx, current.ID, total, current.Version)
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil
			}
			applied = true
			if err := s.entries.InsertEntries(ctx, tx, []store.EntryInput{{
				ID:          uuid.NewString(),
				AccountID:   current.ID,
				Amount:      total.Neg(),
				Reference:   record.ID,
				Description: "custodial send debit",
			}}); err != nil {
				return err
			}
			if err := s.records.Create(ctx, tx, record); err != nil {
				return err
			}
			return s.audit.Log(ctx, tx, actor, "custodial_debit", "payment_record", record.ID, auditData(map[string]string{
				"account_id": current.ID,
				"amount":     money.Format(total),
			}))
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateRequest.WithDetail(derefString(record.RequestID))
			}
			return err
		}
		if applied {
			return nil
		}
		current, err = s.accounts.GetByID(ctx, current.ID)
		if err != nil {
			return err
		}
	}
	return ErrConcurrentUpdate
}

func (s *PaymentService) signAndSubmit(ctx context.Context, payment ledger.Payment) (ledger.SubmitResult, error) {
	blob, err := s.signer.Sign(ctx, payment)
	if err != nil {
		return ledger.SubmitResult{}, err
	}
	return s.submit(ctx, "custodial", blob)
}

func (s *PaymentService) submit(ctx context.Context, leg, blob string) (ledger.SubmitResult, error) {
	res, err := observeLedger("submit", func() (ledger.SubmitResult, error) {
		return s.ledger.Submit(ctx, blob)
	})
	if err != nil {
		ledgerSubmissions.WithLabelValues(leg, "error").Inc()
		return ledger.SubmitResult{}, err
	}
	ledgerSubmissions.WithLabelValues(leg, res.EngineResult).Inc()
	return res, nil
}

// settle moves a record out of INITIATED. A non-nil refund credits the
// account in the same transaction.
func (s *PaymentService) settle(ctx context.Context, recordID string, status models.Status, hash *string, engineResult, actor string, refund *store.EntryInput) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.records.Transition(ctx, tx, store.TransitionInput{
			ID:              recordID,
			Status:          status,
			TransactionHash: hash,
			EngineResult:    engineResult,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyProcessed.WithDetail(recordID)
		}
		if refund != nil {
			if _, err := s.accounts.Credit(ctx, tx, refund.AccountID, refund.Amount); err != nil {
				return err
			}
			if err := s.entries.InsertEntries(ctx, tx, []store.EntryInput{*refund}); err != nil {
				return err
			}
		}
		return s.audit.Log(ctx, tx, actor, "status_"+strings.ToLower(string(status)), "payment_record", recordID, auditData(map[string]string{
			"engine_result": engineResult,
			"hash":          derefString(hash),
		}))
	})
}

func (s *PaymentService) ensureUnusedRequest(ctx context.Context, requestID string) error {
	exists, err := s.records.ExistsByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateRequest.WithDetail(requestID)
	}
	return nil
}

func (s *PaymentService) publish(userID, requestID, recordID, reference string, paymentType models.PaymentType, status models.Status, hash, engineResult string) {
	if s.hub == nil || userID == "" {
		return
	}
	s.hub.BroadcastPayment(userID, websocket.PaymentUpdate{
		RequestID:       requestID,
		RecordID:        recordID,
		Reference:       reference,
		PaymentType:     string(paymentType),
		Status:          string(status),
		TransactionHash: hash,
		EngineResult:    engineResult,
	})
}

// finish records the outcome and converts unexpected failures to system errors.
func (s *PaymentService) finish(flow string, err error) error {
	recordOutcome(flow, err)
	if err == nil {
		return nil
	}
	svcErr := AsError(err)
	if svcErr.Kind == KindSystem {
		s.logger.Error("payment operation failed", "flow", flow, "error", err)
	} else {
		s.logger.Info("payment rejected", "flow", flow, "code", svcErr.Code, "detail", svcErr.Detail)
	}
	return SystemError(err)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := money.ToDrops(amount); err != nil {
		return ErrInvalidAmount
	}
	return nil
}

func validateDestination(address string) error {
	if strings.TrimSpace(address) == "" {
		return ErrMissingField.WithDetail("destination_address")
	}
	if err := validator.ValidateAddress(address); err != nil {
		return ErrInvalidField.WithDetail("destination_address")
	}
	return nil
}

func notFound(err error, sentinel *Error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func auditData(fields map[string]string) string {
	data, _ := json.Marshal(fields)
	return string(data)
}
