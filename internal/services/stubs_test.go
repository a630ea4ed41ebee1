package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/db"
	"ledgerpay/internal/ledger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/store"
	"ledgerpay/internal/wallet"
	"ledgerpay/internal/websocket"
)

const (
	platformAddress  = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"
	senderAddress    = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	recipientAddress = "rN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// ctxTxRunner refuses to begin once ctx is done, as BeginTxx does.
type ctxTxRunner struct{}

func (ctxTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn           func(ctx context.Context, tx store.Execer, id, displayName string) error
	getByIDFn          func(ctx context.Context, userID string) (models.User, error)
	getByDisplayNameFn func(ctx context.Context, q store.Getter, displayName string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, displayName string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, displayName)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByDisplayName(ctx context.Context, q store.Getter, displayName string) (models.User, error) {
	if s.getByDisplayNameFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByDisplayNameFn(ctx, q, displayName)
}

type stubAccountStore struct {
	createFn           func(ctx context.Context, tx store.Execer, id, userID, address string) (int64, error)
	getByAddressFn     func(ctx context.Context, q store.Getter, address string) (models.Account, error)
	getByIDFn          func(ctx context.Context, accountID string) (models.Account, error)
	getPrimaryByUserFn func(ctx context.Context, userID string) (models.Account, error)
	debitFn            func(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal, version int64) (int64, error)
	creditFn           func(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal) (int64, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, id, userID, address string) (int64, error) {
	if s.createFn == nil {
		return 1, nil
	}
	return s.createFn(ctx, tx, id, userID, address)
}

func (s stubAccountStore) GetByAddress(ctx context.Context, q store.Getter, address string) (models.Account, error) {
	if s.getByAddressFn == nil {
		return models.Account{}, sql.ErrNoRows
	}
	return s.getByAddressFn(ctx, q, address)
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	if s.getByIDFn == nil {
		return models.Account{ID: accountID, UserID: "user-1"}, nil
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) GetPrimaryByUser(ctx context.Context, userID string) (models.Account, error) {
	if s.getPrimaryByUserFn == nil {
		return models.Account{}, sql.ErrNoRows
	}
	return s.getPrimaryByUserFn(ctx, userID)
}

func (s stubAccountStore) Debit(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal, version int64) (int64, error) {
	if s.debitFn == nil {
		return 1, nil
	}
	return s.debitFn(ctx, tx, accountID, amount, version)
}

func (s stubAccountStore) Credit(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal) (int64, error) {
	if s.creditFn == nil {
		return 1, nil
	}
	return s.creditFn(ctx, tx, accountID, amount)
}

type stubEntryStore struct {
	insertFn func(ctx context.Context, tx store.Execer, entries []store.EntryInput) error
}

func (s stubEntryStore) InsertEntries(ctx context.Context, tx store.Execer, entries []store.EntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entries)
}

type stubRecordStore struct {
	createFn         func(ctx context.Context, tx store.Execer, input store.RecordInput) error
	existsFn         func(ctx context.Context, requestID string) (bool, error)
	getByReferenceFn func(ctx context.Context, reference string) (models.PaymentRecord, error)
	transitionFn     func(ctx context.Context, tx store.Execer, input store.TransitionInput) (int64, error)
}

func (s stubRecordStore) Create(ctx context.Context, tx store.Execer, input store.RecordInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubRecordStore) ExistsByRequestID(ctx context.Context, requestID string) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, requestID)
}

func (s stubRecordStore) GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error) {
	if s.getByReferenceFn == nil {
		return models.PaymentRecord{}, sql.ErrNoRows
	}
	return s.getByReferenceFn(ctx, reference)
}

func (s stubRecordStore) Transition(ctx context.Context, tx store.Execer, input store.TransitionInput) (int64, error) {
	if s.transitionFn == nil {
		return 1, nil
	}
	return s.transitionFn(ctx, tx, input)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actor, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actor, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actor, action, entityType, entityID, data)
}

type stubLedger struct {
	accountInfoFn func(ctx context.Context, address string) (ledger.AccountInfo, error)
	baseFeeFn     func(ctx context.Context) (decimal.Decimal, error)
	submitFn      func(ctx context.Context, signedBlob string) (ledger.SubmitResult, error)
}

func (s stubLedger) AccountInfo(ctx context.Context, address string) (ledger.AccountInfo, error) {
	return s.accountInfoFn(ctx, address)
}

func (s stubLedger) BaseFee(ctx context.Context) (decimal.Decimal, error) {
	if s.baseFeeFn == nil {
		return dec("0.000012"), nil
	}
	return s.baseFeeFn(ctx)
}

func (s stubLedger) Submit(ctx context.Context, signedBlob string) (ledger.SubmitResult, error) {
	return s.submitFn(ctx, signedBlob)
}

type stubWallet struct {
	createFn func(ctx context.Context, payment ledger.Payment) (wallet.SigningRequest, error)
	getFn    func(ctx context.Context, id string) (wallet.SignedPayload, error)
}

func (s stubWallet) CreateSigningRequest(ctx context.Context, payment ledger.Payment) (wallet.SigningRequest, error) {
	return s.createFn(ctx, payment)
}

func (s stubWallet) GetSigningRequest(ctx context.Context, id string) (wallet.SignedPayload, error) {
	return s.getFn(ctx, id)
}

type stubSigner struct {
	address string
	signFn  func(ctx context.Context, payment ledger.Payment) (string, error)
}

func (s stubSigner) Address() string {
	return s.address
}

func (s stubSigner) Sign(ctx context.Context, payment ledger.Payment) (string, error) {
	if s.signFn == nil {
		return "SIGNED", nil
	}
	return s.signFn(ctx, payment)
}

type recordingHub struct {
	mu      sync.Mutex
	updates []websocket.PaymentUpdate
}

func (h *recordingHub) BroadcastPayment(userID string, update websocket.PaymentUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

func (h *recordingHub) statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.updates))
	for _, u := range h.updates {
		out = append(out, u.Status)
	}
	return out
}

type fixture struct {
	users    stubUserStore
	accounts stubAccountStore
	entries  stubEntryStore
	records  stubRecordStore
	audit    stubAuditStore
	ledger   stubLedger
	wallet   stubWallet
	signer   stubSigner
	hub      *recordingHub
	txRunner db.TxRunner
}

func newFixture() *fixture {
	return &fixture{
		signer:   stubSigner{address: platformAddress},
		hub:      &recordingHub{},
		txRunner: fakeTxRunner{},
	}
}

func (f *fixture) service() *PaymentService {
	cfg := PaymentConfig{PlatformAddress: platformAddress, PlatformFee: dec("0.2")}
	return NewPaymentService(cfg, f.txRunner, f.users, f.accounts, f.entries, f.records, f.audit,
		f.ledger, f.wallet, f.signer, f.hub, nil)
}
