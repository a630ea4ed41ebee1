package services

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/ledger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/store"
	"ledgerpay/internal/wallet"
	"ledgerpay/internal/websocket"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, displayName string) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByDisplayName(ctx context.Context, q store.Getter, displayName string) (models.User, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, id, userID, address string) (int64, error)
	GetByAddress(ctx context.Context, q store.Getter, address string) (models.Account, error)
	GetByID(ctx context.Context, accountID string) (models.Account, error)
	GetPrimaryByUser(ctx context.Context, userID string) (models.Account, error)
	Debit(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal, version int64) (int64, error)
	Credit(ctx context.Context, tx store.Execer, accountID string, amount decimal.Decimal) (int64, error)
}

type EntryStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.EntryInput) error
}

type RecordStore interface {
	Create(ctx context.Context, tx store.Execer, input store.RecordInput) error
	ExistsByRequestID(ctx context.Context, requestID string) (bool, error)
	GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error)
	Transition(ctx context.Context, tx store.Execer, input store.TransitionInput) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actor, action, entityType, entityID, data string) error
}

// LedgerGateway is the subset of the ledger RPC the services use.
type LedgerGateway interface {
	AccountInfo(ctx context.Context, address string) (ledger.AccountInfo, error)
	BaseFee(ctx context.Context) (decimal.Decimal, error)
	Submit(ctx context.Context, signedBlob string) (ledger.SubmitResult, error)
}

// WalletGateway creates signing requests the user approves in their wallet.
type WalletGateway interface {
	CreateSigningRequest(ctx context.Context, payment ledger.Payment) (wallet.SigningRequest, error)
	GetSigningRequest(ctx context.Context, id string) (wallet.SignedPayload, error)
}

// Signer signs payments for the platform's custodial address.
type Signer interface {
	Address() string
	Sign(ctx context.Context, payment ledger.Payment) (string, error)
}

type PaymentHub interface {
	BroadcastPayment(userID string, update websocket.PaymentUpdate)
}
