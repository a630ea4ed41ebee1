package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusCompleted Status = "COMPLETED"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusConfirmed || s == StatusFailed
}

type PaymentType string

const (
	PaymentTypeUser        PaymentType = "USER_PAYMENT"
	PaymentTypePlatformFee PaymentType = "PLATFORM_FEE"
)

type User struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Account links a user to one ledger address. Balance is the off-chain
// custodial balance; Version is bumped on every balance mutation.
type Account struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Address   string          `db:"address" json:"address"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Version   int64           `db:"version" json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PaymentRecord is one attempted ledger leg.
type PaymentRecord struct {
	ID                 string           `db:"id" json:"id"`
	AccountID          string           `db:"account_id" json:"account_id"`
	DestinationAddress string           `db:"destination_address" json:"destination_address"`
	Amount             decimal.Decimal  `db:"amount" json:"amount"`
	PlatformFee        *decimal.Decimal `db:"platform_fee" json:"platform_fee,omitempty"`
	NetworkFee         decimal.Decimal  `db:"network_fee" json:"network_fee"`
	TransactionHash    *string          `db:"transaction_hash" json:"transaction_hash,omitempty"`
	PaymentReference   *string          `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentType        PaymentType      `db:"payment_type" json:"payment_type"`
	RequestID          *string          `db:"request_id" json:"request_id,omitempty"`
	Status             Status           `db:"status" json:"status"`
	EngineResult       *string          `db:"engine_result" json:"engine_result,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
}
