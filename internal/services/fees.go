package services

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/money"
)

// FeeQuote is the cost breakdown for one send. NetworkFee is per ledger leg.
type FeeQuote struct {
	Amount      decimal.Decimal
	PlatformFee decimal.Decimal
	NetworkFee  decimal.Decimal
	Legs        int
}

// SenderTotal is what a self-signing sender must hold: the amount, the
// platform fee and one network fee per leg.
func (q FeeQuote) SenderTotal() decimal.Decimal {
	return q.Amount.Add(q.PlatformFee).Add(q.NetworkFee.Mul(decimal.NewFromInt(int64(q.Legs))))
}

// CustodialDebit is what a custodial send takes from the user's stored
// balance. The platform absorbs the network fee.
func (q FeeQuote) CustodialDebit() decimal.Decimal {
	return q.Amount.Add(q.PlatformFee)
}

// PlatformTotal is what the platform address must hold on the ledger to
// execute a custodial send.
func (q FeeQuote) PlatformTotal() decimal.Decimal {
	return q.Amount.Add(q.PlatformFee).Add(q.NetworkFee)
}

// FeeCalculator quotes fees using the configured platform fee and the
// ledger's current base fee, read fresh on every call.
type FeeCalculator struct {
	ledger      LedgerGateway
	platformFee decimal.Decimal
}

func NewFeeCalculator(ledger LedgerGateway, platformFee decimal.Decimal) *FeeCalculator {
	return &FeeCalculator{ledger: ledger, platformFee: platformFee}
}

func (f *FeeCalculator) PlatformFee() decimal.Decimal {
	return f.platformFee
}

func (f *FeeCalculator) Quote(ctx context.Context, amount decimal.Decimal, legs int) (FeeQuote, error) {
	networkFee, err := observeLedger("fee", func() (decimal.Decimal, error) {
		return f.ledger.BaseFee(ctx)
	})
	if err != nil {
		return FeeQuote{}, err
	}
	return FeeQuote{
		Amount:      amount,
		PlatformFee: f.platformFee,
		NetworkFee:  networkFee,
		Legs:        legs,
	}, nil
}

// RequireBalance fails with ErrInsufficientBalance when balance < required.
func RequireBalance(party string, balance, required decimal.Decimal) error {
	if balance.LessThan(required) {
		return ErrInsufficientBalance.WithDetail(party + " needs " + money.Format(required) + ", has " + money.Format(balance))
	}
	return nil
}
