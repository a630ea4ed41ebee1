package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
	"ledgerpay/internal/money"
	"ledgerpay/internal/store"
	"ledgerpay/internal/validator"
)

type DepositRequest struct {
	Address     string
	DisplayName string
	Amount      decimal.Decimal
	Reference   string
	Actor       string
}

// Deposit credits the custodial balance of the account linked to address,
// provisioning the account first if needed. It is the operator path for
// funding balances that custodial sends draw from.
func (s *PaymentService) Deposit(ctx context.Context, req DepositRequest) (models.Account, error) {
	req.Address = strings.TrimSpace(req.Address)
	if err := validator.ValidateAddress(req.Address); err != nil {
		return models.Account{}, ErrInvalidField.WithDetail("address")
	}
	if err := validateAmount(req.Amount); err != nil {
		return models.Account{}, err
	}
	if strings.TrimSpace(req.Reference) == "" {
		return models.Account{}, ErrMissingField.WithDetail("reference")
	}
	account, err := s.resolver.Resolve(ctx, req.Address, req.DisplayName)
	if err != nil {
		return models.Account{}, SystemError(err)
	}
	actor := req.Actor
	if actor == "" {
		actor = "operator"
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.accounts.Credit(ctx, tx, account.ID, req.Amount); err != nil {
			return err
		}
		if err := s.entries.InsertEntries(ctx, tx, []store.EntryInput{{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Amount:      req.Amount,
			Reference:   req.Reference,
			Description: "deposit",
		}}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, actor, "deposit", "account", account.ID, auditData(map[string]string{
			"amount":    money.Format(req.Amount),
			"reference": req.Reference,
		}))
	})
	if err != nil {
		s.logger.Error("deposit failed", "account_id", account.ID, "error", err)
		return models.Account{}, SystemError(err)
	}
	s.logger.Info("deposit applied", "account_id", account.ID, "amount", money.Format(req.Amount), "reference", req.Reference)
	return s.accounts.GetByID(ctx, account.ID)
}
