package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledgerpay/internal/db"
	"ledgerpay/internal/models"
)

const maxResolveAttempts = 3

var errAddressTaken = errors.New("address linked concurrently")

// AccountResolver maps a ledger address to a local account, creating the
// user and account on first sight.
type AccountResolver struct {
	txRunner db.TxRunner
	users    UserStore
	accounts AccountStore
}

func NewAccountResolver(txRunner db.TxRunner, users UserStore, accounts AccountStore) *AccountResolver {
	return &AccountResolver{txRunner: txRunner, users: users, accounts: accounts}
}

// Resolve returns the account for address. When none exists it links the
// address to the user whose display name equals hint, or to a new user with
// a generated display name. Repeated calls return the same account.
func (r *AccountResolver) Resolve(ctx context.Context, address, hint string) (models.Account, error) {
	hint = strings.TrimSpace(hint)
	var lastErr error
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		var account models.Account
		err := r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			existing, err := r.accounts.GetByAddress(ctx, tx, address)
			if err == nil {
				account = existing
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			userID, err := r.ownerFor(ctx, tx, hint)
			if err != nil {
				return err
			}
			inserted, err := r.accounts.Create(ctx, tx, uuid.NewString(), userID, address)
			if err != nil {
				return err
			}
			if inserted == 0 {
				return errAddressTaken
			}
			account, err = r.accounts.GetByAddress(ctx, tx, address)
			return err
		})
		switch {
		case err == nil:
			return account, nil
		case errors.Is(err, errAddressTaken), db.IsUniqueViolation(err):
			lastErr = err
			continue
		default:
			return models.Account{}, err
		}
	}
	return models.Account{}, fmt.Errorf("resolve %s: %w", address, lastErr)
}

func (r *AccountResolver) ownerFor(ctx context.Context, tx *sqlx.Tx, hint string) (string, error) {
	if hint != "" {
		user, err := r.users.GetByDisplayName(ctx, tx, hint)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}
	userID := uuid.NewString()
	if err := r.users.Create(ctx, tx, userID, generatedDisplayName()); err != nil {
		return "", err
	}
	return userID, nil
}

// generatedDisplayName is user- plus 8 hex digits. A clash with an existing
// name surfaces as a unique violation and the resolution is retried.
func generatedDisplayName() string {
	return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
