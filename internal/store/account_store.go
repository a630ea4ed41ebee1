package store

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

type AccountStore struct {
	db DB
}

// AccountBalanceSummary compares the stored balance with the journal sum.
type AccountBalanceSummary struct {
	ID                string          `db:"id" json:"id"`
	Address           string          `db:"address" json:"address"`
	StoredBalance     decimal.Decimal `db:"stored_balance" json:"stored_balance"`
	CalculatedBalance decimal.Decimal `db:"calculated_balance" json:"calculated_balance"`
	Difference        decimal.Decimal `db:"difference" json:"difference"`
	CreatedAt         any             `db:"created_at" json:"created_at"`
}

const accountColumns = `id, user_id, address, balance, version, created_at`

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create inserts the account unless the address is already linked.
// It returns the number of rows inserted (0 or 1).
func (s *AccountStore) Create(ctx context.Context, tx Execer, id, userID, address string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, address, balance, version)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (address) DO NOTHING
	`, id, userID, address)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) GetByAddress(ctx context.Context, q Getter, address string) (models.Account, error) {
	var row models.Account
	err := q.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE address = $1`, address)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// GetPrimaryByUser returns the user's oldest account, which funds custodial sends.
func (s *AccountStore) GetPrimaryByUser(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at, id
		LIMIT 1
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByUser(ctx context.Context, userID string) ([]AccountBalanceSummary, error) {
	var rows []AccountBalanceSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id,
		       a.address,
		       a.balance AS stored_balance,
		       COALESCE(SUM(e.amount), 0) AS calculated_balance,
		       (a.balance - COALESCE(SUM(e.amount), 0)) AS difference,
		       a.created_at
		FROM accounts a
		LEFT JOIN balance_entries e ON e.account_id = a.id
		WHERE a.user_id = $1
		GROUP BY a.id, a.address, a.balance, a.created_at
		ORDER BY a.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Debit subtracts amount only if the row still has the expected version and
// enough balance. Zero rows affected means the caller lost the race or the
// balance is short.
func (s *AccountStore) Debit(ctx context.Context, tx Execer, accountID string, amount decimal.Decimal, version int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance - $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND balance >= $1
	`, amount, accountID, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Credit adds amount unconditionally. Used to reverse a debit.
func (s *AccountStore) Credit(ctx context.Context, tx Execer, accountID string, amount decimal.Decimal) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`, amount, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
