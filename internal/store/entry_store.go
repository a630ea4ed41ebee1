package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// EntryStore journals every custodial balance change so stored balances can
// be reconciled against the sum of their entries.
type EntryStore struct {
	db DB
}

type EntryInput struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

func NewEntryStore(db DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) InsertEntries(ctx context.Context, tx Execer, entries []EntryInput) error {
	query := `
		INSERT INTO balance_entries (id, account_id, amount, reference, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.ID, entry.AccountID, entry.Amount, entry.Reference, entry.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *EntryStore) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM balance_entries
		WHERE account_id = $1
	`, accountID)
	return sum, err
}
