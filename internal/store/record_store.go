package store

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// RecordStore persists one row per attempted ledger leg.
type RecordStore struct {
	db DB
}

type RecordInput struct {
	ID                 string
	AccountID          string
	DestinationAddress string
	Amount             decimal.Decimal
	PlatformFee        *decimal.Decimal
	NetworkFee         decimal.Decimal
	TransactionHash    *string
	PaymentReference   *string
	PaymentType        models.PaymentType
	RequestID          *string
	Status             models.Status
	EngineResult       *string
}

// TransitionInput moves a record out of INITIATED.
type TransitionInput struct {
	ID              string
	Status          models.Status
	TransactionHash *string
	EngineResult    string
}

const recordColumns = `id, account_id, destination_address, amount, platform_fee, network_fee,
		       transaction_hash, payment_reference, payment_type, request_id, status,
		       engine_result, created_at`

func NewRecordStore(db DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Create(ctx context.Context, tx Execer, input RecordInput) error {
	query := `
		INSERT INTO payment_records (id, account_id, destination_address, amount, platform_fee, network_fee,
		                             transaction_hash, payment_reference, payment_type, request_id, status, engine_result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.AccountID, input.DestinationAddress, input.Amount, input.PlatformFee, input.NetworkFee,
		input.TransactionHash, input.PaymentReference, string(input.PaymentType), input.RequestID, string(input.Status), input.EngineResult,
	)
	return err
}

func (s *RecordStore) ExistsByRequestID(ctx context.Context, requestID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM payment_records WHERE request_id = $1)`, requestID)
	return exists, err
}

func (s *RecordStore) ListByRequestID(ctx context.Context, requestID string) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+recordColumns+`
		FROM payment_records
		WHERE request_id = $1
		ORDER BY payment_type DESC, created_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RecordStore) GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error) {
	var row models.PaymentRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT `+recordColumns+`
		FROM payment_records
		WHERE payment_reference = $1
	`, reference)
	if err != nil {
		return models.PaymentRecord{}, err
	}
	return row, nil
}

// Transition only updates records still INITIATED; zero rows means another
// caller already settled it.
func (s *RecordStore) Transition(ctx context.Context, tx Execer, input TransitionInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_records
		SET status = $1, transaction_hash = $2, engine_result = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'INITIATED'
	`, string(input.Status), input.TransactionHash, input.EngineResult, input.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *RecordStore) ListByUser(ctx context.Context, userID string, status models.Status, limit, offset int) ([]models.PaymentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM payment_records
		WHERE account_id IN (SELECT id FROM accounts WHERE user_id = ?)`
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	query, args, err := bind(query, args...)
	if err != nil {
		return nil, err
	}
	var rows []models.PaymentRecord
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
