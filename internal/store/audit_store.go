package store

import "context"

// AuditStore appends payment lifecycle events. Rows are written inside the
// same transaction as the change they describe.
type AuditStore struct {
	db DB
}

type AuditEvent struct {
	ID         string `db:"id" json:"id"`
	Actor      string `db:"actor" json:"actor"`
	Action     string `db:"action" json:"action"`
	EntityType string `db:"entity_type" json:"entity_type"`
	EntityID   string `db:"entity_id" json:"entity_id"`
	Data       string `db:"data" json:"data"`
	CreatedAt  any    `db:"created_at" json:"created_at"`
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, actor, action, entityType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, data)
		VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5)
	`, actor, action, entityType, entityID, data)
	return err
}

func (s *AuditStore) ListByEntity(ctx context.Context, entityIDs []string) ([]AuditEvent, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	query, args, err := bind(`
		SELECT id, actor, action, entity_type, entity_id, data, created_at
		FROM audit_logs
		WHERE entity_id IN (?)
		ORDER BY created_at`, entityIDs)
	if err != nil {
		return nil, err
	}
	var rows []AuditEvent
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
