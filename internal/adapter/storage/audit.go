package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// AuditRepository appends audit entries. The table is append-only: nothing
// here updates or deletes.
type AuditRepository struct {
	Db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{Db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, actor_id, action, transaction_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.Db.Exec(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.TransactionID, detail, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
