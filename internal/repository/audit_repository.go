package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-service/internal/domain"
)

// AuditRepository is the append-only sink for lead audit entries.
// Entries are never updated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByLead(ctx context.Context, leadID string) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates the repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO lead_audit (lead_id, action, actor_user_id, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.LeadID,
		entry.Action,
		entry.ActorID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByLead(ctx context.Context, leadID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, lead_id, action, actor_user_id, details, created_at
        FROM lead_audit WHERE lead_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var details []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.LeadID,
			&entry.Action,
			&entry.ActorID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
