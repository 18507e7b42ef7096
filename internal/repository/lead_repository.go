package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-service/internal/domain"
)

// Guard failures for the compare-and-swap style write paths. The caller
// has already seen the lead, so zero rows affected means a concurrent
// writer won, not a missing row.
var (
	ErrLeadAlreadyAssigned = errors.New("lead already assigned")
	ErrStageConflict       = errors.New("progress stage changed concurrently")
)

// Leads with priority score at or above this count toward an officer's
// high-priority load.
const highPriorityThreshold = 80

// LeadFilter captures listing parameters. Zone and AssignedTo implement
// the role-scoped visibility for listings.
type LeadFilter struct {
	Zone        *string
	AssignedTo  *string
	Statuses    []domain.LeadStatus
	MinScore    *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// LeadRepository encapsulates lead persistence. AssignOfficer and
// AdvanceStage are single conditional updates: they carry the
// at-most-one-winner guarantees the assignment and progress paths rely on.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	GetByReference(ctx context.Context, reference string) (*domain.Lead, error)
	ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
	UpdateFields(ctx context.Context, lead *domain.Lead) error
	UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error
	AssignOfficer(ctx context.Context, leadID, officerID, zone, region string, status domain.LeadStatus) error
	AdvanceStage(ctx context.Context, leadID string, fromStage, toStage int, status domain.LeadStatus, progress map[int]domain.StageDetail) error
	CountActiveByOfficer(ctx context.Context, officerID string) (int, error)
	CountHighPriorityActiveByOfficer(ctx context.Context, officerID string) (int, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates the repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

const leadColumns = `id, reference, name, email, phone, zone, region, product_type, occupation,
               credit_score, salary, age, loan_amount, status, progress_stage, progress,
               priority_score, insight, assigned_officer_id, created_by, created_at, updated_at`

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	progress, err := marshalProgress(lead.Progress)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO leads (reference, name, email, phone, zone, region, product_type, occupation,
                           credit_score, salary, age, loan_amount, status, progress_stage, progress,
                           priority_score, insight, assigned_officer_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lead.Reference,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Zone,
		lead.Region,
		lead.ProductType,
		lead.Occupation,
		lead.CreditScore,
		lead.Salary,
		lead.Age,
		lead.LoanAmount,
		lead.Status,
		lead.ProgressStage,
		progress,
		lead.PriorityScore,
		lead.Insight,
		lead.AssignedTo,
		lead.CreatedBy,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	return r.fetchSingle(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, id)
}

func (r *leadRepository) GetByReference(ctx context.Context, reference string) (*domain.Lead, error) {
	return r.fetchSingle(ctx, `SELECT `+leadColumns+` FROM leads WHERE reference=$1`, reference)
}

func (r *leadRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Lead, error) {
	var lead domain.Lead
	var progress []byte
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&lead.ID,
		&lead.Reference,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Zone,
		&lead.Region,
		&lead.ProductType,
		&lead.Occupation,
		&lead.CreditScore,
		&lead.Salary,
		&lead.Age,
		&lead.LoanAmount,
		&lead.Status,
		&lead.ProgressStage,
		&progress,
		&lead.PriorityScore,
		&lead.Insight,
		&lead.AssignedTo,
		&lead.CreatedBy,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalProgress(progress, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Zone != nil {
		args = append(args, *filter.Zone)
		clauses = append(clauses, fmt.Sprintf("zone=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_officer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		clauses = append(clauses, fmt.Sprintf("priority_score>=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at>=$%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at<=$%d", len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY priority_score DESC, created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		var progress []byte
		if err := rows.Scan(
			&lead.ID,
			&lead.Reference,
			&lead.Name,
			&lead.Email,
			&lead.Phone,
			&lead.Zone,
			&lead.Region,
			&lead.ProductType,
			&lead.Occupation,
			&lead.CreditScore,
			&lead.Salary,
			&lead.Age,
			&lead.LoanAmount,
			&lead.Status,
			&lead.ProgressStage,
			&progress,
			&lead.PriorityScore,
			&lead.Insight,
			&lead.AssignedTo,
			&lead.CreatedBy,
			&lead.CreatedAt,
			&lead.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalProgress(progress, &lead); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateFields persists the mutable descriptive fields of a lead.
// Workflow columns (status, stage, assignment) have dedicated guarded paths.
func (r *leadRepository) UpdateFields(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE leads SET name=$1, email=$2, phone=$3, product_type=$4, occupation=$5,
            credit_score=$6, salary=$7, age=$8, loan_amount=$9, priority_score=$10, insight=$11,
            updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.ProductType,
		lead.Occupation,
		lead.CreditScore,
		lead.Salary,
		lead.Age,
		lead.LoanAmount,
		lead.PriorityScore,
		lead.Insight,
		lead.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE leads SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AssignOfficer binds an officer to a still-unassigned lead. Concurrent
// assignments race on the WHERE clause and exactly one wins.
func (r *leadRepository) AssignOfficer(ctx context.Context, leadID, officerID, zone, region string, status domain.LeadStatus) error {
	const query = `
        UPDATE leads SET assigned_officer_id=$1, zone=$2, region=$3, status=$4, updated_at=NOW()
        WHERE id=$5 AND assigned_officer_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, officerID, zone, region, status, leadID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeadAlreadyAssigned
	}
	return nil
}

// AdvanceStage moves the stage forward only if the lead is still at
// fromStage, serializing concurrent advances per lead.
func (r *leadRepository) AdvanceStage(ctx context.Context, leadID string, fromStage, toStage int, status domain.LeadStatus, progress map[int]domain.StageDetail) error {
	encoded, err := marshalProgress(progress)
	if err != nil {
		return err
	}
	const query = `
        UPDATE leads SET progress_stage=$1, progress=$2, status=$3, updated_at=NOW()
        WHERE id=$4 AND progress_stage=$5`
	cmd, err := r.pool.Exec(ctx, query, toStage, encoded, status, leadID, fromStage)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStageConflict
	}
	return nil
}

func (r *leadRepository) CountActiveByOfficer(ctx context.Context, officerID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM leads
        WHERE assigned_officer_id=$1 AND status NOT IN ($2,$3)`
	var count int
	err := r.pool.QueryRow(ctx, query, officerID, domain.LeadStatusCompleted, domain.LeadStatusRejected).Scan(&count)
	return count, err
}

func (r *leadRepository) CountHighPriorityActiveByOfficer(ctx context.Context, officerID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM leads
        WHERE assigned_officer_id=$1 AND status NOT IN ($2,$3) AND priority_score>=$4`
	var count int
	err := r.pool.QueryRow(ctx, query, officerID, domain.LeadStatusCompleted, domain.LeadStatusRejected, highPriorityThreshold).Scan(&count)
	return count, err
}

func marshalProgress(progress map[int]domain.StageDetail) ([]byte, error) {
	if progress == nil {
		progress = map[int]domain.StageDetail{}
	}
	return json.Marshal(progress)
}

func unmarshalProgress(raw []byte, lead *domain.Lead) error {
	lead.Progress = map[int]domain.StageDetail{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &lead.Progress)
}
