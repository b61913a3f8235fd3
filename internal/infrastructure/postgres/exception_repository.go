package postgres

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/exception"
)

// ExceptionRepository implements exception.Repository.
type ExceptionRepository struct {
	pool *pgxpool.Pool
}

func NewExceptionRepository(pool *pgxpool.Pool) *ExceptionRepository {
	return &ExceptionRepository{pool: pool}
}

const exceptionColumns = `id, exception_id, title, exception_type, description, status, priority, booking_id, incident_id, assigned_to, metadata, resolution_notes, resolved_by, resolved_at, created_at, updated_at`

func scanException(row pgx.Row) (*exception.Exception, error) {
	var e exception.Exception
	if err := row.Scan(&e.ID, &e.ExceptionID, &e.Title, &e.ExceptionType, &e.Description, &e.Status, &e.Priority, &e.BookingID, &e.IncidentID, &e.AssignedTo, &e.Metadata, &e.ResolutionNotes, &e.ResolvedBy, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExceptionRepository) Create(ctx context.Context, e *exception.Exception) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO exceptions (exception_id, title, exception_type, description, status, priority, booking_id, incident_id, assigned_to, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, e.ExceptionID, e.Title, e.ExceptionType, e.Description, e.Status, e.Priority, e.BookingID, e.IncidentID, e.AssignedTo, e.Metadata, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *ExceptionRepository) GetByID(ctx context.Context, exceptionID uuid.UUID) (*exception.Exception, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM exceptions WHERE exception_id=$1`, exceptionID)
	return scanException(row)
}

func (r *ExceptionRepository) List(ctx context.Context, status *exception.Status, priority *exception.Priority, limit, offset int) ([]*exception.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM exceptions`
	args := []interface{}{}
	clauses := []string{}
	if status != nil {
		clauses = append(clauses, `status=$`+strconv.Itoa(len(args)+1))
		args = append(args, *status)
	}
	if priority != nil {
		clauses = append(clauses, `priority=$`+strconv.Itoa(len(args)+1))
		args = append(args, *priority)
	}
	for i, c := range clauses {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func (r *ExceptionRepository) ListOpen(ctx context.Context, limit int) ([]*exception.Exception, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+exceptionColumns+` FROM exceptions
		WHERE status<>$1 ORDER BY created_at LIMIT $2
	`, exception.StatusResolved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func collectExceptions(rows pgx.Rows) ([]*exception.Exception, error) {
	var exceptions []*exception.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

func (r *ExceptionRepository) Update(ctx context.Context, e *exception.Exception) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE exceptions SET status=$1, priority=$2, assigned_to=$3, metadata=$4, resolution_notes=$5, resolved_by=$6, resolved_at=$7, updated_at=$8
		WHERE exception_id=$9
	`, e.Status, e.Priority, e.AssignedTo, e.Metadata, e.ResolutionNotes, e.ResolvedBy, e.ResolvedAt, e.UpdatedAt, e.ExceptionID)
	return err
}
