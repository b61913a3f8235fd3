package postgres

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/dispute"
)

// DisputeRepository implements dispute.Repository.
type DisputeRepository struct {
	pool *pgxpool.Pool
}

func NewDisputeRepository(pool *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{pool: pool}
}

const disputeColumns = `id, dispute_id, booking_id, status, dispute_type, title, description, requested_resolution, filed_by_user_id, filed_by_role, assigned_to, message_count, evidence_count, resolution_notes, resolved_by, resolved_at, created_at, updated_at`

func scanDispute(row pgx.Row) (*dispute.Dispute, error) {
	var d dispute.Dispute
	if err := row.Scan(&d.ID, &d.DisputeID, &d.BookingID, &d.Status, &d.DisputeType, &d.Title, &d.Description, &d.RequestedResolution, &d.FiledByUserID, &d.FiledByRole, &d.AssignedTo, &d.MessageCount, &d.EvidenceCount, &d.ResolutionNotes, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO disputes (dispute_id, booking_id, status, dispute_type, title, description, requested_resolution, filed_by_user_id, filed_by_role, assigned_to, message_count, evidence_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, d.DisputeID, d.BookingID, d.Status, d.DisputeType, d.Title, d.Description, d.RequestedResolution, d.FiledByUserID, d.FiledByRole, d.AssignedTo, d.MessageCount, d.EvidenceCount, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE dispute_id=$1`, disputeID)
	return scanDispute(row)
}

func (r *DisputeRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*dispute.Dispute, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func (r *DisputeRepository) List(ctx context.Context, status *dispute.Status, limit, offset int) ([]*dispute.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status=$1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDisputes(rows)
}

func collectDisputes(rows pgx.Rows) ([]*dispute.Dispute, error) {
	var disputes []*dispute.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE disputes SET status=$1, assigned_to=$2, resolution_notes=$3, resolved_by=$4, resolved_at=$5, updated_at=$6
		WHERE dispute_id=$7
	`, d.Status, d.AssignedTo, d.ResolutionNotes, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt, d.DisputeID)
	return err
}

func (r *DisputeRepository) AppendMessage(ctx context.Context, m *dispute.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dispute_messages (message_id, dispute_id, sender_user_id, sender_role, body, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.MessageID, m.DisputeID, m.SenderUserID, m.SenderRole, m.Body, m.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE disputes SET message_count=message_count+1, updated_at=$1 WHERE dispute_id=$2
	`, m.CreatedAt, m.DisputeID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *DisputeRepository) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]*dispute.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, dispute_id, sender_user_id, sender_role, body, created_at
		FROM dispute_messages WHERE dispute_id=$1 ORDER BY created_at, id
	`, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []*dispute.Message
	for rows.Next() {
		var m dispute.Message
		if err := rows.Scan(&m.ID, &m.MessageID, &m.DisputeID, &m.SenderUserID, &m.SenderRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (r *DisputeRepository) AppendEvidence(ctx context.Context, e *dispute.Evidence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dispute_evidence (evidence_id, dispute_id, uploaded_by_user_id, evidence_type, file_ref, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.EvidenceID, e.DisputeID, e.UploadedByUserID, e.EvidenceType, e.FileRef, e.Description, e.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE disputes SET evidence_count=evidence_count+1, updated_at=$1 WHERE dispute_id=$2
	`, e.CreatedAt, e.DisputeID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *DisputeRepository) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]*dispute.Evidence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, evidence_id, dispute_id, uploaded_by_user_id, evidence_type, file_ref, description, created_at
		FROM dispute_evidence WHERE dispute_id=$1 ORDER BY created_at, id
	`, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var evidence []*dispute.Evidence
	for rows.Next() {
		var e dispute.Evidence
		if err := rows.Scan(&e.ID, &e.EvidenceID, &e.DisputeID, &e.UploadedByUserID, &e.EvidenceType, &e.FileRef, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		evidence = append(evidence, &e)
	}
	return evidence, rows.Err()
}
