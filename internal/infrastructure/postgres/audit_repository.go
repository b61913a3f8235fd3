package postgres

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/audit"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

// AuditRepository implements audit.Repository. Rows are append-only;
// there is no update or delete path.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

const auditColumns = `id, audit_id, target_type, target_id, action, actor, actor_role, details, risk_level, signature, created_at`

func scanAuditLog(row pgx.Row) (*audit.AuditLog, error) {
	var l audit.AuditLog
	if err := row.Scan(&l.ID, &l.AuditID, &l.TargetType, &l.TargetID, &l.Action, &l.Actor, &l.ActorRole, &l.Details, &l.RiskLevel, &l.Signature, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *AuditRepository) Create(ctx context.Context, log *audit.AuditLog) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (audit_id, target_type, target_id, action, actor, actor_role, details, risk_level, signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, log.AuditID, log.TargetType, log.TargetID, log.Action, log.Actor, log.ActorRole, log.Details, log.RiskLevel, log.Signature, log.CreatedAt).Scan(&log.ID)
}

func (r *AuditRepository) GetByID(ctx context.Context, auditID uuid.UUID) (*audit.AuditLog, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE audit_id=$1`, auditID)
	return scanAuditLog(row)
}

func (r *AuditRepository) GetByTarget(ctx context.Context, targetType effect.TargetType, targetID string) ([]*audit.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_logs
		WHERE target_type=$1 AND target_id=$2 ORDER BY created_at DESC, id DESC
	`, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditLogs(rows)
}

// Query pages newest-first with a keyset cursor over (created_at, id).
func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter, cursor *audit.Cursor, limit int) ([]*audit.AuditLog, *audit.Cursor, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	args := []interface{}{}
	clauses := []string{}

	addClause := func(clause string, value interface{}) {
		clauses = append(clauses, clause+`$`+strconv.Itoa(len(args)+1))
		args = append(args, value)
	}
	if filter.TargetType != nil {
		addClause(`target_type=`, *filter.TargetType)
	}
	if filter.TargetID != nil {
		addClause(`target_id=`, *filter.TargetID)
	}
	if filter.Action != nil {
		addClause(`action=`, *filter.Action)
	}
	if filter.Actor != nil {
		addClause(`actor=`, *filter.Actor)
	}
	if filter.RiskLevel != nil {
		addClause(`risk_level=`, *filter.RiskLevel)
	}
	if filter.StartTime != nil {
		addClause(`created_at>=`, *filter.StartTime)
	}
	if filter.EndTime != nil {
		addClause(`created_at<=`, *filter.EndTime)
	}
	if cursor != nil {
		clauses = append(clauses, `(created_at, id) < ($`+strconv.Itoa(len(args)+1)+`, $`+strconv.Itoa(len(args)+2)+`)`)
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	for i, c := range clauses {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	logs, err := collectAuditLogs(rows)
	if err != nil {
		return nil, nil, err
	}

	var next *audit.Cursor
	if len(logs) > limit {
		logs = logs[:limit]
		last := logs[len(logs)-1]
		next = &audit.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return logs, next, nil
}

func collectAuditLogs(rows pgx.Rows) ([]*audit.AuditLog, error) {
	var logs []*audit.AuditLog
	for rows.Next() {
		l, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
