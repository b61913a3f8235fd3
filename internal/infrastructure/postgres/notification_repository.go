package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-core/negotiation-core/internal/domain/notification"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, notification_id, recipient_user_id, type, title, body, payload, status, retry_count, max_retries, last_error, is_read, read_at, expires_at, created_at, sent_at, delivered_at, failed_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	if err := row.Scan(&n.ID, &n.NotificationID, &n.RecipientUserID, &n.Type, &n.Title, &n.Body, &n.Payload, &n.Status, &n.RetryCount, &n.MaxRetries, &n.LastError, &n.IsRead, &n.ReadAt, &n.ExpiresAt, &n.CreatedAt, &n.SentAt, &n.DeliveredAt, &n.FailedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, recipient_user_id, type, title, body, payload, status, retry_count, max_retries, is_read, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, n.NotificationID, n.RecipientUserID, n.Type, n.Title, n.Body, n.Payload, n.Status, n.RetryCount, n.MaxRetries, n.IsRead, n.ExpiresAt, n.CreatedAt)
	return err
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE notification_id=$1`, notificationID)
	return scanNotification(row)
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_user_id=$1`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read=FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status=$1, retry_count=$2, last_error=$3, is_read=$4, read_at=$5, sent_at=$6, delivered_at=$7, failed_at=$8
		WHERE notification_id=$9
	`, n.Status, n.RetryCount, n.LastError, n.IsRead, n.ReadAt, n.SentAt, n.DeliveredAt, n.FailedAt, n.NotificationID)
	return err
}

func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status=$1 ORDER BY created_at LIMIT $2
	`, notification.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) ListRetryable(ctx context.Context, limit int) ([]*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status=$1 AND retry_count<max_retries ORDER BY failed_at LIMIT $2
	`, notification.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) ExpireNotifications(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status=$1
		WHERE status IN ($2,$3) AND expires_at IS NOT NULL AND expires_at<$4
	`, notification.StatusExpired, notification.StatusPending, notification.StatusFailed, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectNotifications(rows pgx.Rows) ([]*notification.Notification, error) {
	var notifications []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
