package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// NotificationFilter narrows the outbound notification listing.
type NotificationFilter struct {
	UserID     *string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository persists outbound notification records. The external
// delivery collaborator owns transmission and read state; this engine only
// appends and lists.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (type, title, message, link, ref_id, user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, is_read, created_at`
	return r.pool.QueryRow(ctx, query,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Link,
		notification.RefID,
		notification.UserID,
	).Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt)
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error) {
	base := `SELECT id, type, title, message, link, ref_id, user_id, is_read, created_at
             FROM notifications`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		// Broadcast rows (NULL user_id) are visible to every recipient.
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("(user_id=$%d OR user_id IS NULL)", len(args)))
	}
	if filter.UnreadOnly {
		clauses = append(clauses, "is_read=false")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&notification.Link,
			&notification.RefID,
			&notification.UserID,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}
