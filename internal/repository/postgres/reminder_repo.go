package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remindmex/RemindMeBot/internal/domain"
)

const uniqueViolation = "23505"

const reminderColumns = `id, source_event_id, reply_target_id, requester_id, requester_handle,
	original_text, duration_label, remind_at, created_at, status,
	sent_at, COALESCE(delivery_receipt_id, ''), COALESCE(last_error, ''), attempts`

type ReminderRepository struct {
	db *pgxpool.Pool
}

func NewReminderRepository(db *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{
		db: db,
	}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	query := `INSERT INTO reminders (source_event_id, reply_target_id, requester_id, requester_handle,
						original_text, duration_label, remind_at, created_at, status)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
						RETURNING id`
	err := r.db.QueryRow(ctx, query,
		reminder.SourceEventID, reminder.ReplyTargetID, reminder.RequesterID, reminder.RequesterHandle,
		reminder.OriginalText, reminder.DurationLabel, reminder.RemindAt, reminder.CreatedAt, domain.StatusPending,
	).Scan(&reminder.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrReminderAlreadyExists
		}
		return err
	}
	reminder.Status = domain.StatusPending
	return nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	reminder, err := scanReminder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
						WHERE status = $1 AND remind_at <= $2
						ORDER BY remind_at`
	rows, err := r.db.Query(ctx, query, domain.StatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := make([]*domain.Reminder, 0, 10)
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, reminder)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return due, nil
}

// MarkSent is conditional on the reminder still being pending, so two
// overlapping delivery runs can never both record a send.
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time, receiptID string) error {
	query := `UPDATE reminders SET status = $1, sent_at = $2, delivery_receipt_id = $3
						WHERE id = $4 AND status = $5`
	tag, err := r.db.Exec(ctx, query, domain.StatusSent, sentAt, receiptID, id, domain.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepository) RecordFailure(ctx context.Context, id int64, sendErr string) error {
	query := `UPDATE reminders SET last_error = $1, attempts = attempts + 1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, sendErr, id)
	return err
}

func (r *ReminderRepository) Stats(ctx context.Context) (domain.Stats, error) {
	query := `SELECT count(*),
						count(*) FILTER (WHERE status = $1),
						count(*) FILTER (WHERE status = $2)
						FROM reminders`
	var stats domain.Stats
	err := r.db.QueryRow(ctx, query, domain.StatusPending, domain.StatusSent).
		Scan(&stats.Total, &stats.Pending, &stats.Sent)
	if err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	reminder := &domain.Reminder{}
	err := row.Scan(
		&reminder.ID, &reminder.SourceEventID, &reminder.ReplyTargetID,
		&reminder.RequesterID, &reminder.RequesterHandle,
		&reminder.OriginalText, &reminder.DurationLabel,
		&reminder.RemindAt, &reminder.CreatedAt, &reminder.Status,
		&reminder.SentAt, &reminder.DeliveryReceiptID, &reminder.LastError, &reminder.Attempts,
	)
	if err != nil {
		return nil, err
	}
	return reminder, nil
}
