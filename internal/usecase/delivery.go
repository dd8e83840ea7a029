package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remindmex/RemindMeBot/internal/domain"
)

// Delivery scans for due reminders and posts the reply each one owes. A
// failed send leaves the reminder pending so the next cycle retries it; there
// is no retry cap.
type Delivery struct {
	replies   domain.ReplySender
	reminders domain.ReminderRepository
	now       func() time.Time
	log       *slog.Logger
}

func NewDelivery(
	replies domain.ReplySender,
	reminders domain.ReminderRepository,
	now func() time.Time,
	log *slog.Logger,
) *Delivery {
	return &Delivery{
		replies:   replies,
		reminders: reminders,
		now:       now,
		log:       log,
	}
}

// Run attempts every due reminder. One reminder failing never stops the rest
// of the batch.
func (d *Delivery) Run(ctx context.Context) error {
	due, err := d.reminders.ListDue(ctx, d.now())
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	d.log.Info("due reminders", "count", len(due))
	for _, reminder := range due {
		if err := d.send(ctx, reminder.ID); err != nil {
			d.log.Error("reminder delivery failed", "reminder_id", reminder.ID, "err", err)
		}
	}
	return nil
}

func (d *Delivery) send(ctx context.Context, id int64) error {
	// re-fetch right before acting: the scan result may be stale if another
	// run delivered this reminder in the meantime
	reminder, err := d.reminders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if reminder.Status != domain.StatusPending {
		return nil
	}

	receipt, err := d.replies.Reply(ctx, reminder.ReplyTargetID, reminderText(reminder))
	if err != nil {
		if recErr := d.reminders.RecordFailure(ctx, reminder.ID, err.Error()); recErr != nil {
			d.log.Error("record failure", "reminder_id", reminder.ID, "err", recErr)
		}
		return err
	}

	if err := d.reminders.MarkSent(ctx, reminder.ID, d.now(), receipt); err != nil {
		if errors.Is(err, domain.ErrReminderNotFound) {
			// lost the pending->sent race; the send is already accounted for
			return nil
		}
		return err
	}
	d.log.Info("sent reminder",
		"reminder_id", reminder.ID, "handle", reminder.RequesterHandle, "receipt_id", receipt)
	return nil
}

func reminderText(reminder *domain.Reminder) string {
	label := reminder.DurationLabel
	if label == "" {
		label = "a while"
	}
	return fmt.Sprintf("⏰ Hey @%s, your reminder is here! You asked me to remind you about this %s ago.",
		reminder.RequesterHandle, label)
}
