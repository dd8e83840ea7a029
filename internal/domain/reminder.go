package domain

import (
	"context"
	"errors"
	"time"
)

type ReminderStatus string

const (
	StatusPending ReminderStatus = "pending"
	StatusSent    ReminderStatus = "sent"
	StatusFailed  ReminderStatus = "failed"
)

var (
	ErrReminderAlreadyExists = errors.New("reminder for this mention already exists")
	ErrReminderNotFound      = errors.New("reminder not found")
)

// Reminder is one accepted request: a single reply owed to a user at RemindAt.
// SourceEventID is the mention that created it and doubles as the dedup key;
// inserting a second row with the same id must fail at the store.
type Reminder struct {
	ID              int64
	SourceEventID   string
	ReplyTargetID   string
	RequesterID     string
	RequesterHandle string
	OriginalText    string
	DurationLabel   string
	RemindAt        time.Time
	CreatedAt       time.Time
	Status          ReminderStatus

	// Delivery outcome. SentAt and DeliveryReceiptID are set only on a
	// successful send; LastError holds the most recent send failure.
	SentAt            *time.Time
	DeliveryReceiptID string
	LastError         string
	Attempts          int
}

// Stats are the aggregate counts shown on the status surface.
type Stats struct {
	Total   int64 `json:"total_reminders"`
	Pending int64 `json:"pending_reminders"`
	Sent    int64 `json:"sent_reminders"`
}

type ReminderRepository interface {
	// Create inserts the reminder and fills in its id. A duplicate
	// SourceEventID returns ErrReminderAlreadyExists with no side effects.
	Create(ctx context.Context, reminder *Reminder) error
	GetByID(ctx context.Context, id int64) (*Reminder, error)
	// ListDue returns pending reminders with RemindAt <= now, oldest first.
	ListDue(ctx context.Context, now time.Time) ([]*Reminder, error)
	// MarkSent transitions pending -> sent. If the reminder is no longer
	// pending it returns ErrReminderNotFound; callers treat that as a
	// concurrent delivery having won, not as a failure.
	MarkSent(ctx context.Context, id int64, sentAt time.Time, receiptID string) error
	// RecordFailure stores the send error and bumps the attempt counter,
	// leaving the reminder pending for the next cycle.
	RecordFailure(ctx context.Context, id int64, sendErr string) error
	Stats(ctx context.Context) (Stats, error)
}
