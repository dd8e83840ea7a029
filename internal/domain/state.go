package domain

import "context"

// CursorKey is the bot_state key holding the id of the last mention that was
// fully processed. It bounds the next fetch window.
const CursorKey = "last_mention_id"

// ProcessedEventRepository records every mention id the intake has finished
// with, whether or not it produced a reminder.
type ProcessedEventRepository interface {
	// MarkProcessed is idempotent; inserting an already-recorded id is a no-op.
	MarkProcessed(ctx context.Context, eventID string) error
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// StateRepository is a small key/value store for bot bookkeeping.
type StateRepository interface {
	// Get returns "" for a key that was never set.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
