package domain

import (
	"context"
	"time"
)

// Mention is one inbound public mention of the bot, already flattened from
// whatever shape the feed API returns.
type Mention struct {
	ID            string
	Text          string
	AuthorID      string
	AuthorHandle  string
	CreatedAt     time.Time
	ReplyTargetID string // tweet the mention was replying to, if any
}

// FeedSource reads mentions from the platform. The feed may redeliver ids the
// bot has already seen; callers dedup through ProcessedEventRepository.
type FeedSource interface {
	// FetchMentionsSince returns mentions newer than sinceID, oldest first.
	// An empty sinceID means "from the beginning of the fetch window".
	FetchMentionsSince(ctx context.Context, sinceID string) ([]*Mention, error)
}

// ReplySender posts a reply to an event and returns the platform's id for the
// new post. Failures surface as errors, never as silent no-ops.
type ReplySender interface {
	Reply(ctx context.Context, targetEventID, text string) (receiptID string, err error)
}
