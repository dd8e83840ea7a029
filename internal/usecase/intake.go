package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remindmex/RemindMeBot/internal/domain"
	"github.com/remindmex/RemindMeBot/internal/timeparse"
)

// Intake turns inbound mentions into reminders. Each unique mention id
// produces at most one reminder and one reply, no matter how often the feed
// redelivers it.
type Intake struct {
	feed      domain.FeedSource
	replies   domain.ReplySender
	reminders domain.ReminderRepository
	processed domain.ProcessedEventRepository
	state     domain.StateRepository
	parser    *timeparse.Parser
	botHandle string
	now       func() time.Time
	log       *slog.Logger
}

func NewIntake(
	feed domain.FeedSource,
	replies domain.ReplySender,
	reminders domain.ReminderRepository,
	processed domain.ProcessedEventRepository,
	state domain.StateRepository,
	parser *timeparse.Parser,
	botHandle string,
	now func() time.Time,
	log *slog.Logger,
) *Intake {
	return &Intake{
		feed:      feed,
		replies:   replies,
		reminders: reminders,
		processed: processed,
		state:     state,
		parser:    parser,
		botHandle: botHandle,
		now:       now,
		log:       log,
	}
}

// Run handles one polling cycle: fetch everything past the cursor, oldest
// first, and process each mention to completion before touching the next.
// A fetch or store error aborts the cycle with the cursor untouched; the next
// tick refetches the same window and the processed-event guard absorbs the
// overlap.
func (i *Intake) Run(ctx context.Context) error {
	cursor, err := i.state.Get(ctx, domain.CursorKey)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}
	mentions, err := i.feed.FetchMentionsSince(ctx, cursor)
	if err != nil {
		return fmt.Errorf("fetch mentions: %w", err)
	}
	if len(mentions) > 0 {
		i.log.Info("fetched mentions", "count", len(mentions))
	}
	for _, m := range mentions {
		if err := i.handleMention(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (i *Intake) handleMention(ctx context.Context, m *domain.Mention) error {
	done, err := i.processed.IsProcessed(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("check processed %s: %w", m.ID, err)
	}
	if done {
		return nil
	}

	now := i.now()
	target, label, parseErr := i.parser.Parse(m.Text, now)
	if parseErr != nil {
		i.log.Info("could not parse mention", "mention_id", m.ID, "text", m.Text)
		if err := i.processed.MarkProcessed(ctx, m.ID); err != nil {
			return fmt.Errorf("mark processed %s: %w", m.ID, err)
		}
		if _, err := i.replies.Reply(ctx, m.ID, i.errorReply(m)); err != nil {
			i.log.Error("error reply failed", "mention_id", m.ID, "err", err)
		}
		return nil
	}

	reminder := &domain.Reminder{
		SourceEventID:   m.ID,
		ReplyTargetID:   m.ID,
		RequesterID:     m.AuthorID,
		RequesterHandle: m.AuthorHandle,
		OriginalText:    m.Text,
		DurationLabel:   label,
		RemindAt:        target,
		CreatedAt:       now,
		Status:          domain.StatusPending,
	}
	switch err := i.reminders.Create(ctx, reminder); {
	case err == nil:
		i.log.Info("created reminder",
			"mention_id", m.ID, "handle", m.AuthorHandle, "remind_at", target, "label", label)
	case errors.Is(err, domain.ErrReminderAlreadyExists):
		// a concurrent cycle inserted it first; finishing the bookkeeping
		// is still this cycle's job
		i.log.Warn("reminder already exists", "mention_id", m.ID)
	default:
		return fmt.Errorf("create reminder %s: %w", m.ID, err)
	}

	if err := i.processed.MarkProcessed(ctx, m.ID); err != nil {
		return fmt.Errorf("mark processed %s: %w", m.ID, err)
	}
	if _, err := i.replies.Reply(ctx, m.ID, i.confirmReply(m, target, now)); err != nil {
		i.log.Error("confirmation reply failed", "mention_id", m.ID, "err", err)
	}
	if err := i.state.Set(ctx, domain.CursorKey, m.ID); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

func (i *Intake) confirmReply(m *domain.Mention, target, now time.Time) string {
	return fmt.Sprintf("⏰ Got it, @%s! I'll remind you in %s (around %s).",
		m.AuthorHandle,
		timeparse.FormatDuration(target, now),
		target.UTC().Format("January 2, 2006 at 15:04 UTC"))
}

func (i *Intake) errorReply(m *domain.Mention) string {
	return fmt.Sprintf("Sorry @%s, I couldn't understand that time. Try something like:\n"+
		"• @%s 3 months\n"+
		"• @%s 2 weeks\n"+
		"• @%s 1 year",
		m.AuthorHandle, i.botHandle, i.botHandle, i.botHandle)
}
