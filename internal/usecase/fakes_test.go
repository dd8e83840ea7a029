package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/remindmex/RemindMeBot/internal/domain"
)

// memStore implements the reminder, processed-event, and state repositories
// in memory with the same contracts the postgres ones guarantee.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	reminders map[int64]*domain.Reminder
	bySource  map[string]int64
	processed map[string]bool
	state     map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		reminders: make(map[int64]*domain.Reminder),
		bySource:  make(map[string]int64),
		processed: make(map[string]bool),
		state:     make(map[string]string),
	}
}

func (s *memStore) Create(_ context.Context, reminder *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySource[reminder.SourceEventID]; ok {
		return domain.ErrReminderAlreadyExists
	}
	s.nextID++
	reminder.ID = s.nextID
	cp := *reminder
	s.reminders[cp.ID] = &cp
	s.bySource[cp.SourceEventID] = cp.ID
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return nil, domain.ErrReminderNotFound
	}
	cp := *reminder
	return &cp, nil
}

func (s *memStore) ListDue(_ context.Context, now time.Time) ([]*domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Reminder
	for _, reminder := range s.reminders {
		if reminder.Status == domain.StatusPending && !reminder.RemindAt.After(now) {
			cp := *reminder
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (s *memStore) MarkSent(_ context.Context, id int64, sentAt time.Time, receiptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok || reminder.Status != domain.StatusPending {
		return domain.ErrReminderNotFound
	}
	reminder.Status = domain.StatusSent
	reminder.SentAt = &sentAt
	reminder.DeliveryReceiptID = receiptID
	return nil
}

func (s *memStore) RecordFailure(_ context.Context, id int64, sendErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return domain.ErrReminderNotFound
	}
	reminder.LastError = sendErr
	reminder.Attempts++
	return nil
}

func (s *memStore) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := domain.Stats{Total: int64(len(s.reminders))}
	for _, reminder := range s.reminders {
		switch reminder.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusSent:
			stats.Sent++
		}
	}
	return stats, nil
}

func (s *memStore) MarkProcessed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = true
	return nil
}

func (s *memStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key], nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}

func (s *memStore) reminderBySource(sourceID string) *domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySource[sourceID]
	if !ok {
		return nil
	}
	cp := *s.reminders[id]
	return &cp
}

// fakeFeed serves a fixed mention list, honoring the since-id bound the real
// feed applies. Setting err makes the fetch fail.
type fakeFeed struct {
	mu       sync.Mutex
	mentions []*domain.Mention
	err      error
	calls    []string
}

func (f *fakeFeed) FetchMentionsSince(_ context.Context, sinceID string) ([]*domain.Mention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sinceID)
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Mention
	for _, m := range f.mentions {
		if sinceID == "" || m.ID > sinceID {
			out = append(out, m)
		}
	}
	return out, nil
}

type sentReply struct {
	target string
	text   string
}

// fakeReplies records outbound replies and can be told to fail for specific
// targets.
type fakeReplies struct {
	mu      sync.Mutex
	sent    []sentReply
	failFor map[string]error
}

func newFakeReplies() *fakeReplies {
	return &fakeReplies{failFor: make(map[string]error)}
}

func (f *fakeReplies) Reply(_ context.Context, targetEventID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[targetEventID]; ok {
		return "", err
	}
	f.sent = append(f.sent, sentReply{target: targetEventID, text: text})
	return fmt.Sprintf("receipt-%d", len(f.sent)), nil
}

func (f *fakeReplies) replies() []sentReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentReply(nil), f.sent...)
}
