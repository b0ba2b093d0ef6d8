package snooze

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/queue"
)

// Scheduler runs a task after a delay. *queue.Serial satisfies it.
type Scheduler interface {
	EnqueueAfter(d time.Duration, name string, fn queue.Task) queue.CancelFunc
}

// WakeFunc is called on the scheduler's goroutine when a duration snooze
// expires.
type WakeFunc func(ctx context.Context, key string)

type entry struct {
	record    *notifications.Record
	until     time.Time
	criterion string
	cancel    queue.CancelFunc
	seq       uint64
}

// Store holds snoozed records until they are reposted or canceled. It is
// not safe for concurrent use.
type Store struct {
	scheduler Scheduler
	wake      WakeFunc
	logger    *slog.Logger
	now       func() time.Time
	entries   map[string]*entry
	seq       uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store that schedules wake-ups on scheduler and reports
// them to wake.
func New(scheduler Scheduler, wake WakeFunc, opts ...Option) *Store {
	s := &Store{
		scheduler: scheduler,
		wake:      wake,
		logger:    logger.Discard(),
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) put(r *notifications.Record, e *entry) {
	if old, ok := s.entries[r.Key()]; ok && old.cancel != nil {
		old.cancel()
	}
	s.seq++
	e.record = r
	e.seq = s.seq
	s.entries[r.Key()] = e
}

// Snooze holds r for d.
func (s *Store) Snooze(r *notifications.Record, d time.Duration) {
	key := r.Key()
	e := &entry{until: s.now().Add(d)}
	s.put(r, e)
	e.cancel = s.scheduler.EnqueueAfter(d, "snooze-wake", func(ctx context.Context) {
		s.wake(ctx, key)
	})
	s.logger.Debug("notification snoozed", logger.NotificationKey(key), logger.Duration(d))
}

// SnoozeWithCriterion holds r until the criterion id triggers.
func (s *Store) SnoozeWithCriterion(r *notifications.Record, id string) {
	s.put(r, &entry{criterion: id})
	s.logger.Debug("notification snoozed", logger.NotificationKey(r.Key()), slog.String("criterion", id))
}

func (s *Store) remove(key string) *notifications.Record {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(s.entries, key)
	return e.record
}

// Repost removes and returns the record for key so it can be enqueued again.
func (s *Store) Repost(key string) *notifications.Record { return s.remove(key) }

// Cancel removes the snoozed notification with the given identity.
func (s *Store) Cancel(userID int, pkg, tag string, id int) *notifications.Record {
	return s.remove(notifications.Key(userID, pkg, id, tag))
}

// CancelAll removes every snoozed notification of pkg for a user.
func (s *Store) CancelAll(userID int, pkg string) []*notifications.Record {
	return s.removeWhere(func(e *entry) bool {
		return e.record.UserID() == userID && e.record.Package() == pkg
	})
}

// CancelUser removes every snoozed notification of a user.
func (s *Store) CancelUser(userID int) []*notifications.Record {
	return s.removeWhere(func(e *entry) bool { return e.record.UserID() == userID })
}

// RepostGroupSummary removes and returns the snoozed summary of groupKey.
func (s *Store) RepostGroupSummary(userID int, pkg, groupKey string) *notifications.Record {
	for key, e := range s.entries {
		r := e.record
		if r.UserID() == userID && r.Package() == pkg && r.IsGroupSummary() && r.GroupKey() == groupKey {
			return s.remove(key)
		}
	}
	return nil
}

// RepostCriterion removes and returns every record waiting on criterion id.
func (s *Store) RepostCriterion(id string) []*notifications.Record {
	return s.removeWhere(func(e *entry) bool { return e.criterion == id })
}

func (s *Store) removeWhere(fn func(*entry) bool) []*notifications.Record {
	var out []*notifications.Record
	for _, e := range s.sorted() {
		if fn(e) {
			out = append(out, s.remove(e.record.Key()))
		}
	}
	return out
}

// sorted returns entries in snooze order.
func (s *Store) sorted() []*entry {
	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Update replaces the snoozed record with the same key, keeping its wake-up.
func (s *Store) Update(r *notifications.Record) bool {
	e, ok := s.entries[r.Key()]
	if !ok {
		return false
	}
	e.record = r
	return true
}

// IsSnoozed reports whether key is snoozed.
func (s *Store) IsSnoozed(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Get returns the snoozed record for key.
func (s *Store) Get(key string) *notifications.Record {
	if e, ok := s.entries[key]; ok {
		return e.record
	}
	return nil
}

// Until returns when a duration snooze expires.
func (s *Store) Until(key string) (time.Time, bool) {
	e, ok := s.entries[key]
	if !ok || e.until.IsZero() {
		return time.Time{}, false
	}
	return e.until, true
}

// Snoozed returns the snoozed records of pkg for a user. An empty pkg
// matches every package.
func (s *Store) Snoozed(userID int, pkg string) []*notifications.Record {
	var out []*notifications.Record
	for _, e := range s.sorted() {
		if e.record.UserID() == userID && (pkg == "" || e.record.Package() == pkg) {
			out = append(out, e.record)
		}
	}
	return out
}

// All returns every snoozed record in snooze order.
func (s *Store) All() []*notifications.Record {
	out := make([]*notifications.Record, 0, len(s.entries))
	for _, e := range s.sorted() {
		out = append(out, e.record)
	}
	return out
}

// Len returns the number of snoozed records.
func (s *Store) Len() int { return len(s.entries) }

// Keys returns the snoozed keys, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
