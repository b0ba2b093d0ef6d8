package notifications

import "slices"

// Store holds the enqueued and posted notification lists and the group
// summary index. It is not safe for concurrent use.
type Store struct {
	enqueued  []*Record
	posted    []*Record
	byKey     map[string]*Record
	summaries map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byKey:     make(map[string]*Record),
		summaries: make(map[string]string),
	}
}

// AddEnqueued appends r to the enqueued list.
func (s *Store) AddEnqueued(r *Record) {
	s.enqueued = append(s.enqueued, r)
}

// RemoveEnqueued removes exactly r and reports whether it was present.
func (s *Store) RemoveEnqueued(r *Record) bool {
	i := slices.Index(s.enqueued, r)
	if i < 0 {
		return false
	}
	s.enqueued = slices.Delete(s.enqueued, i, i+1)
	return true
}

// IsEnqueued reports whether r is still waiting to be posted.
func (s *Store) IsEnqueued(r *Record) bool {
	return slices.Contains(s.enqueued, r)
}

// EnqueuedFor returns every enqueued record with key, oldest first.
func (s *Store) EnqueuedFor(key string) []*Record {
	var out []*Record
	for _, r := range s.enqueued {
		if r.key == key {
			out = append(out, r)
		}
	}
	return out
}

// LastEnqueued returns the newest enqueued record with key.
func (s *Store) LastEnqueued(key string) *Record {
	for i := len(s.enqueued) - 1; i >= 0; i-- {
		if s.enqueued[i].key == key {
			return s.enqueued[i]
		}
	}
	return nil
}

// AllEnqueued returns a copy of the enqueued list.
func (s *Store) AllEnqueued() []*Record { return slices.Clone(s.enqueued) }

// Find returns the posted record with key.
func (s *Store) Find(key string) *Record { return s.byKey[key] }

// Posted returns a snapshot of the posted list in rank order.
func (s *Store) Posted() []*Record { return slices.Clone(s.posted) }

// Sort reorders the posted list with fn and renumbers ranks.
func (s *Store) Sort(fn func([]*Record)) {
	fn(s.posted)
	for i, r := range s.posted {
		r.rank = i
	}
}

// PostedLen returns the number of posted records.
func (s *Store) PostedLen() int { return len(s.posted) }

// InsertOrReplace inserts r or replaces the posted record with the same key in place,
// returning the replaced record.
func (s *Store) InsertOrReplace(r *Record) *Record {
	old := s.byKey[r.key]
	s.byKey[r.key] = r
	if old != nil {
		if i := slices.Index(s.posted, old); i >= 0 {
			s.posted[i] = r
			return old
		}
	}
	s.posted = append(s.posted, r)
	return old
}

// Remove removes and returns the posted record with key.
func (s *Store) Remove(key string) *Record {
	r := s.byKey[key]
	if r == nil {
		return nil
	}
	delete(s.byKey, key)
	if i := slices.Index(s.posted, r); i >= 0 {
		s.posted = slices.Delete(s.posted, i, i+1)
	}
	return r
}

// Detach removes r from every list it is on and reports whether it was the
// posted record for its key.
func (s *Store) Detach(r *Record) bool {
	s.RemoveEnqueued(r)
	if s.byKey[r.key] != r {
		return false
	}
	s.Remove(r.key)
	return true
}

// FindPosted returns posted records matching fn in rank order.
func (s *Store) FindPosted(fn func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range s.posted {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}

// FindEnqueued returns enqueued records matching fn, oldest first.
func (s *Store) FindEnqueued(fn func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range s.enqueued {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}

// FindByGroup returns the posted records in the group identified by
// groupKey, summary included.
func (s *Store) FindByGroup(groupKey string) []*Record {
	return s.FindPosted(func(r *Record) bool {
		return r.IsGrouped() && r.GroupKey() == groupKey
	})
}

// Count counts distinct keys posted or enqueued by pkg for a user,
// ignoring exclude.
func (s *Store) Count(userID int, pkg, exclude string) int {
	seen := make(map[string]struct{})
	count := func(r *Record) {
		if r.identity.UserID == userID && r.identity.Package == pkg && r.key != exclude {
			seen[r.key] = struct{}{}
		}
	}
	for _, r := range s.posted {
		count(r)
	}
	for _, r := range s.enqueued {
		count(r)
	}
	return len(seen)
}

// Summary returns the key of the summary posted for groupKey.
func (s *Store) Summary(groupKey string) (string, bool) {
	k, ok := s.summaries[groupKey]
	return k, ok
}

// SetSummary records key as the summary of groupKey and returns the key it
// replaced, if any.
func (s *Store) SetSummary(groupKey, key string) (string, bool) {
	prev, ok := s.summaries[groupKey]
	s.summaries[groupKey] = key
	return prev, ok && prev != key
}

// RemoveSummary drops the summary mapping for groupKey if it points at key.
func (s *Store) RemoveSummary(groupKey, key string) bool {
	if s.summaries[groupKey] != key {
		return false
	}
	delete(s.summaries, groupKey)
	return true
}

// Summaries returns the number of tracked group summaries.
func (s *Store) Summaries() int { return len(s.summaries) }
