// Package memory is the single-process session store. Sessions live in a map
// indexed into an LRU list; idle sessions expire after the TTL and the least
// recently used session is evicted once the cap is reached.
package memory

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// Eviction reasons passed to the eviction hook.
const (
	ReasonTTL      = "ttl"
	ReasonCapacity = "capacity"
)

// EvictFunc is called, outside the store lock, for each evicted session.
type EvictFunc func(s domain.Session, reason string)

type entry struct {
	session    domain.Session
	lastAccess time.Time
}

// Store implements domain.SessionStore in memory.
type Store struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List // front is most recently used
	ttl     time.Duration
	max     int
	now     func() time.Time
	onEvict EvictFunc
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle lifetime. Zero disables expiry.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// WithMaxSessions caps the number of sessions. Zero means unbounded.
func WithMaxSessions(n int) Option { return func(s *Store) { s.max = n } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithEvictionHook registers fn to observe evictions.
func WithEvictionHook(fn EvictFunc) Option { return func(s *Store) { s.onEvict = fn } }

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ domain.SessionStore = (*Store)(nil)

type evicted struct {
	session domain.Session
	reason  string
}

func (s *Store) notify(ev []evicted) {
	if s.onEvict == nil {
		return
	}
	for _, e := range ev {
		s.onEvict(e.session, e.reason)
	}
}

// Create stores a new session. An existing live id is a conflict.
func (s *Store) Create(_ domain.Context, sess domain.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("op=memory.create: %w: empty id", domain.ErrInvalidArgument)
	}
	var ev []evicted
	s.mu.Lock()
	now := s.now()
	if el, ok := s.items[sess.ID]; ok {
		if !s.expiredLocked(el, now) {
			s.mu.Unlock()
			return fmt.Errorf("op=memory.create id=%s: %w", sess.ID, domain.ErrConflict)
		}
		ev = append(ev, s.removeLocked(el, ReasonTTL))
	}
	if sess.Status == "" {
		sess.Status = domain.SessionActive
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastUpdated.IsZero() {
		sess.LastUpdated = now
	}
	s.items[sess.ID] = s.lru.PushFront(&entry{session: sess.Clone(), lastAccess: now})
	for s.max > 0 && s.lru.Len() > s.max {
		ev = append(ev, s.removeLocked(s.lru.Back(), ReasonCapacity))
	}
	s.mu.Unlock()
	s.notify(ev)
	return nil
}

// Get returns a deep copy of the session. Reading counts as activity.
func (s *Store) Get(_ domain.Context, id string) (domain.Session, error) {
	var out domain.Session
	err := s.with(id, "get", func(e *entry) error {
		out = e.session.Clone()
		return nil
	})
	return out, err
}

// AddMessage appends m to the transcript.
func (s *Store) AddMessage(_ domain.Context, id string, m domain.Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("op=memory.add_message: %w: role %q", domain.ErrInvalidArgument, m.Role)
	}
	return s.with(id, "add_message", func(e *entry) error {
		now := s.now()
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		e.session.Messages = append(e.session.Messages, m)
		e.session.LastUpdated = now
		return nil
	})
}

// UpdateExtractedData merges partial into the stored profile.
func (s *Store) UpdateExtractedData(_ domain.Context, id string, partial domain.ExtractedData) error {
	return s.with(id, "update_extracted", func(e *entry) error {
		e.session.ExtractedData = e.session.ExtractedData.Merge(partial)
		e.session.LastUpdated = s.now()
		return nil
	})
}

// SetStatus moves the session forward in its lifecycle.
func (s *Store) SetStatus(_ domain.Context, id string, status domain.SessionStatus) error {
	return s.with(id, "set_status", func(e *entry) error {
		if !e.session.Status.CanTransition(status) {
			return fmt.Errorf("op=memory.set_status id=%s %s->%s: %w", id, e.session.Status, status, domain.ErrConflict)
		}
		e.session.Status = status
		e.session.LastUpdated = s.now()
		return nil
	})
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s *Store) Delete(_ domain.Context, id string) error {
	s.mu.Lock()
	if el, ok := s.items[id]; ok {
		s.lru.Remove(el)
		delete(s.items, id)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of sessions held, expired or not.
func (s *Store) Len(_ domain.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len(), nil
}

// with runs fn on a live entry and marks it most recently used. Expired
// entries are dropped and reported as not found.
func (s *Store) with(id, op string, fn func(*entry) error) error {
	var ev []evicted
	s.mu.Lock()
	el, ok := s.items[id]
	if ok && s.expiredLocked(el, s.now()) {
		ev = append(ev, s.removeLocked(el, ReasonTTL))
		ok = false
	}
	if !ok {
		s.mu.Unlock()
		s.notify(ev)
		return fmt.Errorf("op=memory.%s id=%s: %w", op, id, domain.ErrNotFound)
	}
	e := el.Value.(*entry)
	err := fn(e)
	if err == nil {
		e.lastAccess = s.now()
		s.lru.MoveToFront(el)
	}
	s.mu.Unlock()
	return err
}

func (s *Store) expiredLocked(el *list.Element, now time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return now.Sub(el.Value.(*entry).lastAccess) > s.ttl
}

func (s *Store) removeLocked(el *list.Element, reason string) evicted {
	e := s.lru.Remove(el).(*entry)
	delete(s.items, e.session.ID)
	return evicted{session: e.session, reason: reason}
}

// Sweep drops every session idle for longer than the TTL and returns how
// many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	var ev []evicted
	s.mu.Lock()
	now := s.now()
	// Back of the list is least recently used; stop at the first live entry.
	for el := s.lru.Back(); el != nil; {
		if !s.expiredLocked(el, now) {
			break
		}
		prev := el.Prev()
		ev = append(ev, s.removeLocked(el, ReasonTTL))
		el = prev
	}
	s.mu.Unlock()
	s.notify(ev)
	return len(ev)
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("session janitor swept expired sessions", slog.Int("count", n))
			}
		}
	}
}
