// Package redisstore keeps sessions in Redis so several service instances
// can share them. Each session is one JSON value whose TTL is refreshed on
// every access; writes are optimistic WATCH/MULTI transactions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

const (
	keyPrefix = "cvassistant:session:"

	defaultMaxRetries = 10
)

// Store implements domain.SessionStore on Redis.
type Store struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

var _ domain.SessionStore = (*Store)(nil)

// New returns a Store. A non-positive ttl keeps sessions forever.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, maxRetries: defaultMaxRetries, now: time.Now}
}

func key(id string) string { return keyPrefix + id }

func (s *Store) expiry() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl
}

// Create stores a new session; an existing id is a conflict.
func (s *Store) Create(ctx domain.Context, sess domain.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("op=redis.create: %w: empty id", domain.ErrInvalidArgument)
	}
	now := s.now()
	if sess.Status == "" {
		sess.Status = domain.SessionActive
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastUpdated.IsZero() {
		sess.LastUpdated = now
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("op=redis.create: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, key(sess.ID), b, s.expiry()).Result()
	if err != nil {
		return fmt.Errorf("op=redis.create id=%s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("op=redis.create id=%s: %w", sess.ID, domain.ErrConflict)
	}
	return nil
}

// Get returns the session and refreshes its TTL.
func (s *Store) Get(ctx domain.Context, id string) (domain.Session, error) {
	var (
		raw string
		err error
	)
	if exp := s.expiry(); exp > 0 {
		raw, err = s.rdb.GetEx(ctx, key(id), exp).Result()
	} else {
		raw, err = s.rdb.Get(ctx, key(id)).Result()
	}
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("op=redis.get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=redis.get id=%s: %w", id, err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=redis.get id=%s: decode: %w", id, err)
	}
	return sess, nil
}

// AddMessage appends m to the transcript.
func (s *Store) AddMessage(ctx domain.Context, id string, m domain.Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("op=redis.add_message: %w: role %q", domain.ErrInvalidArgument, m.Role)
	}
	return s.update(ctx, id, "add_message", func(sess *domain.Session) error {
		now := s.now()
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		sess.Messages = append(sess.Messages, m)
		sess.LastUpdated = now
		return nil
	})
}

// UpdateExtractedData merges partial into the stored profile.
func (s *Store) UpdateExtractedData(ctx domain.Context, id string, partial domain.ExtractedData) error {
	return s.update(ctx, id, "update_extracted", func(sess *domain.Session) error {
		sess.ExtractedData = sess.ExtractedData.Merge(partial)
		sess.LastUpdated = s.now()
		return nil
	})
}

// SetStatus moves the session forward in its lifecycle.
func (s *Store) SetStatus(ctx domain.Context, id string, status domain.SessionStatus) error {
	return s.update(ctx, id, "set_status", func(sess *domain.Session) error {
		if !sess.Status.CanTransition(status) {
			return fmt.Errorf("op=redis.set_status id=%s %s->%s: %w", id, sess.Status, status, domain.ErrConflict)
		}
		sess.Status = status
		sess.LastUpdated = s.now()
		return nil
	})
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx domain.Context, id string) error {
	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("op=redis.delete id=%s: %w", id, err)
	}
	return nil
}

// Len counts session keys with SCAN.
func (s *Store) Len(ctx domain.Context) (int, error) {
	n := 0
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("op=redis.len: %w", err)
	}
	return n, nil
}

// update applies fn inside a WATCH/MULTI transaction, retrying when another
// writer changed the key first.
func (s *Store) update(ctx context.Context, id, op string, fn func(*domain.Session) error) error {
	k := key(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("op=redis.%s id=%s: %w", op, id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("op=redis.%s id=%s: decode: %w", op, id, err)
		}
		if err := fn(&sess); err != nil {
			return err
		}
		b, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, b, s.expiry())
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) &&
			!errors.Is(err, domain.ErrInvalidArgument) {
			return fmt.Errorf("op=redis.%s id=%s: %w", op, id, err)
		}
		return err
	}
	return fmt.Errorf("op=redis.%s id=%s: %w: too much contention", op, id, domain.ErrConflict)
}
