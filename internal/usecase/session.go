// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// SessionService wraps the session store with id minting and validation.
type SessionService struct {
	Store domain.SessionStore
	now   func() time.Time
}

// NewSessionService constructs a SessionService over store.
func NewSessionService(store domain.SessionStore) SessionService {
	return SessionService{Store: store, now: time.Now}
}

func (s SessionService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// NewSessionID mints a ULID: a millisecond timestamp plus random suffix.
func NewSessionID() string { return ulid.Make().String() }

// CreateSession starts a new active session owned by ownerID and returns its id.
func (s SessionService) CreateSession(ctx domain.Context, ownerID string) (string, error) {
	sess, err := s.CreateWithID(ctx, NewSessionID(), ownerID)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// CreateWithID starts a session under a caller-chosen id.
func (s SessionService) CreateWithID(ctx domain.Context, id, ownerID string) (domain.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Session{}, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	now := s.clock()
	sess := domain.Session{
		ID:          id,
		OwnerID:     ownerID,
		Messages:    []domain.Message{},
		Status:      domain.SessionActive,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.create: %w", err)
	}
	observability.SessionCreated()
	observability.LoggerFromContext(ctx).Debug("session created", slog.String("session_id", id))
	return sess, nil
}

// Get returns the session or an error wrapping domain.ErrNotFound.
func (s SessionService) Get(ctx domain.Context, id string) (domain.Session, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	return sess, nil
}

// AddMessage appends a message stamped with the current time. Unknown ids
// return domain.ErrNotFound; no session is created.
func (s SessionService) AddMessage(ctx domain.Context, id string, role domain.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", domain.ErrInvalidArgument, role)
	}
	m := domain.Message{Role: role, Content: content, Timestamp: s.clock()}
	if err := s.Store.AddMessage(ctx, id, m); err != nil {
		return fmt.Errorf("op=session.add_message: %w", err)
	}
	return nil
}

// UpdateExtractedData merges partial into the stored profile.
func (s SessionService) UpdateExtractedData(ctx domain.Context, id string, partial domain.ExtractedData) error {
	if partial.IsEmpty() {
		return nil
	}
	if err := s.Store.UpdateExtractedData(ctx, id, partial); err != nil {
		return fmt.Errorf("op=session.update_extracted: %w", err)
	}
	return nil
}

// MarkStatus advances the lifecycle; moving backwards is domain.ErrConflict.
func (s SessionService) MarkStatus(ctx domain.Context, id string, status domain.SessionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidArgument, status)
	}
	if err := s.Store.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("op=session.mark_status: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s SessionService) Delete(ctx domain.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	return nil
}

// EvictionReporter returns a hook for the memory store that counts evictions
// and publishes session.evicted in the background.
func EvictionReporter(events domain.EventPublisher) func(domain.Session, string) {
	return func(sess domain.Session, reason string) {
		observability.SessionEvicted(reason)
		if events == nil {
			return
		}
		ev := domain.ConversationEvent{Type: domain.EventSessionEvicted, SessionID: sess.ID, Reason: reason}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := events.Publish(ctx, ev); err != nil {
				slog.Warn("publish session eviction failed", slog.String("session_id", ev.SessionID), slog.Any("error", err))
			}
		}()
	}
}
