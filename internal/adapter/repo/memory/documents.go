// Package memory keeps generated documents in process memory. It backs the
// document service when no database is configured.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// DocumentRepo is a concurrency-safe in-memory domain.DocumentRepository.
type DocumentRepo struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

var _ domain.DocumentRepository = (*DocumentRepo)(nil)

// NewDocumentRepo returns an empty repository.
func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{docs: map[string]domain.Document{}}
}

// Save stores a copy of d.
func (r *DocumentRepo) Save(_ domain.Context, d domain.Document) error {
	if d.SessionID == "" || d.Type == "" {
		return fmt.Errorf("op=document.save: %w", domain.ErrInvalidArgument)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.Content = append([]byte(nil), d.Content...)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[d.ID]; ok {
		return fmt.Errorf("op=document.save: %w", domain.ErrConflict)
	}
	r.docs[d.ID] = d
	return nil
}

// Get returns a copy of the stored document.
func (r *DocumentRepo) Get(_ domain.Context, id string) (domain.Document, error) {
	r.mu.RLock()
	d, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Document{}, fmt.Errorf("op=document.get: %w", domain.ErrNotFound)
	}
	d.Content = append([]byte(nil), d.Content...)
	return d, nil
}
