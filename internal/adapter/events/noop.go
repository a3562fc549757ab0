// Package events holds the publishers used when no broker is configured.
package events

import "github.com/fairyhunter13/cv-assistant/internal/domain"

// Noop discards every event.
type Noop struct{}

var _ domain.EventPublisher = Noop{}

// Publish implements domain.EventPublisher.
func (Noop) Publish(_ domain.Context, _ domain.ConversationEvent) error { return nil }
