// Package domain defines the conversation entities, error taxonomy and ports
// shared by the use cases and adapters.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrInternal        = errors.New("internal error")
)

// Context is an alias so ports read the same across packages.
type Context = context.Context

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Message is a single entry of a session transcript. Order is significant.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStatus is the lifecycle state of a session.
// Progression is active -> completed -> pdf_generated and never goes back.
type SessionStatus string

const (
	SessionActive       SessionStatus = "active"
	SessionCompleted    SessionStatus = "completed"
	SessionPDFGenerated SessionStatus = "pdf_generated"
)

func (s SessionStatus) rank() int {
	switch s {
	case SessionActive:
		return 0
	case SessionCompleted:
		return 1
	case SessionPDFGenerated:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool { return s.rank() >= 0 }

// CanTransition reports whether moving from s to next keeps the progression
// monotonic. Re-applying the current status is allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Session is the per-conversation mutable record.
type Session struct {
	ID            string        `json:"sessionId"`
	OwnerID       string        `json:"ownerId"`
	Messages      []Message     `json:"messages"`
	ExtractedData ExtractedData `json:"extractedData"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (s Session) Clone() Session {
	out := s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	out.ExtractedData = s.ExtractedData.Clone()
	return out
}

// UserMessages returns the content of user-authored messages in order.
func (s Session) UserMessages() []string {
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// Intent is the coarse topic of a single message.
type Intent string

const (
	IntentCV           Intent = "cv"
	IntentLetter       Intent = "letter"
	IntentInterview    Intent = "interview"
	IntentCareerAdvice Intent = "career_advice"
	IntentSkills       Intent = "skills"
	IntentSalary       Intent = "salary"
	IntentGeneral      Intent = "general"
)

// Complexity is the seniority level inferred from the conversation.
type Complexity string

const (
	ComplexityEntry  Complexity = "entry"
	ComplexityMid    Complexity = "mid"
	ComplexitySenior Complexity = "senior"
)

// Readiness tells whether enough data exists to offer document generation.
type Readiness struct {
	CV     bool `json:"cv"`
	Letter bool `json:"letter"`
}

// Any reports whether at least one document can be generated.
func (r Readiness) Any() bool { return r.CV || r.Letter }

// ConversationContext is recomputed every turn and never persisted.
// Confidence is a heuristic in [0,1], not a calibrated probability.
type ConversationContext struct {
	Language           string     `json:"language"`
	LanguageConfidence float64    `json:"languageConfidence"`
	Intent             Intent     `json:"intent"`
	Confidence         float64    `json:"confidence"`
	Complexity         Complexity `json:"complexity"`
	Readiness          Readiness  `json:"readiness"`
}

// ChatReply is the response envelope returned for every turn.
type ChatReply struct {
	Content             string    `json:"content"`
	Language            string    `json:"language"`
	Confidence          float64   `json:"confidence"`
	ConversationStyle   string    `json:"conversationStyle"`
	FollowUpSuggestions []string  `json:"followUpSuggestions"`
	WebInsights         []string  `json:"webInsights,omitempty"`
	ProcessingTime      int64     `json:"processingTime"`
	IntelligenceLevel   string    `json:"intelligenceLevel"`
	SessionID           string    `json:"sessionId"`
	CanGeneratePDF      Readiness `json:"canGeneratePDF"`
}

// DocumentType enumerates generated document kinds.
type DocumentType string

const (
	DocumentCV     DocumentType = "cv"
	DocumentLetter DocumentType = "letter"
)

// Document is a rendered CV or letter kept in durable storage.
type Document struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	Type        DocumentType `json:"type"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"contentType"`
	Content     []byte       `json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Event types published on the conversation events topic.
const (
	EventTurnCompleted     = "turn.completed"
	EventDocumentGenerated = "document.generated"
	EventSessionEvicted    = "session.evicted"
)

// ConversationEvent is an analytics record. It carries no message content.
type ConversationEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SessionID  string    `json:"sessionId"`
	Language   string    `json:"language,omitempty"`
	Intent     Intent    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Document   string    `json:"document,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SessionStore (port). Writes against an unknown id return ErrNotFound and
// never create a session.
type SessionStore interface {
	Create(ctx Context, s Session) error
	Get(ctx Context, id string) (Session, error)
	AddMessage(ctx Context, id string, m Message) error
	UpdateExtractedData(ctx Context, id string, partial ExtractedData) error
	SetStatus(ctx Context, id string, status SessionStatus) error
	Delete(ctx Context, id string) error
	Len(ctx Context) (int, error)
}

// WebSearcher (port). Implementations must not return an error for upstream
// failures; they degrade to fallback insights instead.
type WebSearcher interface {
	Insights(ctx Context, query string, intent Intent) []string
}

// DocumentRenderer (port) materializes a document from extracted data.
type DocumentRenderer interface {
	Render(ctx Context, t DocumentType, data ExtractedData) (content []byte, filename string, err error)
}

// DocumentRepository (port) is durable storage for generated documents.
type DocumentRepository interface {
	Save(ctx Context, d Document) error
	Get(ctx Context, id string) (Document, error)
}

// EventPublisher (port) emits conversation analytics events.
type EventPublisher interface {
	Publish(ctx Context, e ConversationEvent) error
}

// TurnLimiter (port) throttles turns per session.
type TurnLimiter interface {
	Allow(ctx Context, bucket, subject string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}
