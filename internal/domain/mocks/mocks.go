// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// MockSessionStore is a mock of domain.SessionStore.
type MockSessionStore struct{ mock.Mock }

func (m *MockSessionStore) Create(ctx domain.Context, s domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionStore) Get(ctx domain.Context, id string) (domain.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionStore) AddMessage(ctx domain.Context, id string, msg domain.Message) error {
	return m.Called(ctx, id, msg).Error(0)
}

func (m *MockSessionStore) UpdateExtractedData(ctx domain.Context, id string, partial domain.ExtractedData) error {
	return m.Called(ctx, id, partial).Error(0)
}

func (m *MockSessionStore) SetStatus(ctx domain.Context, id string, status domain.SessionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockSessionStore) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionStore) Len(ctx domain.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockWebSearcher is a mock of domain.WebSearcher.
type MockWebSearcher struct{ mock.Mock }

func (m *MockWebSearcher) Insights(ctx domain.Context, query string, intent domain.Intent) []string {
	args := m.Called(ctx, query, intent)
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
}

func (m *MockWebSearcher) Wants(intent domain.Intent) bool {
	return m.Called(intent).Bool(0)
}

func (m *MockWebSearcher) QueryFor(intent domain.Intent, position string) string {
	return m.Called(intent, position).String(0)
}

// MockDocumentRenderer is a mock of domain.DocumentRenderer.
type MockDocumentRenderer struct{ mock.Mock }

func (m *MockDocumentRenderer) Render(ctx domain.Context, t domain.DocumentType, data domain.ExtractedData) ([]byte, string, error) {
	args := m.Called(ctx, t, data)
	var b []byte
	if v := args.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, args.String(1), args.Error(2)
}

// MockDocumentRepository is a mock of domain.DocumentRepository.
type MockDocumentRepository struct{ mock.Mock }

func (m *MockDocumentRepository) Save(ctx domain.Context, d domain.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDocumentRepository) Get(ctx domain.Context, id string) (domain.Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Document), args.Error(1)
}

// MockEventPublisher is a mock of domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx domain.Context, e domain.ConversationEvent) error {
	return m.Called(ctx, e).Error(0)
}

// MockTurnLimiter is a mock of domain.TurnLimiter.
type MockTurnLimiter struct{ mock.Mock }

func (m *MockTurnLimiter) Allow(ctx domain.Context, bucket, subject string, cost int64) (bool, time.Duration, error) {
	args := m.Called(ctx, bucket, subject, cost)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

var (
	_ domain.SessionStore       = (*MockSessionStore)(nil)
	_ domain.WebSearcher        = (*MockWebSearcher)(nil)
	_ domain.DocumentRenderer   = (*MockDocumentRenderer)(nil)
	_ domain.DocumentRepository = (*MockDocumentRepository)(nil)
	_ domain.EventPublisher     = (*MockEventPublisher)(nil)
	_ domain.TurnLimiter        = (*MockTurnLimiter)(nil)
)
