package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// renderedContentType is what the text renderer produces.
const renderedContentType = "text/plain; charset=utf-8"

// GeneratedDocument is returned to the caller after generation.
type GeneratedDocument struct {
	ID        string              `json:"id"`
	Type      domain.DocumentType `json:"type"`
	SessionID string              `json:"sessionId"`
	URL       string              `json:"url"`
}

// DocumentService materializes CVs and letters from a session's profile.
type DocumentService struct {
	Sessions SessionService
	Renderer domain.DocumentRenderer
	Repo     domain.DocumentRepository
	Events   domain.EventPublisher
	BaseURL  string
}

// NewDocumentService constructs a DocumentService. events may be nil.
func NewDocumentService(sessions SessionService, r domain.DocumentRenderer, repo domain.DocumentRepository, events domain.EventPublisher, baseURL string) DocumentService {
	return DocumentService{Sessions: sessions, Renderer: r, Repo: repo, Events: events, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Generate renders and stores a document of type t for sessionID and marks the
// session pdf_generated.
func (s DocumentService) Generate(ctx domain.Context, sessionID string, t domain.DocumentType) (GeneratedDocument, error) {
	if t != domain.DocumentCV && t != domain.DocumentLetter {
		return GeneratedDocument{}, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidArgument, t)
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("op=document.generate: %w", err)
	}
	data := sess.ExtractedData
	if (t == domain.DocumentCV && data.CV == nil) || (t == domain.DocumentLetter && data.Letter == nil) {
		return GeneratedDocument{}, fmt.Errorf("%w: session has no %s data yet", domain.ErrInvalidArgument, t)
	}

	content, filename, err := s.Renderer.Render(ctx, t, data)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("op=document.render: %w", err)
	}
	doc := domain.Document{
		ID:          uuid.New().String(),
		SessionID:   sess.ID,
		Type:        t,
		Filename:    filename,
		ContentType: renderedContentType,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Save(ctx, doc); err != nil {
		return GeneratedDocument{}, fmt.Errorf("op=document.save: %w", err)
	}

	lg := observability.LoggerFromContext(ctx)
	if err := s.Sessions.MarkStatus(ctx, sess.ID, domain.SessionPDFGenerated); err != nil {
		lg.Error("mark session pdf_generated failed", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
	observability.DocumentGenerated(string(t))
	if s.Events != nil {
		ev := domain.ConversationEvent{Type: domain.EventDocumentGenerated, SessionID: sess.ID, Document: string(t)}
		if err := s.Events.Publish(ctx, ev); err != nil {
			lg.Warn("publish event failed", slog.String("type", ev.Type), slog.Any("error", err))
		}
	}
	lg.Info("document generated",
		slog.String("session_id", sess.ID),
		slog.String("document_id", doc.ID),
		slog.String("type", string(t)),
		slog.Int("bytes", len(content)))

	return GeneratedDocument{
		ID:        doc.ID,
		Type:      t,
		SessionID: sess.ID,
		URL:       s.BaseURL + "/v1/documents/" + doc.ID,
	}, nil
}

// Fetch returns a stored document.
func (s DocumentService) Fetch(ctx domain.Context, id string) (domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Document{}, fmt.Errorf("%w: document id required", domain.ErrInvalidArgument)
	}
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("op=document.fetch: %w", err)
	}
	return doc, nil
}
