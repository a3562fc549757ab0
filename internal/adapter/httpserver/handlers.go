package httpserver

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cv-assistant/internal/config"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/internal/usecase"
)

// ChatTurner answers one chat turn.
type ChatTurner interface {
	Reply(ctx domain.Context, req usecase.ChatRequest) (domain.ChatReply, error)
}

// DocumentGenerator creates and serves rendered documents.
type DocumentGenerator interface {
	Generate(ctx domain.Context, sessionID string, t domain.DocumentType) (usecase.GeneratedDocument, error)
	Fetch(ctx domain.Context, id string) (domain.Document, error)
}

// SessionAdmin is the session surface used by the admin endpoints.
type SessionAdmin interface {
	Get(ctx domain.Context, id string) (domain.Session, error)
	MarkStatus(ctx domain.Context, id string, status domain.SessionStatus) error
	Delete(ctx domain.Context, id string) error
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Chat       ChatTurner
	Documents  DocumentGenerator
	Sessions   SessionAdmin
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Either check may be nil when the backing service is not configured.
func NewServer(cfg config.Config, chat ChatTurner, docs DocumentGenerator, sessions SessionAdmin, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Chat: chat, Documents: docs, Sessions: sessions, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type chatRequest struct {
	Message   string `json:"message" validate:"max=4000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=100,ident"`
	UserID    string `json:"userId" validate:"omitempty,max=100"`
}

type documentRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=100,ident"`
	Type      string `json:"type" validate:"required,oneof=cv letter"`
}

// ChatHandler runs one conversation turn.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		reply, err := s.Chat.Reply(r.Context(), usecase.ChatRequest{
			Message:   req.Message,
			SessionID: req.SessionID,
			UserID:    req.UserID,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if reply.FollowUpSuggestions == nil {
			reply.FollowUpSuggestions = []string{}
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

// GenerateDocumentHandler renders a CV or letter from the session profile.
func (s *Server) GenerateDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		doc, err := s.Documents.Generate(r.Context(), req.SessionID, domain.DocumentType(req.Type))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

// DownloadDocumentHandler streams a stored document as an attachment.
func (s *Server) DownloadDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if verrs := ValidateID("id", id); verrs != nil {
			writeError(w, r, fmt.Errorf("%w: invalid document id", domain.ErrInvalidArgument), verrs)
			return
		}
		doc, err := s.Documents.Fetch(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ct := mimetype.Detect(doc.Content).String()
		filename := doc.Filename
		if filename == "" {
			filename = string(doc.Type) + ".txt"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Content)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler pings the configured backing services.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		deps := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}
		checks := make([]check, 0, len(deps))
		ok := true
		for _, p := range deps {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, Details: err.Error()})
				ok = false
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
