// Package postgres stores generated documents in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentRepo persists rendered documents.
type DocumentRepo struct{ Pool PgxPool }

var _ domain.DocumentRepository = (*DocumentRepo)(nil)

// NewDocumentRepo constructs a DocumentRepo with the given pool.
func NewDocumentRepo(p PgxPool) *DocumentRepo { return &DocumentRepo{Pool: p} }

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.documents").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "generated_documents"),
	)
	return ctx, span
}

// Save stores d. A missing id is generated and a zero CreatedAt is set to now.
func (r *DocumentRepo) Save(ctx domain.Context, d domain.Document) error {
	ctx, span := startSpan(ctx, "documents.Save", "INSERT")
	defer span.End()
	if d.SessionID == "" || d.Type == "" {
		return fmt.Errorf("op=document.save: %w", domain.ErrInvalidArgument)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	span.SetAttributes(attribute.String("document.id", d.ID))
	q := `INSERT INTO generated_documents (id, session_id, type, filename, content_type, content, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, d.ID, d.SessionID, string(d.Type), d.Filename, d.ContentType, d.Content, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("op=document.save: %w", domain.ErrConflict)
		}
		span.RecordError(err)
		return fmt.Errorf("op=document.save: %w", err)
	}
	return nil
}

// Get loads a document by id.
func (r *DocumentRepo) Get(ctx domain.Context, id string) (domain.Document, error) {
	ctx, span := startSpan(ctx, "documents.Get", "SELECT")
	defer span.End()
	q := `SELECT id, session_id, type, filename, content_type, content, created_at FROM generated_documents WHERE id=$1`
	var (
		d   domain.Document
		typ string
	)
	err := r.Pool.QueryRow(ctx, q, id).Scan(&d.ID, &d.SessionID, &typ, &d.Filename, &d.ContentType, &d.Content, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("op=document.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		span.RecordError(err)
		return domain.Document{}, fmt.Errorf("op=document.get: %w", err)
	}
	d.Type = domain.DocumentType(typ)
	return d, nil
}
