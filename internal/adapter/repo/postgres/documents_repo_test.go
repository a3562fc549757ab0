package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

func TestDocumentRepo_Save(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     domain.Document
		execErr error
		wantErr error
	}{
		{
			name: "provided id",
			doc:  domain.Document{ID: "doc-1", SessionID: "s1", Type: domain.DocumentCV, Filename: "cv.txt", ContentType: "text/plain", Content: []byte("x")},
		},
		{
			name: "generated id",
			doc:  domain.Document{SessionID: "s1", Type: domain.DocumentLetter, Filename: "letter.txt"},
		},
		{
			name:    "missing session",
			doc:     domain.Document{Type: domain.DocumentCV},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "duplicate id",
			doc:     domain.Document{ID: "doc-1", SessionID: "s1", Type: domain.DocumentCV},
			execErr: &pgconn.PgError{Code: "23505"},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &poolStub{execErr: tt.execErr}
			err := NewDocumentRepo(p).Save(context.Background(), tt.doc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, p.calls, 1)
			args := p.calls[0].args
			require.Len(t, args, 7)
			assert.NotEmpty(t, args[0])
			if tt.doc.ID != "" {
				assert.Equal(t, tt.doc.ID, args[0])
			}
			assert.Equal(t, string(tt.doc.Type), args[2])
			assert.False(t, args[6].(time.Time).IsZero())
		})
	}
}

func TestDocumentRepo_Save_DBError(t *testing.T) {
	p := &poolStub{execErr: errors.New("connection reset")}
	err := NewDocumentRepo(p).Save(context.Background(), domain.Document{SessionID: "s1", Type: domain.DocumentCV})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=document.save")
}

func TestDocumentRepo_Get(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "doc-1"
		*(dest[1].(*string)) = "s1"
		*(dest[2].(*string)) = "letter"
		*(dest[3].(*string)) = "letter.txt"
		*(dest[4].(*string)) = "text/plain; charset=utf-8"
		*(dest[5].(*[]byte)) = []byte("Dear Hiring Manager,")
		*(dest[6].(*time.Time)) = created
		return nil
	}}}

	d, err := NewDocumentRepo(p).Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentLetter, d.Type)
	assert.Equal(t, "s1", d.SessionID)
	assert.Equal(t, []byte("Dear Hiring Manager,"), d.Content)
	assert.Equal(t, created, d.CreatedAt)
}

func TestDocumentRepo_Get_NotFound(t *testing.T) {
	p := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	_, err := NewDocumentRepo(p).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p = &poolStub{row: rowStub{scan: func(_ ...any) error { return errors.New("timeout") }}}
	_, err = NewDocumentRepo(p).Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
