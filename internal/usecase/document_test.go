package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/document"
	repomem "github.com/fairyhunter13/cv-assistant/internal/adapter/repo/memory"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/sessionstore/memory"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/internal/domain/mocks"
	"github.com/fairyhunter13/cv-assistant/internal/usecase"
)

func seededSession(t *testing.T, data domain.ExtractedData) (usecase.SessionService, string) {
	t.Helper()
	ctx := context.Background()
	sessions := usecase.NewSessionService(memory.New())
	id, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, sessions.UpdateExtractedData(ctx, id, data))
	return sessions, id
}

func TestDocumentService_GenerateAndFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sessions, id := seededSession(t, domain.ExtractedData{CV: &domain.CVData{
		Personal: &domain.PersonalInfo{FirstName: "Sarah", LastName: "Connor"},
		Skills:   []string{"leadership"},
	}})
	events := &mocks.MockEventPublisher{}
	events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.ConversationEvent) bool {
		return e.Type == domain.EventDocumentGenerated && e.Document == "cv" && e.SessionID == id
	})).Return(nil).Once()

	renderer, err := document.NewTextRenderer()
	require.NoError(t, err)
	svc := usecase.NewDocumentService(sessions, renderer, repomem.NewDocumentRepo(), events, "http://localhost:8080/")
	gen, err := svc.Generate(ctx, id, domain.DocumentCV)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1/documents/"+gen.ID, gen.URL)
	assert.Equal(t, domain.DocumentCV, gen.Type)

	doc, err := svc.Fetch(ctx, gen.ID)
	require.NoError(t, err)
	assert.Equal(t, "cv-sarah-connor.txt", doc.Filename)
	assert.True(t, strings.Contains(string(doc.Content), "SARAH CONNOR"))

	sess, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPDFGenerated, sess.Status)
	events.AssertExpectations(t)
}

func TestDocumentService_Generate_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sessions, id := seededSession(t, domain.ExtractedData{CV: &domain.CVData{Skills: []string{"sql"}}})
	renderer, err := document.NewTextRenderer()
	require.NoError(t, err)
	svc := usecase.NewDocumentService(sessions, renderer, repomem.NewDocumentRepo(), nil, "")

	_, err = svc.Generate(ctx, id, domain.DocumentType("pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Generate(ctx, id, domain.DocumentLetter)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Generate(ctx, "missing", domain.DocumentCV)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Fetch(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Fetch(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Generate_RenderAndSaveFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sessions, id := seededSession(t, domain.ExtractedData{Letter: &domain.LetterData{Body: "hello"}})

	renderer := &mocks.MockDocumentRenderer{}
	renderer.On("Render", mock.Anything, domain.DocumentLetter, mock.Anything).Return(nil, "", errors.New("template broke")).Once()
	_, err := usecase.NewDocumentService(sessions, renderer, repomem.NewDocumentRepo(), nil, "").Generate(ctx, id, domain.DocumentLetter)
	assert.Error(t, err)

	renderer.On("Render", mock.Anything, domain.DocumentLetter, mock.Anything).Return([]byte("x"), "letter.txt", nil)
	repo := &mocks.MockDocumentRepository{}
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	_, err = usecase.NewDocumentService(sessions, renderer, repo, nil, "").Generate(ctx, id, domain.DocumentLetter)
	assert.Error(t, err)

	sess, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)
}
