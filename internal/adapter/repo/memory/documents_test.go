package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

func TestDocumentRepo_SaveGet(t *testing.T) {
	ctx := context.Background()
	r := NewDocumentRepo()
	content := []byte("hello")
	require.NoError(t, r.Save(ctx, domain.Document{ID: "d1", SessionID: "s1", Type: domain.DocumentCV, Content: content}))
	content[0] = 'j'

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)
	assert.False(t, got.CreatedAt.IsZero())

	assert.ErrorIs(t, r.Save(ctx, domain.Document{ID: "d1", SessionID: "s1", Type: domain.DocumentCV}), domain.ErrConflict)
	assert.ErrorIs(t, r.Save(ctx, domain.Document{SessionID: "s1"}), domain.ErrInvalidArgument)

	_, err = r.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
