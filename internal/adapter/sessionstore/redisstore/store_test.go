package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, ttl), mr
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1", OwnerID: "u1"}))
	require.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: "hello"}))
	require.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleAssistant, Content: "hi!"}))
	require.NoError(t, s.UpdateExtractedData(ctx, "s1", domain.ExtractedData{
		CV: &domain.CVData{Personal: &domain.PersonalInfo{Email: "a@b.io"}},
	}))
	require.NoError(t, s.SetStatus(ctx, "s1", domain.SessionCompleted))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "a@b.io", got.ExtractedData.CV.Personal.Email)
	assert.Equal(t, domain.SessionCompleted, got.Status)

	again, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_TTLRefreshedAndExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))

	mr.FastForward(50 * time.Second)
	require.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: "x"}))
	assert.Equal(t, time.Minute, mr.TTL(key("s1")))

	mr.FastForward(50 * time.Second)
	_, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(key("s1")))

	mr.FastForward(61 * time.Second)
	_, err = s.Get(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UnknownIDNotCreated(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)

	require.ErrorIs(t, s.AddMessage(ctx, "ghost", domain.Message{Role: domain.RoleUser}), domain.ErrNotFound)
	require.ErrorIs(t, s.UpdateExtractedData(ctx, "ghost", domain.ExtractedData{}), domain.ErrNotFound)
	require.ErrorIs(t, s.SetStatus(ctx, "ghost", domain.SessionCompleted), domain.ErrNotFound)
	assert.False(t, mr.Exists(key("ghost")))
}

func TestStore_ConflictsAndValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 0)

	require.ErrorIs(t, s.Create(ctx, domain.Session{}), domain.ErrInvalidArgument)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))
	require.ErrorIs(t, s.Create(ctx, domain.Session{ID: "s1"}), domain.ErrConflict)
	require.ErrorIs(t, s.AddMessage(ctx, "s1", domain.Message{Role: "bot"}), domain.ErrInvalidArgument)

	require.NoError(t, s.SetStatus(ctx, "s1", domain.SessionPDFGenerated))
	require.ErrorIs(t, s.SetStatus(ctx, "s1", domain.SessionCompleted), domain.ErrConflict)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	s.maxRetries = 1000
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 20)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))
	_, err := s.Get(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateExtractedDataAccumulates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "p1"}))

	require.NoError(t, s.UpdateExtractedData(ctx, "p1", domain.ExtractedData{
		CV: &domain.CVData{Skills: []string{"go"}},
	}))
	require.NoError(t, s.UpdateExtractedData(ctx, "p1", domain.ExtractedData{
		CV: &domain.CVData{Personal: &domain.PersonalInfo{Email: "p1@example.com"}},
	}))

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.ExtractedData.CV)
	assert.Equal(t, []string{"go"}, got.ExtractedData.CV.Skills)
	require.NotNil(t, got.ExtractedData.CV.Personal)
	assert.Equal(t, "p1@example.com", got.ExtractedData.CV.Personal.Email)
}
