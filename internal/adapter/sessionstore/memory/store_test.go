package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)} }

func TestStore_AddMessageMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))

	for n := 1; n <= 25; n++ {
		require.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: fmt.Sprint(n)}))
		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got.Messages, n)
		assert.Equal(t, fmt.Sprint(n), got.Messages[n-1].Content)
	}
}

func TestStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 50)
}

func TestStore_GetIsIdempotentAndIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))
	require.NoError(t, s.AddMessage(ctx, "s1", domain.Message{Role: domain.RoleUser, Content: "hi"}))
	require.NoError(t, s.UpdateExtractedData(ctx, "s1", domain.ExtractedData{CV: &domain.CVData{Skills: []string{"go"}}}))

	a, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a.Messages[0].Content = "mutated"
	a.ExtractedData.CV.Skills[0] = "mutated"
	c, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, b, c)
}

func TestStore_UnknownIDIsNotFoundAndNotCreated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, s.AddMessage(ctx, "nope", domain.Message{Role: domain.RoleUser}), domain.ErrNotFound)
	require.ErrorIs(t, s.UpdateExtractedData(ctx, "nope", domain.ExtractedData{}), domain.ErrNotFound)
	require.ErrorIs(t, s.SetStatus(ctx, "nope", domain.SessionCompleted), domain.ErrNotFound)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_CreateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	require.ErrorIs(t, s.Create(ctx, domain.Session{}), domain.ErrInvalidArgument)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))
	require.ErrorIs(t, s.Create(ctx, domain.Session{ID: "s1"}), domain.ErrConflict)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	require.ErrorIs(t, s.AddMessage(ctx, "s1", domain.Message{Role: "system"}), domain.ErrInvalidArgument)
}

func TestStore_StatusIsMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))

	require.NoError(t, s.SetStatus(ctx, "s1", domain.SessionCompleted))
	require.NoError(t, s.SetStatus(ctx, "s1", domain.SessionCompleted))
	require.NoError(t, s.SetStatus(ctx, "s1", domain.SessionPDFGenerated))
	require.ErrorIs(t, s.SetStatus(ctx, "s1", domain.SessionActive), domain.ErrConflict)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPDFGenerated, got.Status)
}

func TestStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	var reasons []string
	s := New(WithTTL(time.Minute), WithClock(clk.Now), WithEvictionHook(func(_ domain.Session, r string) {
		reasons = append(reasons, r)
	}))
	require.NoError(t, s.Create(ctx, domain.Session{ID: "old"}))
	clk.Advance(30 * time.Second)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "fresh"}))

	clk.Advance(45 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	_, err := s.Get(ctx, "old")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "fresh")
	require.NoError(t, err, "access refreshes the idle timer")

	clk.Advance(2 * time.Minute)
	_, err = s.Get(ctx, "fresh")
	require.ErrorIs(t, err, domain.ErrNotFound, "lazily expired on access")
	assert.Equal(t, []string{ReasonTTL, ReasonTTL}, reasons)

	require.NoError(t, s.Create(ctx, domain.Session{ID: "fresh"}), "an expired id can be reused")
}

func TestStore_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var evictedIDs []string
	s := New(WithMaxSessions(2), WithEvictionHook(func(sess domain.Session, r string) {
		assert.Equal(t, ReasonCapacity, r)
		evictedIDs = append(evictedIDs, sess.ID)
	}))

	require.NoError(t, s.Create(ctx, domain.Session{ID: "a"}))
	require.NoError(t, s.Create(ctx, domain.Session{ID: "b"}))
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, domain.Session{ID: "c"}))

	assert.Equal(t, []string{"b"}, evictedIDs)
	n, _ := s.Len(ctx)
	assert.Equal(t, 2, n)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, domain.Session{ID: "s1"}))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))
	_, err := s.Get(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_RunJanitorStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := New(WithTTL(time.Millisecond))
	require.NoError(t, s.Create(context.Background(), domain.Session{ID: "s1"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		n, _ := s.Len(context.Background())
		return n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestStore_UpdateExtractedDataAccumulates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
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
