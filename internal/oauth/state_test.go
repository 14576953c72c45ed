package oauth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/cache/memory"
)

func TestStates_IssueConsume(t *testing.T) {
	s := NewStates(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	state, err := s.Issue(ctx, StateMeta{Provider: "default", Redirect: "/dashboard"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(state), 43, "32 random bytes base64url")

	meta, err := s.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "default", meta.Provider)
	assert.Equal(t, "/dashboard", meta.Redirect)
}

func TestStates_ConsumeIsOneShot(t *testing.T) {
	s := NewStates(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	state, err := s.Issue(ctx, StateMeta{Provider: "default"})
	require.NoError(t, err)

	_, err = s.Consume(ctx, state)
	require.NoError(t, err)

	_, err = s.Consume(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStates_ConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewStates(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	state, err := s.Issue(ctx, StateMeta{Provider: "default"})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, state); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "two callbacks with one state must not both pass")
}

func TestStates_UnknownAndEmpty(t *testing.T) {
	s := NewStates(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	_, err := s.Consume(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Consume(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStates_UniquePerAttempt(t *testing.T) {
	s := NewStates(memory.New(time.Minute), time.Minute)
	ctx := context.Background()

	a, err := s.Issue(ctx, StateMeta{Provider: "default"})
	require.NoError(t, err)
	b, err := s.Issue(ctx, StateMeta{Provider: "default"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
