package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStorage struct {
	mu       sync.Mutex
	failures map[string]int
	deleted  []string
	calls    map[string]int
}

func newFlakyStorage(failures map[string]int) *flakyStorage {
	return &flakyStorage{failures: failures, calls: make(map[string]int)}
}

func (s *flakyStorage) Upload(ctx context.Context, file io.Reader, filename string) (*Uploaded, error) {
	return &Uploaded{URL: "https://img.test/" + filename, PublicID: filename}, nil
}

func (s *flakyStorage) Delete(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[publicID]++
	if s.failures[publicID] > 0 {
		s.failures[publicID]--
		return errors.New("503 from media host")
	}
	s.deleted = append(s.deleted, publicID)
	return nil
}

func collectResults(q *CleanupQueue) (func() []CleanupResult, *sync.WaitGroup) {
	var mu sync.Mutex
	var results []CleanupResult
	wg := &sync.WaitGroup{}
	q.OnResult = func(r CleanupResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
		wg.Done()
	}
	return func() []CleanupResult {
		mu.Lock()
		defer mu.Unlock()
		return append([]CleanupResult(nil), results...)
	}, wg
}

func TestCleanupQueue_RetriesUntilSuccess(t *testing.T) {
	storage := newFlakyStorage(map[string]int{"img-1": 2})
	q := NewCleanupQueue(storage, CleanupConfig{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	var waits []time.Duration
	q.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	results, wg := collectResults(q)
	q.Start()

	wg.Add(1)
	require.NoError(t, q.Enqueue("img-1"))
	wg.Wait()
	require.NoError(t, q.Close(context.Background()))

	got := results()
	require.Len(t, got, 1)
	assert.NoError(t, got[0].Err)
	assert.Equal(t, 3, got[0].Attempts)
	assert.Len(t, waits, 2)
	assert.Equal(t, []string{"img-1"}, storage.deleted)
}

func TestCleanupQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	storage := newFlakyStorage(map[string]int{"img-1": 100})
	q := NewCleanupQueue(storage, CleanupConfig{MaxAttempts: 3})
	q.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	results, wg := collectResults(q)
	q.Start()

	wg.Add(1)
	require.NoError(t, q.Enqueue("img-1"))
	wg.Wait()
	require.NoError(t, q.Close(context.Background()))

	got := results()
	require.Len(t, got, 1)
	assert.Error(t, got[0].Err)
	assert.Equal(t, 3, got[0].Attempts)
	assert.Equal(t, 3, storage.calls["img-1"])
}

func TestCleanupQueue_DisabledStorageIsNotRetried(t *testing.T) {
	q := NewCleanupQueue(DisabledStorage{}, CleanupConfig{MaxAttempts: 5})
	results, wg := collectResults(q)
	q.Start()

	wg.Add(1)
	require.NoError(t, q.Enqueue("img-1"))
	wg.Wait()
	require.NoError(t, q.Close(context.Background()))

	got := results()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err, ErrDisabled)
	assert.Equal(t, 1, got[0].Attempts)
}

func TestCleanupQueue_CloseDrainsAndRejects(t *testing.T) {
	storage := newFlakyStorage(nil)
	q := NewCleanupQueue(storage, CleanupConfig{Workers: 2})
	q.Start()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(id))
	}
	require.NoError(t, q.Close(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, storage.deleted)
	assert.ErrorIs(t, q.Enqueue("e"), ErrQueueClosed)
	assert.NoError(t, q.Enqueue(""), "empty ids are ignored")
}

func TestCleanupQueue_Backoff(t *testing.T) {
	q := NewCleanupQueue(newFlakyStorage(nil), CleanupConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	})

	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond, 10: time.Second} {
		d := q.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(float64(base)*0.9))
		assert.LessOrEqual(t, d, time.Duration(float64(base)*1.1))
	}
}
