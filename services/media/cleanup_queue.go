package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"guesthouse-booking/logger"
)

// ErrQueueClosed is returned by Enqueue after Close
var ErrQueueClosed = errors.New("cleanup queue is closed")

// CleanupConfig controls retries of media-host deletes
type CleanupConfig struct {
	Workers         int
	Buffer          int
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor is the random ± fraction applied to each wait
	JitterFactor float64
}

func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Workers:         1,
		Buffer:          256,
		MaxAttempts:     5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// CleanupResult reports the fate of one delete
type CleanupResult struct {
	PublicID string
	Attempts int
	Err      error
}

// CleanupQueue deletes images from the media host after their rows are gone.
// Deletes are retried with exponential backoff and never run inside a
// database transaction.
type CleanupQueue struct {
	storage Storage
	config  CleanupConfig
	tasks   chan string

	// OnResult, when set before Start, observes every finished task
	OnResult func(CleanupResult)

	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewCleanupQueue(storage Storage, config CleanupConfig) *CleanupQueue {
	def := DefaultCleanupConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.Buffer <= 0 {
		config.Buffer = def.Buffer
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = def.InitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = def.MaxInterval
	}
	if config.Multiplier <= 0 {
		config.Multiplier = def.Multiplier
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	}
	if config.JitterFactor > 1 {
		config.JitterFactor = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupQueue{
		storage: storage,
		config:  config,
		tasks:   make(chan string, config.Buffer),
		ctx:     ctx,
		cancel:  cancel,
		sleep:   sleepContext,
	}
}

func (q *CleanupQueue) Start() {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	logger.Info(fmt.Sprintf("Media cleanup queue started with %d worker(s)", q.config.Workers))
}

// Enqueue schedules a delete. It does not block; a full buffer is an error.
func (q *CleanupQueue) Enqueue(publicID string) error {
	if publicID == "" {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- publicID:
		return nil
	default:
		return fmt.Errorf("cleanup queue is full, dropping %s", publicID)
	}
}

// Close stops intake, lets queued tasks finish and waits for the workers.
// Pending backoff waits are cut short once ctx is done.
func (q *CleanupQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *CleanupQueue) worker() {
	defer q.wg.Done()
	for publicID := range q.tasks {
		res := q.process(publicID)
		if res.Err != nil {
			logger.Error(fmt.Sprintf("Giving up deleting media %s after %d attempt(s)", publicID, res.Attempts), res.Err)
		} else {
			logger.Debug(fmt.Sprintf("Deleted media %s after %d attempt(s)", publicID, res.Attempts))
		}
		if q.OnResult != nil {
			q.OnResult(res)
		}
	}
}

func (q *CleanupQueue) process(publicID string) CleanupResult {
	var lastErr error
	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(q.ctx, 30*time.Second)
		lastErr = q.storage.Delete(ctx, publicID)
		cancel()
		if lastErr == nil {
			return CleanupResult{PublicID: publicID, Attempts: attempt}
		}
		if errors.Is(lastErr, ErrDisabled) || attempt == q.config.MaxAttempts {
			return CleanupResult{PublicID: publicID, Attempts: attempt, Err: lastErr}
		}

		wait := q.backoff(attempt)
		logger.Warning(fmt.Sprintf("Media delete %s failed (attempt %d), retrying in %s: %v", publicID, attempt, wait, lastErr))
		if err := q.sleep(q.ctx, wait); err != nil {
			return CleanupResult{PublicID: publicID, Attempts: attempt, Err: lastErr}
		}
	}
	return CleanupResult{PublicID: publicID, Attempts: q.config.MaxAttempts, Err: lastErr}
}

// backoff returns the wait before retry number attempt (1-based)
func (q *CleanupQueue) backoff(attempt int) time.Duration {
	interval := float64(q.config.InitialInterval) * math.Pow(q.config.Multiplier, float64(attempt-1))
	if interval > float64(q.config.MaxInterval) {
		interval = float64(q.config.MaxInterval)
	}
	if q.config.JitterFactor > 0 {
		jitter := interval * q.config.JitterFactor
		interval = interval - jitter + rand.Float64()*2*jitter
	}
	return time.Duration(interval)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
