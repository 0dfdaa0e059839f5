package logger

import (
	"sync"

	log_model "guesthouse-booking/models/log"
	"guesthouse-booking/types"

	"gorm.io/gorm"
)

// AsyncLogger persists webhook deliveries off the request path
type AsyncLogger struct {
	db      *gorm.DB
	channel chan types.LogEntry
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncLogger(db *gorm.DB) *AsyncLogger {
	return &AsyncLogger{
		db:      db,
		channel: make(chan types.LogEntry, 100), // Buffered channel to hold log entries
	}
}

// Start launches the single writer goroutine
func (l *AsyncLogger) Start() {
	l.wg.Add(1)
	go l.ProcessLog()
}

func (l *AsyncLogger) ProcessLog() {
	defer l.wg.Done()
	Info("Starting asynchronous webhook logger...")

	for logEntry := range l.channel {
		dbLog := log_model.Log{
			Method:         logEntry.Method,
			URL:            logEntry.URL,
			Provider:       logEntry.Provider,
			RequestBody:    logEntry.RequestBody,
			ResponseBody:   logEntry.ResponseBody,
			RequestHeaders: logEntry.RequestHeaders,
			StatusCode:     logEntry.StatusCode,
			Outcome:        logEntry.Outcome,
			CreatedAt:      logEntry.CreatedAt,
		}

		if l.db == nil {
			Debug("Webhook log (no database): " + dbLog.Method + " " + dbLog.URL + " " + dbLog.Outcome)
			continue
		}
		if err := l.db.Create(&dbLog).Error; err != nil {
			Error("Failed to insert webhook log entry", err)
		}
	}
}

// Log queues an entry; it never blocks the webhook response
func (l *AsyncLogger) Log(entry types.LogEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		Warning("Webhook log dropped after shutdown: " + entry.URL)
		return
	}
	select {
	case l.channel <- entry:
	default:
		Warning("Webhook log buffer full, dropping entry for " + entry.URL)
	}
}

// Close stops accepting entries and waits for the queue to drain
func (l *AsyncLogger) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.channel)
	}
	l.mu.Unlock()
	l.wg.Wait()
}
