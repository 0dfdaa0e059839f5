package logger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"guesthouse-booking/types"

	"github.com/stretchr/testify/assert"
)

func entry(i int) types.LogEntry {
	return types.LogEntry{
		Method:    "POST",
		URL:       fmt.Sprintf("/api/payments/webhook?n=%d", i),
		Provider:  "paystack",
		Outcome:   "paid",
		CreatedAt: time.Now(),
	}
}

func TestAsyncLogger_LogAfterCloseIsDropped(t *testing.T) {
	l := NewAsyncLogger(nil)
	l.Start()
	l.Log(entry(1))
	l.Close()

	assert.NotPanics(t, func() { l.Log(entry(2)) })
	assert.NotPanics(t, l.Close)
}

func TestAsyncLogger_ConcurrentLogAndClose(t *testing.T) {
	l := NewAsyncLogger(nil)
	l.Start()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Log(entry(i))
		}(i)
	}
	assert.NotPanics(t, l.Close)
	wg.Wait()
}
