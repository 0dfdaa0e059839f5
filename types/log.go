package types

import "time"

// LogEntry represents a webhook delivery to be stored in the database
type LogEntry struct {
	ID             uint
	Method         string
	URL            string
	Provider       string
	RequestBody    string
	ResponseBody   string
	RequestHeaders string
	StatusCode     int
	Outcome        string
	CreatedAt      time.Time
}
