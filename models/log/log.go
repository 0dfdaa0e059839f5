package log

import (
	"time"
)

// Log represents an inbound payment webhook delivery.
type Log struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Method         string    `gorm:"type:varchar(10);not null" json:"method"`
	URL            string    `gorm:"type:text;not null" json:"url"`
	Provider       string    `gorm:"type:varchar(32)" json:"provider"`
	RequestBody    string    `gorm:"type:text" json:"request_body"`
	RequestHeaders string    `gorm:"type:text" json:"request_headers"`
	ResponseBody   string    `gorm:"type:text" json:"response_body"`
	StatusCode     int       `gorm:"type:int" json:"status_code"`
	Outcome        string    `gorm:"type:varchar(64);index" json:"outcome"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
