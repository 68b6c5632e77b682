// api/models/event.go
package models

import "time"

// VisitEvent is one row of the visit journal: a raw page view as received, before any history processing.
type VisitEvent struct {
	EventID   string    `json:"eventId"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
	PageURL   string    `json:"pageUrl"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
}

// VisitRequest is the body of an inbound page-view notification.
type VisitRequest struct {
	URL       string `json:"url" binding:"required"`
	Timestamp int64  `json:"timestamp"`
	Referrer  string `json:"referrer"`
}
