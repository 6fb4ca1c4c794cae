package domain

import (
	"encoding/json"
	"time"
)

// Content types and statuses written to content_updates.
const (
	ContentTypeBlueskyPost = "bluesky_post"

	StatusPublished = "published"
	StatusFailed    = "failed"

	DefaultCreatedBy = "autonomous"
)

// ContentUpdate is one row of content_updates. Rows are never modified after insert.
type ContentUpdate struct {
	ID          int64     `json:"id"`
	UpdateDate  time.Time `json:"updateDate"`
	ContentType string    `json:"contentType"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
}

// NewContentUpdate is the insert payload; the store assigns ID and UpdateDate.
type NewContentUpdate struct {
	ContentType string
	Content     string
	Status      string // "" means published
	CreatedBy   string // "" means autonomous
}

// Analytics event types.
const (
	EventEmailReceived    = "email_received"
	EventEmailReplySent   = "email_reply_sent"
	EventEmailReplyFailed = "email_reply_failed"
	EventSocialPost       = "social_post"
	EventSocialPostFailed = "social_post_failed"

	DefaultUserAgent = "unknown"
)

// AnalyticsEvent is one row of site_analytics.
type AnalyticsEvent struct {
	ID        int64           `json:"id"`
	EventDate time.Time       `json:"eventDate"`
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData"`
	UserAgent string          `json:"userAgent"`
}
