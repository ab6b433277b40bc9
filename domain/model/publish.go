package model

import "time"

// Publish record statuses. Status is always derived from results via
// AggregateStatus; nothing writes these constants directly except the
// initial PENDING insert.
const (
	PublishStatusPending            = "PENDING"
	PublishStatusCompleted          = "COMPLETED"
	PublishStatusPartiallyCompleted = "PARTIALLY_COMPLETED"
	PublishStatusFailed             = "FAILED"
)

// PublishTarget names one platform+account pair in a publish request.
type PublishTarget struct {
	Platform  string            `json:"platform"`
	AccountID int64             `json:"account_id"`
	Params    map[string]string `json:"params,omitempty"`
}

// MediaItem is a durable, publicly fetchable media descriptor produced by
// the media resolver. Resolved once per item and shared by all targets.
type MediaItem struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// PlatformResult is the outcome of one platform target. Immutable once
// written; one per requested target.
type PlatformResult struct {
	Platform  string     `json:"platform"`
	AccountID int64      `json:"account_id"`
	Success   bool       `json:"success"`
	PostID    string     `json:"post_id,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// PublishRecord is the persisted audit trail of one publish request.
// Created PENDING, updated after media resolution and again after every
// target has settled. Never deleted.
type PublishRecord struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Content      string           `json:"content"`
	Platforms    []PublishTarget  `json:"platforms"`
	ScheduleTime *time.Time       `json:"schedule_time,omitempty"`
	Status       string           `json:"status"`
	MediaItems   []MediaItem      `json:"media_items"`
	Results      []PlatformResult `json:"results"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// AggregateStatus derives the record status from settled results:
// all succeeded -> COMPLETED, all failed -> FAILED, mixed ->
// PARTIALLY_COMPLETED. An empty result set stays PENDING; rejecting an
// empty target list happens before any result exists.
func AggregateStatus(results []PlatformResult) string {
	if len(results) == 0 {
		return PublishStatusPending
	}
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		return PublishStatusCompleted
	case succeeded == 0:
		return PublishStatusFailed
	default:
		return PublishStatusPartiallyCompleted
	}
}
