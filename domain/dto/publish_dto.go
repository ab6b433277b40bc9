package dto

import (
	"mime/multipart"
	"time"

	"social-hub/domain/model"
)

// PublishRequest represents a single publish request fanned out to
// multiple platform targets. Files arrive via multipart; MediaURLs point
// at already-hosted media. Both go through the media resolver exactly once.
type PublishRequest struct {
	Content      string                  `json:"content" form:"content" binding:"required"`
	Platforms    []model.PublishTarget   `json:"platforms" form:"-"`
	MediaURLs    []string                `json:"media_urls,omitempty" form:"media_urls"`
	ScheduleTime *time.Time              `json:"schedule_time,omitempty" form:"-"`
	Files        []*multipart.FileHeader `json:"-" form:"files"`
}

// PublishStatusResponse is the slim status projection.
type PublishStatusResponse struct {
	PublishID string `json:"publish_id"`
	Status    string `json:"status"`
}

// PlatformCapability describes one registered platform to clients.
type PlatformCapability struct {
	Platform       string `json:"platform"`
	MinMediaItems  int    `json:"min_media_items"`
	SupportsRevoke bool   `json:"supports_revoke"`
}
