package repository

import (
	"context"
	"time"

	"social-hub/domain/model"
)

// IPublish persists publish records. Records are append-mostly: created
// PENDING, updated after media resolution, finalized once every target
// has settled. Never deleted.
type IPublish interface {
	Create(ctx context.Context, record *model.PublishRecord) error
	UpdateMedia(ctx context.Context, id string, media []model.MediaItem) error
	Finalize(ctx context.Context, id, status string, results []model.PlatformResult) error
	// GetByID is scoped to the requesting user; a record owned by another
	// user is reported as not found.
	GetByID(ctx context.Context, id, userID string) (*model.PublishRecord, error)
	// FetchDue returns pending records whose schedule time has passed.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishRecord, error)
}
