package repository

import (
	"context"
	"mime/multipart"

	"social-hub/domain/model"
)

// IMediaResolver turns uploaded files and remote URLs into durable,
// publicly fetchable media descriptors. Each input is resolved exactly
// once per publish request; all platform targets share the result.
type IMediaResolver interface {
	ResolveFile(ctx context.Context, file *multipart.FileHeader) (*model.MediaItem, error)
	ResolveURL(ctx context.Context, rawURL string) (*model.MediaItem, error)
}
