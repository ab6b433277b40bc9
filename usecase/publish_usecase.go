package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type IPublishUsecase interface {
	Publish(ctx context.Context, userID string, req *dto.PublishRequest) (*model.PublishRecord, error)
	GetPublish(ctx context.Context, id, userID string) (*model.PublishRecord, error)
	GetPublishStatus(ctx context.Context, id, userID string) (*dto.PublishStatusResponse, error)
	RunDue(ctx context.Context, now time.Time, limit int) (int, error)
	Capabilities() []dto.PlatformCapability
}

// PublishUsecase fans a publish request out to every platform target in
// its own goroutine and aggregates the settled results into one record
// status. Targets never share mutable state; each reports back over a
// channel owned by the coordinator.
type PublishUsecase struct {
	registry    *PlatformRegistry
	accounts    repository.ILinkedAccount
	publishes   repository.IPublish
	media       repository.IMediaResolver
	auth        IAuth
	notifiers   []repository.IEventNotifier
	callTimeout time.Duration
}

func NewPublishUsecase(
	registry *PlatformRegistry,
	accounts repository.ILinkedAccount,
	publishes repository.IPublish,
	media repository.IMediaResolver,
	auth IAuth,
	callTimeout time.Duration,
	notifiers ...repository.IEventNotifier,
) *PublishUsecase {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &PublishUsecase{
		registry:    registry,
		accounts:    accounts,
		publishes:   publishes,
		media:       media,
		auth:        auth,
		notifiers:   notifiers,
		callTimeout: callTimeout,
	}
}

var _ IPublishUsecase = (*PublishUsecase)(nil)

// Publish validates the request, resolves media once, persists a PENDING
// record and either executes immediately or leaves it for the scheduler
// when the schedule time lies in the future.
func (u *PublishUsecase) Publish(ctx context.Context, userID string, req *dto.PublishRequest) (*model.PublishRecord, error) {
	if len(req.Platforms) == 0 {
		return nil, &model.ValidationError{Reason: "at least one platform target is required"}
	}
	if req.Content == "" {
		return nil, &model.ValidationError{Reason: "content is required"}
	}

	record := &model.PublishRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Content:      req.Content,
		Platforms:    req.Platforms,
		ScheduleTime: req.ScheduleTime,
		Status:       model.PublishStatusPending,
		MediaItems:   []model.MediaItem{},
		Results:      []model.PlatformResult{},
	}
	if err := u.publishes.Create(ctx, record); err != nil {
		return nil, err
	}

	media, err := u.resolveMedia(ctx, req)
	if err != nil {
		// Nothing was posted anywhere; close the record out as failed.
		if ferr := u.publishes.Finalize(ctx, record.ID, model.PublishStatusFailed, record.Results); ferr != nil {
			logger.GetLogger().WithField("error", ferr).Error("finalize after media failure failed")
		}
		return nil, err
	}
	record.MediaItems = media
	if len(media) > 0 {
		if err := u.publishes.UpdateMedia(ctx, record.ID, media); err != nil {
			return nil, err
		}
	}

	if record.ScheduleTime != nil && record.ScheduleTime.After(time.Now()) {
		logger.GetLogger().
			WithField("publish_id", record.ID).
			WithField("schedule_time", record.ScheduleTime).
			Info("publish scheduled")
		return record, nil
	}

	return u.execute(ctx, record)
}

// resolveMedia turns every uploaded file and remote URL into a durable
// media item, concurrently, preserving request order. One bad item fails
// the whole request before anything is posted anywhere.
func (u *PublishUsecase) resolveMedia(ctx context.Context, req *dto.PublishRequest) ([]model.MediaItem, error) {
	total := len(req.Files) + len(req.MediaURLs)
	if total == 0 {
		return []model.MediaItem{}, nil
	}

	items := make([]model.MediaItem, total)
	g, gctx := errgroup.WithContext(ctx)
	for i, fh := range req.Files {
		g.Go(func() error {
			item, err := u.media.ResolveFile(gctx, fh)
			if err != nil {
				return fmt.Errorf("media file %s: %w", fh.Filename, err)
			}
			items[i] = *item
			return nil
		})
	}
	for i, rawURL := range req.MediaURLs {
		g.Go(func() error {
			item, err := u.media.ResolveURL(gctx, rawURL)
			if err != nil {
				return fmt.Errorf("media url %s: %w", rawURL, err)
			}
			items[len(req.Files)+i] = *item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// execute fans out to all targets, waits for every one to settle, then
// finalizes the record with the aggregated status. Once dispatched the
// batch runs to completion: a client disconnect must not abandon
// targets mid-flight or strand the record in PENDING, so the batch
// settles on a context detached from the request's cancellation.
func (u *PublishUsecase) execute(ctx context.Context, record *model.PublishRecord) (*model.PublishRecord, error) {
	ctx = context.WithoutCancel(ctx)

	resultCh := make(chan model.PlatformResult, len(record.Platforms))
	for _, target := range record.Platforms {
		go func() {
			resultCh <- u.publishToTarget(ctx, record, target)
		}()
	}

	results := make([]model.PlatformResult, 0, len(record.Platforms))
	for range record.Platforms {
		results = append(results, <-resultCh)
	}

	record.Results = results
	record.Status = model.AggregateStatus(results)
	if err := u.publishes.Finalize(ctx, record.ID, record.Status, results); err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("publish_id", record.ID).
		WithField("status", record.Status).
		Info("publish settled")

	u.notify(record)
	return record, nil
}

// publishToTarget produces exactly one result for one target. Every
// failure mode becomes a failed result; nothing here aborts the sibling
// targets.
func (u *PublishUsecase) publishToTarget(ctx context.Context, record *model.PublishRecord, target model.PublishTarget) model.PlatformResult {
	result := model.PlatformResult{Platform: target.Platform, AccountID: target.AccountID}

	client, ok := u.registry.Get(target.Platform)
	if !ok {
		result.Error = fmt.Sprintf("unsupported platform: %s", target.Platform)
		return result
	}
	if spec := client.Spec(); len(record.MediaItems) < spec.MinMediaItems {
		result.Error = fmt.Sprintf("%s requires at least %d media item(s)", target.Platform, spec.MinMediaItems)
		return result
	}

	account, err := u.accounts.GetByID(ctx, target.AccountID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if account == nil || account.UserID != record.UserID || account.Platform != target.Platform {
		result.Error = fmt.Sprintf("account %d is not linked for %s", target.AccountID, target.Platform)
		return result
	}

	account, err = u.auth.EnsureValidToken(ctx, account)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()
	post, err := client.Post(callCtx, account, record.Content, record.MediaItems, target.Params)
	if err != nil {
		logger.GetLogger().
			WithField("publish_id", record.ID).
			WithField("platform", target.Platform).
			WithField("error", err).
			Warn("platform post failed")
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PostID = post.PlatformPostID
	postedAt := post.PostedAt
	result.PostedAt = &postedAt
	return result
}

// notify pushes the settled record to every configured notifier.
// Fire-and-forget: failures are logged and never reach the caller.
func (u *PublishUsecase) notify(record *model.PublishRecord) {
	if len(u.notifiers) == 0 {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("marshal publish event failed")
		return
	}
	for _, n := range u.notifiers {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := n.Notify(ctx, payload); err != nil {
				logger.GetLogger().WithField("error", err).Warn("publish event notify failed")
			}
		}()
	}
}

func (u *PublishUsecase) GetPublish(ctx context.Context, id, userID string) (*model.PublishRecord, error) {
	record, err := u.publishes.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &model.NotFoundError{Entity: "publish record", ID: id}
	}
	return record, nil
}

func (u *PublishUsecase) GetPublishStatus(ctx context.Context, id, userID string) (*dto.PublishStatusResponse, error) {
	record, err := u.GetPublish(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &dto.PublishStatusResponse{PublishID: record.ID, Status: record.Status}, nil
}

// RunDue executes pending records whose schedule time has passed. Called
// by the scheduler loop; returns how many records were executed.
func (u *PublishUsecase) RunDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := u.publishes.FetchDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	for _, record := range due {
		if _, err := u.execute(ctx, record); err != nil {
			logger.GetLogger().
				WithField("publish_id", record.ID).
				WithField("error", err).
				Error("scheduled publish failed to finalize")
		}
	}
	return len(due), nil
}

func (u *PublishUsecase) Capabilities() []dto.PlatformCapability {
	return u.registry.Capabilities()
}
