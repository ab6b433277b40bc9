package usecase_test

import (
	"context"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/usecase"
)

type MockPublishRepo struct {
	mock.Mock
}

func (m *MockPublishRepo) Create(ctx context.Context, record *model.PublishRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPublishRepo) UpdateMedia(ctx context.Context, id string, media []model.MediaItem) error {
	args := m.Called(ctx, id, media)
	return args.Error(0)
}

func (m *MockPublishRepo) Finalize(ctx context.Context, id, status string, results []model.PlatformResult) error {
	args := m.Called(ctx, id, status, results)
	return args.Error(0)
}

func (m *MockPublishRepo) GetByID(ctx context.Context, id, userID string) (*model.PublishRecord, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishRecord), args.Error(1)
}

func (m *MockPublishRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishRecord, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishRecord), args.Error(1)
}

// fakeResolver returns canned media items.
type fakeResolver struct {
	items map[string]model.MediaItem
}

func (r *fakeResolver) ResolveFile(ctx context.Context, file *multipart.FileHeader) (*model.MediaItem, error) {
	item := model.MediaItem{URL: "http://media.local/" + file.Filename, MimeType: "image/png", Size: 1}
	return &item, nil
}

func (r *fakeResolver) ResolveURL(ctx context.Context, rawURL string) (*model.MediaItem, error) {
	if item, ok := r.items[rawURL]; ok {
		return &item, nil
	}
	return &model.MediaItem{URL: rawURL, MimeType: "image/jpeg", Size: 1}, nil
}

// passthroughAuth hands the account back untouched.
type passthroughAuth struct{}

func (passthroughAuth) GetAuthorizationURL(ctx context.Context, platform, userID string) (string, error) {
	return "", nil
}
func (passthroughAuth) HandleCallback(ctx context.Context, platform, code, state string) (*model.LinkedAccount, error) {
	return nil, nil
}
func (passthroughAuth) RefreshToken(ctx context.Context, accountID int64) (*model.LinkedAccount, error) {
	return nil, nil
}
func (passthroughAuth) EnsureValidToken(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error) {
	return account, nil
}
func (passthroughAuth) RevokeToken(ctx context.Context, platform string, accountID int64, token string) error {
	return nil
}
func (passthroughAuth) ListAccounts(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	return nil, nil
}
func (passthroughAuth) GetAccountMetrics(ctx context.Context, userID string, accountID int64) (*model.AccountMetrics, error) {
	return nil, nil
}
func (passthroughAuth) GetPostMetrics(ctx context.Context, userID string, accountID int64, postID string) (*model.PostMetrics, error) {
	return nil, nil
}

func linkedAccount(id int64, userID, platform string) *model.LinkedAccount {
	return &model.LinkedAccount{
		ID:             id,
		UserID:         userID,
		Platform:       platform,
		ProviderUserID: "provider",
		AccessToken:    "token",
		Status:         model.AccountStatusActive,
	}
}

func newPublishFixture(clients ...*fakePlatform) (*usecase.PublishUsecase, *MockLinkedAccountRepo, *MockPublishRepo) {
	registry := usecase.NewPlatformRegistry()
	for _, c := range clients {
		registry.Register(c)
	}
	accounts := &MockLinkedAccountRepo{}
	publishes := &MockPublishRepo{}
	pu := usecase.NewPublishUsecase(registry, accounts, publishes, &fakeResolver{}, passthroughAuth{}, time.Second)
	return pu, accounts, publishes
}

func TestPublish_EmptyPlatformListRejected(t *testing.T) {
	pu, _, publishes := newPublishFixture(&fakePlatform{name: "facebook"})

	_, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{Content: "hello"})

	var valErr *model.ValidationError
	require.ErrorAs(t, err, &valErr)
	publishes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPublish_AllTargetsSucceed(t *testing.T) {
	pu, accounts, publishes := newPublishFixture(
		&fakePlatform{name: "facebook"},
		&fakePlatform{name: "twitter"},
	)
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)
	accounts.On("GetByID", mock.Anything, int64(2)).Return(linkedAccount(2, "user-1", "twitter"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, model.PublishStatusCompleted, mock.Anything).Return(nil)

	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content: "hello",
		Platforms: []model.PublishTarget{
			{Platform: "facebook", AccountID: 1},
			{Platform: "twitter", AccountID: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusCompleted, record.Status)
	assert.Len(t, record.Results, 2)
	for _, r := range record.Results {
		assert.True(t, r.Success)
		assert.NotEmpty(t, r.PostID)
	}
	publishes.AssertExpectations(t)
}

func TestPublish_MixedOutcomeIsPartiallyCompleted(t *testing.T) {
	// Instagram needs media; the request has none, so that target fails
	// locally while facebook succeeds.
	pu, accounts, publishes := newPublishFixture(
		&fakePlatform{name: "facebook"},
		&fakePlatform{name: "instagram", spec: model.PlatformSpec{MinMediaItems: 1}},
	)
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, model.PublishStatusPartiallyCompleted, mock.Anything).Return(nil)

	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content: "hello",
		Platforms: []model.PublishTarget{
			{Platform: "facebook", AccountID: 1},
			{Platform: "instagram", AccountID: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPartiallyCompleted, record.Status)

	byPlatform := map[string]model.PlatformResult{}
	for _, r := range record.Results {
		byPlatform[r.Platform] = r
	}
	assert.True(t, byPlatform["facebook"].Success)
	assert.False(t, byPlatform["instagram"].Success)
	assert.Contains(t, byPlatform["instagram"].Error, "media")
	publishes.AssertExpectations(t)
}

func TestPublish_AllTargetsFail(t *testing.T) {
	failing := &fakePlatform{
		name: "twitter",
		postFn: func(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
			return nil, assert.AnError
		},
	}
	pu, accounts, publishes := newPublishFixture(failing)
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "twitter"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, model.PublishStatusFailed, mock.Anything).Return(nil)

	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content:   "hello",
		Platforms: []model.PublishTarget{{Platform: "twitter", AccountID: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusFailed, record.Status)
	assert.NotEmpty(t, record.Results[0].Error)
}

func TestPublish_UnsupportedPlatformBecomesFailedResult(t *testing.T) {
	pu, accounts, publishes := newPublishFixture(&fakePlatform{name: "facebook"})
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, model.PublishStatusPartiallyCompleted, mock.Anything).Return(nil)

	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content: "hello",
		Platforms: []model.PublishTarget{
			{Platform: "facebook", AccountID: 1},
			{Platform: "myspace", AccountID: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPartiallyCompleted, record.Status)
}

func TestPublish_ForeignAccountBecomesFailedResult(t *testing.T) {
	pu, accounts, publishes := newPublishFixture(&fakePlatform{name: "facebook"})
	// The account exists but belongs to someone else.
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "other-user", "facebook"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, model.PublishStatusFailed, mock.Anything).Return(nil)

	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content:   "hello",
		Platforms: []model.PublishTarget{{Platform: "facebook", AccountID: 1}},
	})
	require.NoError(t, err)
	assert.False(t, record.Results[0].Success)
	assert.Contains(t, record.Results[0].Error, "not linked")
}

func TestPublish_FutureScheduleStaysPending(t *testing.T) {
	posted := false
	client := &fakePlatform{
		name: "facebook",
		postFn: func(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
			posted = true
			return &model.PlatformPost{PlatformPostID: "p"}, nil
		},
	}
	pu, _, publishes := newPublishFixture(client)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)

	future := time.Now().Add(time.Hour)
	record, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content:      "hello",
		Platforms:    []model.PublishTarget{{Platform: "facebook", AccountID: 1}},
		ScheduleTime: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPending, record.Status)
	assert.False(t, posted)
	publishes.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_TargetsRunConcurrently(t *testing.T) {
	// Both targets sleep; a serial run would exceed the elapsed bound.
	var mu sync.Mutex
	starts := []time.Time{}
	slow := func(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(100 * time.Millisecond)
		return &model.PlatformPost{PlatformPostID: "p"}, nil
	}
	pu, accounts, publishes := newPublishFixture(
		&fakePlatform{name: "facebook", postFn: slow},
		&fakePlatform{name: "twitter", postFn: slow},
	)
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)
	accounts.On("GetByID", mock.Anything, int64(2)).Return(linkedAccount(2, "user-1", "twitter"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	publishes.On("Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	start := time.Now()
	_, err := pu.Publish(context.Background(), "user-1", &dto.PublishRequest{
		Content: "hello",
		Platforms: []model.PublishTarget{
			{Platform: "facebook", AccountID: 1},
			{Platform: "twitter", AccountID: 2},
		},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 180*time.Millisecond)
	assert.Len(t, starts, 2)
}

func TestPublish_ClientDisconnectDoesNotAbortBatch(t *testing.T) {
	// The request context is already dead when the fan-out starts; every
	// target must still run and the record must still be finalized.
	client := &fakePlatform{
		name: "facebook",
		postFn: func(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &model.PlatformPost{PlatformPostID: "p-1", PostedAt: time.Now()}, nil
		},
	}
	pu, accounts, publishes := newPublishFixture(client)
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)
	publishes.On("Create", mock.Anything, mock.Anything).Return(nil)
	liveCtx := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	publishes.On("Finalize", liveCtx, mock.Anything, model.PublishStatusCompleted, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := pu.Publish(ctx, "user-1", &dto.PublishRequest{
		Content:   "hello",
		Platforms: []model.PublishTarget{{Platform: "facebook", AccountID: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusCompleted, record.Status)
	require.Len(t, record.Results, 1)
	assert.True(t, record.Results[0].Success)
	publishes.AssertExpectations(t)
}

func TestGetPublish_NotFound(t *testing.T) {
	pu, _, publishes := newPublishFixture(&fakePlatform{name: "facebook"})
	publishes.On("GetByID", mock.Anything, "missing", "user-1").Return(nil, nil)

	_, err := pu.GetPublish(context.Background(), "missing", "user-1")
	var notFound *model.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetPublishStatus(t *testing.T) {
	pu, _, publishes := newPublishFixture(&fakePlatform{name: "facebook"})
	publishes.On("GetByID", mock.Anything, "rec-1", "user-1").Return(&model.PublishRecord{
		ID:     "rec-1",
		UserID: "user-1",
		Status: model.PublishStatusCompleted,
	}, nil)

	status, err := pu.GetPublishStatus(context.Background(), "rec-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", status.PublishID)
	assert.Equal(t, model.PublishStatusCompleted, status.Status)
}

func TestRunDue_ExecutesDueRecords(t *testing.T) {
	pu, accounts, publishes := newPublishFixture(&fakePlatform{name: "facebook"})
	accounts.On("GetByID", mock.Anything, int64(1)).Return(linkedAccount(1, "user-1", "facebook"), nil)

	past := time.Now().Add(-time.Minute)
	due := &model.PublishRecord{
		ID:           "due-1",
		UserID:       "user-1",
		Content:      "scheduled",
		Platforms:    []model.PublishTarget{{Platform: "facebook", AccountID: 1}},
		ScheduleTime: &past,
		Status:       model.PublishStatusPending,
	}
	now := time.Now()
	publishes.On("FetchDue", mock.Anything, now, 10).Return([]*model.PublishRecord{due}, nil)
	publishes.On("Finalize", mock.Anything, "due-1", model.PublishStatusCompleted, mock.Anything).Return(nil)

	n, err := pu.RunDue(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	publishes.AssertExpectations(t)
}

func TestCapabilities(t *testing.T) {
	pu, _, _ := newPublishFixture(
		&fakePlatform{name: "instagram", spec: model.PlatformSpec{MinMediaItems: 1}},
		&fakePlatform{name: "facebook", spec: model.PlatformSpec{SupportsRevoke: true}},
	)
	caps := pu.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "facebook", caps[0].Platform, "sorted by name")
	assert.True(t, caps[0].SupportsRevoke)
	assert.Equal(t, 1, caps[1].MinMediaItems)
}
