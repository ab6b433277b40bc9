package persistence

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-hub/domain/model"
)

func TestPublishRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishRepository(db)

	rec := &model.PublishRecord{
		ID:      "rec-1",
		UserID:  "user-1",
		Content: "hello",
		Platforms: []model.PublishTarget{
			{Platform: "facebook", AccountID: 1},
		},
		Status:     model.PublishStatusPending,
		MediaItems: []model.MediaItem{},
		Results:    []model.PlatformResult{},
	}

	mock.ExpectExec(`INSERT INTO publish_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishRepository_GetByID_ScopedToUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishRepository(db)

	now := time.Now().UTC()
	platforms, _ := json.Marshal([]model.PublishTarget{{Platform: "twitter", AccountID: 2}})
	results, _ := json.Marshal([]model.PlatformResult{{Platform: "twitter", AccountID: 2, Success: true, PostID: "t-1"}})

	query := `(?s)SELECT .+ FROM publish_records WHERE id=\$1 AND user_id=\$2`

	mock.ExpectQuery(query).
		WithArgs("rec-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "content", "platforms", "schedule_time", "status",
			"media_items", "results", "created_at", "updated_at",
		}).AddRow("rec-1", "user-1", "hello", platforms, nil, model.PublishStatusCompleted, []byte(`[]`), results, now, now))

	got, err := repo.GetByID(context.Background(), "rec-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.PublishStatusCompleted, got.Status)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "t-1", got.Results[0].PostID)

	// Same record id under another user: no row, reported as missing.
	mock.ExpectQuery(query).
		WithArgs("rec-1", "intruder").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err = repo.GetByID(context.Background(), "rec-1", "intruder")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishRepository_Finalize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishRepository(db)

	results := []model.PlatformResult{
		{Platform: "facebook", AccountID: 1, Success: true, PostID: "f-1"},
		{Platform: "instagram", AccountID: 2, Success: false, Error: "no media"},
	}
	raw, _ := json.Marshal(results)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE publish_records SET status=$1, results=$2, updated_at=$3 WHERE id=$4`)).
		WithArgs(model.PublishStatusPartiallyCompleted, raw, sqlmock.AnyArg(), "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Finalize(context.Background(), "rec-1", model.PublishStatusPartiallyCompleted, results))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishRepository_FetchDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishRepository(db)

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	platforms, _ := json.Marshal([]model.PublishTarget{{Platform: "youtube", AccountID: 3}})

	mock.ExpectQuery(`(?s)SELECT .+ FROM publish_records`).
		WithArgs(model.PublishStatusPending, now, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "content", "platforms", "schedule_time", "status",
			"media_items", "results", "created_at", "updated_at",
		}).AddRow("due-1", "user-1", "scheduled", platforms, past, model.PublishStatusPending, []byte(`[]`), []byte(`[]`), past, past))

	due, err := repo.FetchDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due-1", due[0].ID)
	require.NotNil(t, due[0].ScheduleTime)
	require.NoError(t, mock.ExpectationsWereMet())
}
