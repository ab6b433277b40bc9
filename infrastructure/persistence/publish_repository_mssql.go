package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"social-hub/domain/model"
)

// PublishRepositoryMSSQL is the SQL Server variant. JSON documents go
// into NVARCHAR(MAX) columns.
type PublishRepositoryMSSQL struct{ db *sql.DB }

func NewPublishRepositoryMSSQL(db *sql.DB) *PublishRepositoryMSSQL {
	return &PublishRepositoryMSSQL{db: db}
}

func (r *PublishRepositoryMSSQL) Create(ctx context.Context, rec *model.PublishRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	platforms, err := json.Marshal(rec.Platforms)
	if err != nil {
		return err
	}
	media, err := json.Marshal(rec.MediaItems)
	if err != nil {
		return err
	}
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO publish_records (id, user_id, content, platforms, schedule_time, status, media_items, results, created_at, updated_at)
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`,
		rec.ID, rec.UserID, rec.Content, string(platforms), rec.ScheduleTime, rec.Status, string(media), string(results), rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *PublishRepositoryMSSQL) UpdateMedia(ctx context.Context, id string, items []model.MediaItem) error {
	media, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE publish_records SET media_items=@p1, updated_at=@p2 WHERE id=@p3`,
		string(media), time.Now().UTC(), id)
	return err
}

func (r *PublishRepositoryMSSQL) Finalize(ctx context.Context, id, status string, results []model.PlatformResult) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE publish_records SET status=@p1, results=@p2, updated_at=@p3 WHERE id=@p4`,
		status, string(raw), time.Now().UTC(), id)
	return err
}

func (r *PublishRepositoryMSSQL) GetByID(ctx context.Context, id, userID string) (*model.PublishRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, content, platforms, schedule_time, status, media_items, results, created_at, updated_at
		 FROM publish_records WHERE id=@p1 AND user_id=@p2`, id, userID)
	rec, err := scanPublishRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *PublishRepositoryMSSQL) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p1) id, user_id, content, platforms, schedule_time, status, media_items, results, created_at, updated_at
		 FROM publish_records
		 WHERE status=@p2 AND schedule_time IS NOT NULL AND schedule_time <= @p3
		 ORDER BY schedule_time ASC`,
		limit, model.PublishStatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishRecord
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
