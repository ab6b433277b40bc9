package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"social-hub/domain/model"
)

// PublishRepository implements publish record persistence on PostgreSQL.
// Targets, media items and results are stored as JSONB documents; the
// record is an audit trail, not a query surface.
type PublishRepository struct{ db *sql.DB }

func NewPublishRepository(db *sql.DB) *PublishRepository { return &PublishRepository{db: db} }

func (r *PublishRepository) Create(ctx context.Context, rec *model.PublishRecord) error {
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
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.UserID, rec.Content, platforms, rec.ScheduleTime, rec.Status, media, results, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *PublishRepository) UpdateMedia(ctx context.Context, id string, items []model.MediaItem) error {
	media, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE publish_records SET media_items=$1, updated_at=$2 WHERE id=$3`,
		media, time.Now().UTC(), id)
	return err
}

func (r *PublishRepository) Finalize(ctx context.Context, id, status string, results []model.PlatformResult) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE publish_records SET status=$1, results=$2, updated_at=$3 WHERE id=$4`,
		status, raw, time.Now().UTC(), id)
	return err
}

func (r *PublishRepository) GetByID(ctx context.Context, id, userID string) (*model.PublishRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, content, platforms, schedule_time, status, media_items, results, created_at, updated_at
		 FROM publish_records WHERE id=$1 AND user_id=$2`, id, userID)
	rec, err := scanPublishRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *PublishRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, content, platforms, schedule_time, status, media_items, results, created_at, updated_at
		 FROM publish_records
		 WHERE status=$1 AND schedule_time IS NOT NULL AND schedule_time <= $2
		 ORDER BY schedule_time ASC LIMIT $3`,
		model.PublishStatusPending, now, limit)
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

func scanPublishRecord(row rowScanner) (*model.PublishRecord, error) {
	rec := &model.PublishRecord{}
	var platforms, media, results []byte
	var schedule sql.NullTime
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Content, &platforms, &schedule, &rec.Status,
		&media, &results, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if schedule.Valid {
		t := schedule.Time
		rec.ScheduleTime = &t
	}
	if len(platforms) > 0 {
		if err := json.Unmarshal(platforms, &rec.Platforms); err != nil {
			return nil, err
		}
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &rec.MediaItems); err != nil {
			return nil, err
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
