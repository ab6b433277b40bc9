package persistence

import (
	"context"
	"database/sql"
	"errors"

	"social-hub/domain/model"
)

// OAuthStateRepository is the durable fallback behind the cache-backed
// state store. Rows are deleted on consumption; ExpiresAt is enforced by
// the state store on read.
type OAuthStateRepository struct{ db *sql.DB }

func NewOAuthStateRepository(db *sql.DB) *OAuthStateRepository {
	return &OAuthStateRepository{db: db}
}

func (r *OAuthStateRepository) Save(ctx context.Context, s *model.OAuthState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_states (token, platform, user_id, created_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (token) DO NOTHING`,
		s.Token, s.Platform, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *OAuthStateRepository) Get(ctx context.Context, token string) (*model.OAuthState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, platform, user_id, created_at, expires_at FROM oauth_states WHERE token=$1`, token)
	s := &model.OAuthState{}
	if err := row.Scan(&s.Token, &s.Platform, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *OAuthStateRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE token=$1`, token)
	return err
}
