package persistence

import (
	"context"
	"database/sql"
	"errors"

	"social-hub/domain/model"
)

// OAuthStateRepositoryMSSQL is the SQL Server variant of the durable
// state fallback.
type OAuthStateRepositoryMSSQL struct{ db *sql.DB }

func NewOAuthStateRepositoryMSSQL(db *sql.DB) *OAuthStateRepositoryMSSQL {
	return &OAuthStateRepositoryMSSQL{db: db}
}

func (r *OAuthStateRepositoryMSSQL) Save(ctx context.Context, s *model.OAuthState) error {
	_, err := r.db.ExecContext(ctx,
		`IF NOT EXISTS (SELECT 1 FROM oauth_states WHERE token=@p1)
		 INSERT INTO oauth_states (token, platform, user_id, created_at, expires_at)
		 VALUES (@p1,@p2,@p3,@p4,@p5)`,
		s.Token, s.Platform, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *OAuthStateRepositoryMSSQL) Get(ctx context.Context, token string) (*model.OAuthState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, platform, user_id, created_at, expires_at FROM oauth_states WHERE token=@p1`, token)
	s := &model.OAuthState{}
	if err := row.Scan(&s.Token, &s.Platform, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *OAuthStateRepositoryMSSQL) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE token=@p1`, token)
	return err
}
