package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-hub/domain/model"
)

// LinkedAccountRepositoryMSSQL is the SQL Server variant used on the
// production path (Azure SQL).
type LinkedAccountRepositoryMSSQL struct{ db *sql.DB }

func NewLinkedAccountRepositoryMSSQL(db *sql.DB) *LinkedAccountRepositoryMSSQL {
	return &LinkedAccountRepositoryMSSQL{db: db}
}

func (r *LinkedAccountRepositoryMSSQL) Upsert(ctx context.Context, a *model.LinkedAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = model.AccountStatusActive
	}
	q := `MERGE linked_accounts AS t
		  USING (SELECT @p1 AS user_id, @p2 AS platform, @p3 AS provider_user_id) AS s
		  ON t.user_id = s.user_id AND t.platform = s.platform AND t.provider_user_id = s.provider_user_id
		  WHEN MATCHED THEN UPDATE SET
			display_name=@p4, avatar_url=@p5, access_token=@p6, refresh_token=@p7,
			expires_at=@p8, scopes=@p9, status=@p10, page_id=@p11, page_name=@p12, updated_at=@p14
		  WHEN NOT MATCHED THEN INSERT
			(user_id, platform, provider_user_id, display_name, avatar_url, access_token, refresh_token, expires_at, scopes, status, page_id, page_name, created_at, updated_at)
			VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14)
		  OUTPUT inserted.id;`
	return r.db.QueryRowContext(ctx, q,
		a.UserID, a.Platform, a.ProviderUserID, a.DisplayName, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scopes, a.Status,
		a.PageID, a.PageName, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *LinkedAccountRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=@p1`, id)
	a, err := scanLinkedAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *LinkedAccountRepositoryMSSQL) ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE user_id=@p1 ORDER BY platform, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.LinkedAccount
	for rows.Next() {
		a, err := scanLinkedAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *LinkedAccountRepositoryMSSQL) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET access_token=@p1, refresh_token=@p2, expires_at=@p3, updated_at=@p4 WHERE id=@p5`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), id)
	return err
}

func (r *LinkedAccountRepositoryMSSQL) MarkRevoked(ctx context.Context, platform, accessToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET status=@p1, updated_at=@p2 WHERE platform=@p3 AND access_token=@p4`,
		model.AccountStatusRevoked, time.Now().UTC(), platform, accessToken)
	return err
}
