package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-hub/domain/model"
)

// LinkedAccountRepository implements linked account persistence on PostgreSQL.
type LinkedAccountRepository struct{ db *sql.DB }

func NewLinkedAccountRepository(db *sql.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

const linkedAccountColumns = `id, user_id, platform, provider_user_id, display_name, avatar_url, access_token, refresh_token, expires_at, scopes, status, page_id, page_name, created_at, updated_at`

func (r *LinkedAccountRepository) Upsert(ctx context.Context, a *model.LinkedAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = model.AccountStatusActive
	}
	q := `INSERT INTO linked_accounts (user_id, platform, provider_user_id, display_name, avatar_url, access_token, refresh_token, expires_at, scopes, status, page_id, page_name, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		  ON CONFLICT (user_id, platform, provider_user_id) DO UPDATE SET
			display_name=EXCLUDED.display_name,
			avatar_url=EXCLUDED.avatar_url,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			status=EXCLUDED.status,
			page_id=EXCLUDED.page_id,
			page_name=EXCLUDED.page_name,
			updated_at=EXCLUDED.updated_at
		  RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		a.UserID, a.Platform, a.ProviderUserID, a.DisplayName, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scopes, a.Status,
		a.PageID, a.PageName, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *LinkedAccountRepository) GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`, id)
	a, err := scanLinkedAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *LinkedAccountRepository) ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE user_id=$1 ORDER BY platform, id`, userID)
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

func (r *LinkedAccountRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET access_token=$1, refresh_token=$2, expires_at=$3, updated_at=$4 WHERE id=$5`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), id)
	return err
}

func (r *LinkedAccountRepository) MarkRevoked(ctx context.Context, platform, accessToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET status=$1, updated_at=$2 WHERE platform=$3 AND access_token=$4`,
		model.AccountStatusRevoked, time.Now().UTC(), platform, accessToken)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLinkedAccount(row rowScanner) (*model.LinkedAccount, error) {
	a := &model.LinkedAccount{}
	var avatar, pageID, pageName sql.NullString
	var exp sql.NullTime
	if err := row.Scan(&a.ID, &a.UserID, &a.Platform, &a.ProviderUserID, &a.DisplayName, &avatar,
		&a.AccessToken, &a.RefreshToken, &exp, &a.Scopes, &a.Status, &pageID, &pageName,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if avatar.Valid {
		v := avatar.String
		a.AvatarURL = &v
	}
	if exp.Valid {
		t := exp.Time
		a.ExpiresAt = &t
	}
	if pageID.Valid {
		v := pageID.String
		a.PageID = &v
	}
	if pageName.Valid {
		v := pageName.String
		a.PageName = &v
	}
	return a, nil
}
