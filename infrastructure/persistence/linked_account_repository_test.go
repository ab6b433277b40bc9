package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-hub/domain/model"
)

func linkedAccountRows(a *model.LinkedAccount) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "platform", "provider_user_id", "display_name", "avatar_url",
		"access_token", "refresh_token", "expires_at", "scopes", "status",
		"page_id", "page_name", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.UserID, a.Platform, a.ProviderUserID, a.DisplayName, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scopes, a.Status,
		a.PageID, a.PageName, a.CreatedAt, a.UpdatedAt,
	)
}

func TestLinkedAccountRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkedAccountRepository(db)

	now := time.Now().UTC()
	stored := &model.LinkedAccount{
		ID:             7,
		UserID:         "user-1",
		Platform:       "facebook",
		ProviderUserID: "fb-123",
		DisplayName:    "Test Page Owner",
		AccessToken:    "tok",
		RefreshToken:   "tok",
		Scopes:         "pages_show_list",
		Status:         model.AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnRows(linkedAccountRows(stored))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.ProviderUserID, got.ProviderUserID)
	assert.Nil(t, got.AvatarURL)
	assert.Nil(t, got.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_GetByID_MissingReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkedAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_Upsert_FillsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkedAccountRepository(db)

	account := &model.LinkedAccount{
		UserID:         "user-1",
		Platform:       "twitter",
		ProviderUserID: "tw-9",
		DisplayName:    "Tester",
		AccessToken:    "a",
		RefreshToken:   "r",
	}

	mock.ExpectQuery(`INSERT INTO linked_accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	require.NoError(t, repo.Upsert(context.Background(), account))
	assert.Equal(t, int64(11), account.ID)
	assert.Equal(t, model.AccountStatusActive, account.Status, "status defaults to active")
	assert.False(t, account.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkedAccountRepository(db)

	exp := time.Now().Add(time.Hour).UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE linked_accounts SET access_token=$1, refresh_token=$2, expires_at=$3, updated_at=$4 WHERE id=$5`)).
		WithArgs("new-a", "new-r", exp, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateTokens(context.Background(), 7, "new-a", "new-r", &exp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_MarkRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkedAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE linked_accounts SET status=$1, updated_at=$2 WHERE platform=$3 AND access_token=$4`)).
		WithArgs(model.AccountStatusRevoked, sqlmock.AnyArg(), "facebook", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRevoked(context.Background(), "facebook", "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}
