package store

import (
	"context"

	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	userColumns            = `id, email, username, name, created_at, provider, provider_id, avatar_url`
	getUserQuery           = "SELECT " + userColumns + " FROM users WHERE id = ?"
	getUserByProviderQuery = `
        SELECT ` + userColumns + ` FROM users
        WHERE provider = ?
        AND provider_id = ?
    `
	createUserQuery = `
		INSERT INTO users (id, email, username, name, created_at, provider, provider_id, avatar_url) VALUES
		(:id, :email, :username, :name, :created_at, :provider, :provider_id, :avatar_url)
	`
	updateUserNameAndAvatarQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url
		WHERE id = :id
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserByProviderQuery, provider, providerID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers returns the users with the given IDs. Unknown IDs are skipped.
func (s *UserStore) GetUsers(ctx context.Context, ids []uuid.UUID) ([]users.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?) ORDER BY username", ids)
	if err != nil {
		return nil, err
	}

	var result []users.User
	err = s.db.SelectContext(ctx, &result, s.db.Rebind(query), args...)
	return result, err
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

func (s *UserStore) UpdateUserNameAndAvatar(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, updateUserNameAndAvatarQuery, user)
	return err
}

// DeleteUser removes the account. Their match slots are nulled, not deleted.
func (s *UserStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res)
}
