package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AdamBeresnev/op-chess-club/internal/store"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/AdamBeresnev/op-chess-club/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/markbates/goth"
	"github.com/rs/zerolog/log"
)

type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
	clock clockwork.Clock
}

func NewUserService(db *sqlx.DB, store *store.UserStore, clock clockwork.Clock) *UserService {
	return &UserService{db: db, store: store, clock: clock}
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != username(gothUser) {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = username(gothUser)
			if err := s.store.UpdateUserNameAndAvatar(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username(gothUser),
			Name:       gothUser.Name,
			CreatedAt:  s.clock.Now().UTC(),
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}

// DeleteAccount removes the user. Their played matches stay with an empty slot, so drawn
// elimination games against them become walkovers.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("account deleted")
	return nil
}

// Providers without a nickname fall back to the local part of the email.
func username(gothUser goth.User) string {
	if gothUser.NickName != "" {
		return gothUser.NickName
	}
	if local, _, ok := strings.Cut(gothUser.Email, "@"); ok && local != "" {
		return local
	}
	return gothUser.Name
}
