package middleware

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/op-chess-club/internal/config"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// sessionUserID is the session key holding the signed in user's id.
const sessionUserID = "userID"

// UserLookup finds the account behind a session.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// InitAuth registers every configured OAuth provider and returns their names in the order
// the login page offers them.
func InitAuth(cfg config.Auth) []string {
	var providers []goth.Provider
	var names []string

	if cfg.Discord.Key != "" {
		providers = append(providers, discord.New(cfg.Discord.Key, cfg.Discord.Secret, cfg.Discord.CallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
		names = append(names, "discord")
	}
	if cfg.Google.Key != "" {
		providers = append(providers, google.New(cfg.Google.Key, cfg.Google.Secret, cfg.Google.CallbackURL, "email", "profile"))
		names = append(names, "google")
	}

	if len(providers) == 0 {
		log.Warn().Msg("no login provider configured, nobody can sign in")
		return nil
	}
	goth.UseProviders(providers...)
	return names
}

// Login binds the session to userID. The token is renewed to avoid session fixation.
func Login(ctx context.Context, sessionManager *scs.SessionManager, userID uuid.UUID) error {
	if err := sessionManager.RenewToken(ctx); err != nil {
		return err
	}
	sessionManager.Put(ctx, sessionUserID, userID.String())
	return nil
}

// RequireAuth redirects to the login page unless the session belongs to an existing user,
// whose id and record it puts into the request context.
func RequireAuth(sessionManager *scs.SessionManager, lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := sessionUser(r.Context(), sessionManager, lookup)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			ctx = context.WithValue(ctx, users.UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionUser resolves the session's user. A malformed id or an account deleted while the
// session lived on clears the session binding.
func sessionUser(ctx context.Context, sessionManager *scs.SessionManager, lookup UserLookup) (*users.User, bool) {
	raw := sessionManager.GetString(ctx, sessionUserID)
	if raw == "" {
		return nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		sessionManager.Remove(ctx, sessionUserID)
		return nil, false
	}

	user, err := lookup.GetUser(ctx, userID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", raw).Msg("session user not found")
		sessionManager.Remove(ctx, sessionUserID)
		return nil, false
	}
	return user, true
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}
