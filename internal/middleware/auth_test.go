package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/internal/db"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth(t *testing.T) {
	database, err := db.InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	userStore := store.NewUserStore(database)
	user := &users.User{ID: uuid.New(), Email: "alice@example.org", Username: "alicesmith", CreatedAt: time.Now()}
	require.NoError(t, userStore.CreateUser(context.Background(), user))

	sessions := scs.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/login-as", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			sessions.Put(r.Context(), sessionUserID, r.URL.Query().Get("id"))
			return
		}
		require.NoError(t, Login(r.Context(), sessions, id))
	})
	var seen *users.User
	mux.Handle("/private", RequireAuth(sessions, userStore)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, user.ID, id)
		seen = GetAuthenticatedUser(r.Context())
	})))
	handler := sessions.LoadAndSave(mux)

	get := func(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous is redirected", func(t *testing.T) {
		rec := get("/private", nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("signed in user passes", func(t *testing.T) {
		login := get("/login-as?id="+user.ID.String(), nil)
		rec := get("/private", login.Result().Cookies())
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "alicesmith", seen.Username)
	})

	t.Run("deleted user is redirected", func(t *testing.T) {
		login := get("/login-as?id="+uuid.New().String(), nil)
		rec := get("/private", login.Result().Cookies())
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("malformed session id is redirected", func(t *testing.T) {
		login := get("/login-as?id=not-a-uuid", nil)
		rec := get("/private", login.Result().Cookies())
		assert.Equal(t, http.StatusFound, rec.Code)
	})
}

func TestInitAuth(t *testing.T) {
	assert.Empty(t, InitAuth(config.Auth{}))

	names := InitAuth(config.Auth{
		Google:  config.OAuthProvider{Key: "key", Secret: "secret", CallbackURL: "http://localhost/auth/google/callback"},
		Discord: config.OAuthProvider{Key: "key", Secret: "secret", CallbackURL: "http://localhost/auth/discord/callback"},
	})
	assert.Equal(t, []string{"discord", "google"}, names)
}
