package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/AdamBeresnev/op-chess-club/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	database := setupTestDB(t)
	store := NewUserStore(database)
	ctx := context.Background()

	alice := createUser(t, database, "alicesmith")
	bob := createUser(t, database, "bobsmith")

	fetched, err := store.GetUsers(ctx, []uuid.UUID{bob, alice, uuid.New()})
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "alicesmith", fetched[0].Username)
	assert.Equal(t, "bobsmith", fetched[1].Username)

	none, err := store.GetUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	user, err := store.GetUser(ctx, alice)
	require.NoError(t, err)
	user.Provider = utils.Ptr("discord")
	user.ProviderID = utils.Ptr("1234")
	user.Username = "alice"
	user.AvatarURL = utils.Ptr("https://example.org/a.png")
	require.NoError(t, store.UpdateUserNameAndAvatar(ctx, user))

	user, err = store.GetUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "https://example.org/a.png", utils.OrZero(user.AvatarURL))

	_, err = store.GetUserByProvider(ctx, "discord", "1234")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.DeleteUser(ctx, bob))
	assert.ErrorIs(t, store.DeleteUser(ctx, bob), sql.ErrNoRows)
}
