package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/db"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/AdamBeresnev/op-chess-club/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2021, 12, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitTestDB()
	require.NoError(t, err, "Failed to set up in-memory DB")
	t.Cleanup(func() { database.Close() })

	return database
}

func createUser(t *testing.T, database *sqlx.DB, name string) uuid.UUID {
	t.Helper()

	user := &users.User{
		ID:        uuid.New(),
		Email:     name + "@example.org",
		Username:  name,
		Name:      name,
		CreatedAt: testNow,
	}
	require.NoError(t, NewUserStore(database).CreateUser(context.Background(), user))
	return user.ID
}

func createTournament(t *testing.T, database *sqlx.DB, coorganizers ...uuid.UUID) *bracket.Tournament {
	t.Helper()
	ctx := context.Background()

	owner := createUser(t, database, "owner"+uuid.NewString()[:8])
	c := &club.Club{ID: uuid.New(), Name: "Kerbal Chess Club " + uuid.NewString()[:8], OwnerID: &owner, CreatedAt: testNow}
	require.NoError(t, NewClubStore(database).CreateClub(ctx, database, c))

	date := testNow.Add(48 * time.Hour)
	deadline := testNow.Add(24 * time.Hour)
	tournament := &bracket.Tournament{
		ID:           uuid.New(),
		ClubID:       c.ID,
		OrganizerID:  owner,
		Name:         "Tournament " + uuid.NewString()[:8],
		Description:  "Tournament description",
		Date:         &date,
		Deadline:     &deadline,
		Capacity:     utils.Ptr(96),
		Stage:        bracket.StageSignupsOpen,
		CreatedAt:    testNow,
		Coorganizers: coorganizers,
	}
	require.NoError(t, NewTournamentStore(database).CreateTournament(ctx, database, tournament))
	return tournament
}

func TestCreateTournament(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()

	coorganizer := createUser(t, database, "janedoe")
	tournament := createTournament(t, database, coorganizer)

	fetched, err := store.GetTournament(ctx, database, tournament.ID)
	require.NoError(t, err)

	assert.Equal(t, tournament.ID, fetched.ID)
	assert.Equal(t, tournament.ClubID, fetched.ClubID)
	assert.Equal(t, tournament.Name, fetched.Name)
	assert.Equal(t, bracket.StageSignupsOpen, fetched.Stage)
	assert.Equal(t, 96, *fetched.Capacity)
	require.NotNil(t, fetched.Deadline)
	assert.WithinDuration(t, *tournament.Deadline, *fetched.Deadline, time.Second)
	assert.Equal(t, []uuid.UUID{coorganizer}, fetched.Coorganizers)

	require.NoError(t, store.UpdateStage(ctx, database, tournament.ID, bracket.StageSignupsClosed))
	fetched, err = store.GetTournament(ctx, database, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.StageSignupsClosed, fetched.Stage)
}

func TestParticipations(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()
	tournament := createTournament(t, database)

	var expected []uuid.UUID
	for i := 0; i < 3; i++ {
		userID := createUser(t, database, fmt.Sprintf("user%d", i))
		expected = append(expected, userID)
		require.NoError(t, store.CreateParticipation(ctx, database, &bracket.Participation{
			ID: uuid.New(), TournamentID: tournament.ID, UserID: userID, CreatedAt: testNow,
		}))
	}

	// Unique per (user, tournament)
	err := store.CreateParticipation(ctx, database, &bracket.Participation{
		ID: uuid.New(), TournamentID: tournament.ID, UserID: expected[0], CreatedAt: testNow,
	})
	assert.Error(t, err)

	participants, err := store.GetParticipants(ctx, database, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, participants)

	joined, err := store.HasParticipation(ctx, database, tournament.ID, expected[1])
	require.NoError(t, err)
	assert.True(t, joined)

	deleted, err := store.DeleteParticipation(ctx, database, tournament.ID, expected[1])
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteParticipation(ctx, database, tournament.ID, expected[1])
	require.NoError(t, err)
	assert.False(t, deleted)

	count, err := store.CountParticipants(ctx, database, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLatestGroups(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()
	tournament := createTournament(t, database)

	groups, err := store.LatestGroups(ctx, database, tournament.ID, bracket.StageElimination)
	require.NoError(t, err)
	assert.Empty(t, groups)

	players := []uuid.UUID{createUser(t, database, "a"), createUser(t, database, "b"), createUser(t, database, "c")}

	for phase := 0; phase < 2; phase++ {
		for i := 0; i < 2; i++ {
			require.NoError(t, store.CreateGroup(ctx, database, &bracket.Group{
				ID:           uuid.New(),
				TournamentID: tournament.ID,
				Stage:        bracket.StageGroupStages,
				Phase:        phase,
				Label:        bracket.GroupLabel(i),
				CreatedAt:    testNow,
				Players:      []uuid.UUID{players[2], players[0], players[1]},
			}))
		}
	}

	groups, err = store.LatestGroups(ctx, database, tournament.ID, bracket.StageGroupStages)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Phase)
	assert.Equal(t, "A", groups[0].Label)
	assert.Equal(t, "B", groups[1].Label)
	// Players keep their seeding order
	assert.Equal(t, []uuid.UUID{players[2], players[0], players[1]}, groups[0].Players)

	groups, err = store.LatestGroups(ctx, database, tournament.ID, bracket.StageElimination)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMatches(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()
	tournament := createTournament(t, database)

	white := createUser(t, database, "alicesmith")
	black := createUser(t, database, "bobsmith")

	group := &bracket.Group{
		ID: uuid.New(), TournamentID: tournament.ID, Stage: bracket.StageElimination,
		Phase: 0, CreatedAt: testNow, Players: []uuid.UUID{white, black},
	}
	require.NoError(t, store.CreateGroup(ctx, database, group))

	match := bracket.Match{
		ID:            uuid.New(),
		TournamentID:  tournament.ID,
		GroupID:       &group.ID,
		WhitePlayerID: &white,
		BlackPlayerID: &black,
		Result:        bracket.ResultPending,
		Stage:         bracket.StageElimination,
		CreatedAt:     testNow,
	}
	require.NoError(t, store.CreateMatches(ctx, database, []bracket.Match{match}))

	pending, err := store.PendingMatches(ctx, database, tournament.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Nil(t, pending[0].ResultDate)

	require.NoError(t, match.SetResult(bracket.ResultWhiteWin, testNow))
	require.NoError(t, store.UpdateMatchResult(ctx, database, &match))

	pending, err = store.PendingMatches(ctx, database, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	phaseMatches, err := store.GetPhaseMatches(ctx, database, tournament.ID, bracket.StageElimination, 0)
	require.NoError(t, err)
	require.Len(t, phaseMatches, 1)
	assert.Equal(t, bracket.ResultWhiteWin, phaseMatches[0].Result)
	require.NotNil(t, phaseMatches[0].ResultDate)
	assert.WithinDuration(t, testNow, *phaseMatches[0].ResultDate, time.Second)

	decided, err := store.GetDecidedClubMatches(ctx, database, tournament.ClubID)
	require.NoError(t, err)
	assert.Len(t, decided, 1)
}

func TestMatches_SamePlayerRejected(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	tournament := createTournament(t, database)
	player := createUser(t, database, "alicesmith")

	err := store.CreateMatches(context.Background(), database, []bracket.Match{{
		ID: uuid.New(), TournamentID: tournament.ID, WhitePlayerID: &player, BlackPlayerID: &player,
		Result: bracket.ResultPending, Stage: bracket.StageElimination, CreatedAt: testNow,
	}})
	assert.Error(t, err)
}

func TestDeleteUser_KeepsMatch(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()
	tournament := createTournament(t, database)

	white := createUser(t, database, "alicesmith")
	black := createUser(t, database, "bobsmith")
	match := bracket.Match{
		ID: uuid.New(), TournamentID: tournament.ID, WhitePlayerID: &white, BlackPlayerID: &black,
		Result: bracket.ResultPending, Stage: bracket.StageElimination, CreatedAt: testNow,
	}
	require.NoError(t, store.CreateMatches(ctx, database, []bracket.Match{match}))

	require.NoError(t, NewUserStore(database).DeleteUser(ctx, white))

	fetched, err := store.GetMatch(ctx, database, match.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.WhitePlayerID)
	require.NotNil(t, fetched.BlackPlayerID)
	assert.Equal(t, black, *fetched.BlackPlayerID)
}

func TestDeleteTournament_Cascades(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	ctx := context.Background()
	tournament := createTournament(t, database)

	white := createUser(t, database, "alicesmith")
	black := createUser(t, database, "bobsmith")
	for _, userID := range []uuid.UUID{white, black} {
		require.NoError(t, store.CreateParticipation(ctx, database, &bracket.Participation{
			ID: uuid.New(), TournamentID: tournament.ID, UserID: userID, CreatedAt: testNow,
		}))
	}
	group := &bracket.Group{
		ID: uuid.New(), TournamentID: tournament.ID, Stage: bracket.StageElimination,
		CreatedAt: testNow, Players: []uuid.UUID{white, black},
	}
	require.NoError(t, store.CreateGroup(ctx, database, group))
	require.NoError(t, store.CreateMatches(ctx, database, []bracket.Match{{
		ID: uuid.New(), TournamentID: tournament.ID, GroupID: &group.ID, WhitePlayerID: &white, BlackPlayerID: &black,
		Result: bracket.ResultPending, Stage: bracket.StageElimination, CreatedAt: testNow,
	}}))

	require.NoError(t, store.DeleteTournament(ctx, database, tournament.ID))

	for _, table := range []string{"participations", "tournament_groups", "group_players", "matches"} {
		var count int
		require.NoError(t, database.Get(&count, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, count, table)
	}
}

func TestNameTaken(t *testing.T) {
	database := setupTestDB(t)
	store := NewTournamentStore(database)
	tournament := createTournament(t, database)

	taken, err := store.NameTaken(context.Background(), database, tournament.Name)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.NameTaken(context.Background(), database, "Winter Open")
	require.NoError(t, err)
	assert.False(t, taken)
}
