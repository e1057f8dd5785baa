package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/internal/db"
	"github.com/AdamBeresnev/op-chess-club/internal/messages"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2021, 12, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitTestDB()
	require.NoError(t, err, "Failed to set up in-memory DB")
	t.Cleanup(func() { database.Close() })

	return database
}

type fixture struct {
	db    *sqlx.DB
	clock *clockwork.FakeClock

	tournamentStore *store.TournamentStore
	clubStore       *store.ClubStore
	userStore       *store.UserStore

	tournaments   *TournamentService
	participation *ParticipationService
	matches       *MatchService
	ratings       *RatingService

	club  *club.Club
	owner uuid.UUID
	users int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := setupTestDB(t)
	clock := clockwork.NewFakeClockAt(start)
	cfg := config.Default()

	f := &fixture{
		db:              database,
		clock:           clock,
		tournamentStore: store.NewTournamentStore(database),
		clubStore:       store.NewClubStore(database),
		userStore:       store.NewUserStore(database),
	}
	clubs := NewClubService(database, f.clubStore)
	f.tournaments = NewTournamentService(database, f.tournamentStore, f.userStore, clubs, clock, NewRules(cfg.Tournament))
	f.participation = NewParticipationService(database, f.tournamentStore, clubs, clock)
	f.matches = NewMatchService(database, f.tournamentStore, clock)
	f.ratings = NewRatingService(database, f.tournamentStore, f.clubStore, cfg.Rating)

	f.owner = f.user(t)
	f.club = &club.Club{ID: uuid.New(), Name: "Kerbal Chess Club", OwnerID: &f.owner, CreatedAt: start}
	require.NoError(t, f.clubStore.CreateClub(context.Background(), database, f.club))
	f.membership(t, f.owner, club.Owner, club.ApplicationApproved)

	return f
}

func (f *fixture) user(t *testing.T) uuid.UUID {
	t.Helper()

	f.users++
	name := fmt.Sprintf("player%03d", f.users)
	user := &users.User{
		ID:        uuid.New(),
		Email:     name + "@example.org",
		Username:  name,
		Name:      name,
		CreatedAt: start,
	}
	require.NoError(t, f.userStore.CreateUser(context.Background(), user))
	return user.ID
}

func (f *fixture) membership(t *testing.T, userID uuid.UUID, userType club.UserType, status club.ApplicationStatus) *club.Membership {
	t.Helper()

	m := &club.Membership{
		ID:                uuid.New(),
		UserID:            userID,
		ClubID:            f.club.ID,
		ApplicationStatus: status,
		UserType:          userType,
		HighestEloRating:  club.BaselineRating,
		LowestEloRating:   club.BaselineRating,
		CreatedAt:         start,
	}
	require.NoError(t, f.clubStore.CreateMembership(context.Background(), f.db, m))
	return m
}

func (f *fixture) member(t *testing.T, userType club.UserType) uuid.UUID {
	t.Helper()

	userID := f.user(t)
	f.membership(t, userID, userType, club.ApplicationApproved)
	return userID
}

// tournament creates a tournament organized by the club owner with signups closing in a day
// and play starting in two.
func (f *fixture) tournament(t *testing.T, capacity *int, coorganizers ...uuid.UUID) *bracket.Tournament {
	t.Helper()

	date := start.Add(48 * time.Hour)
	deadline := start.Add(24 * time.Hour)
	id, msg, err := f.tournaments.CreateTournament(context.Background(), CreateTournamentInput{
		ClubID:       f.club.ID,
		OrganizerID:  f.owner,
		Name:         "Tournament " + uuid.NewString()[:8],
		Description:  "Tournament description",
		Date:         &date,
		Deadline:     &deadline,
		Capacity:     capacity,
		Coorganizers: coorganizers,
	})
	require.NoError(t, err)
	require.Empty(t, msg)

	tournament, err := f.tournamentStore.GetTournament(context.Background(), f.db, id)
	require.NoError(t, err)
	return tournament
}

// signUp creates n members and joins them to the tournament in order.
func (f *fixture) signUp(t *testing.T, tournamentID uuid.UUID, n int) []uuid.UUID {
	t.Helper()

	players := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		userID := f.member(t, club.Member)
		msg, err := f.participation.Join(context.Background(), tournamentID, userID)
		require.NoError(t, err)
		require.Empty(t, msg)
		players = append(players, userID)
	}
	return players
}

// begin moves the clock past the tournament date and checks the stage.
func (f *fixture) begin(t *testing.T, tournamentID uuid.UUID) *bracket.Tournament {
	t.Helper()

	f.clock.Advance(72 * time.Hour)
	tournament, err := f.tournaments.CheckStageTransition(context.Background(), tournamentID)
	require.NoError(t, err)
	return tournament
}

func (f *fixture) generate(t *testing.T, tournamentID uuid.UUID) (messages.Level, string) {
	t.Helper()

	level, msg, err := f.tournaments.GenerateMatches(context.Background(), tournamentID, f.owner)
	require.NoError(t, err)
	return level, msg
}

// decideAll records result for every pending match of the tournament.
func (f *fixture) decideAll(t *testing.T, tournamentID uuid.UUID, result bracket.Result) []bracket.Match {
	t.Helper()
	ctx := context.Background()

	pending, err := f.tournamentStore.PendingMatches(ctx, f.db, tournamentID)
	require.NoError(t, err)
	for _, m := range pending {
		f.clock.Advance(time.Minute)
		_, msg, err := f.matches.RecordResult(ctx, m.ID, f.owner, result)
		require.NoError(t, err)
		require.Empty(t, msg)
	}
	return pending
}

func (f *fixture) stage(t *testing.T, tournamentID uuid.UUID) bracket.Stage {
	t.Helper()

	tournament, err := f.tournamentStore.GetTournament(context.Background(), f.db, tournamentID)
	require.NoError(t, err)
	return tournament.Stage
}
