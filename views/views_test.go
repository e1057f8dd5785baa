package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/messages"
	"github.com/AdamBeresnev/op-chess-club/internal/service"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareBracketData(t *testing.T) {
	now := time.Date(2021, 12, 1, 12, 0, 0, 0, time.UTC)
	groupB := bracket.Group{ID: uuid.New(), Stage: bracket.StageGroupStages, Phase: 0, Label: "B"}
	groupA := bracket.Group{ID: uuid.New(), Stage: bracket.StageGroupStages, Phase: 0, Label: "A"}
	final := bracket.Group{ID: uuid.New(), Stage: bracket.StageElimination, Phase: 0}

	match := func(g bracket.Group, order int, at time.Time) bracket.Match {
		return bracket.Match{ID: uuid.New(), GroupID: &g.ID, MatchOrder: order, CreatedAt: at}
	}
	replay := match(final, 0, now.Add(time.Hour))
	first := match(final, 0, now)
	second := match(groupA, 1, now)
	firstA := match(groupA, 0, now)

	rounds := PrepareBracketData(
		[]bracket.Group{final, groupB, groupA},
		[]bracket.Match{replay, second, first, firstA},
	)

	require.Len(t, rounds, 2)
	assert.Equal(t, bracket.StageGroupStages, rounds[0].Stage)
	require.Len(t, rounds[0].Groups, 2)
	assert.Equal(t, "A", rounds[0].Groups[0].Group.Label)
	assert.Equal(t, []bracket.Match{firstA, second}, rounds[0].Groups[0].Matches)
	assert.Empty(t, rounds[0].Groups[1].Matches)

	assert.Equal(t, bracket.StageElimination, rounds[1].Stage)
	assert.Equal(t, []bracket.Match{first, replay}, rounds[1].Groups[0].Matches)
}

func TestTournamentView(t *testing.T) {
	organizer := uuid.New()
	white, black := uuid.New(), uuid.New()
	group := bracket.Group{ID: uuid.New(), Stage: bracket.StageElimination, Players: []uuid.UUID{white, black}}
	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		OrganizerID: organizer,
		Name:        "Winter <Open>",
		Stage:       bracket.StageElimination,
	}
	data := &service.TournamentData{
		Tournament:   tournament,
		Participants: []uuid.UUID{white, black},
		Groups:       []bracket.Group{group},
		Matches: []bracket.Match{{
			ID: uuid.New(), GroupID: &group.ID, WhitePlayerID: &white, Result: bracket.ResultPending,
		}},
		Users: map[uuid.UUID]users.User{
			organizer: {ID: organizer, Username: "owner"},
			white:     {ID: white, Username: "alice", Name: "Alice"},
			black:     {ID: black, Username: "bob"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, TournamentView(data, organizer).Render(context.Background(), &buf))
	page := buf.String()

	assert.Contains(t, page, "Winter &lt;Open&gt;")
	assert.Contains(t, page, "Alice")
	assert.Contains(t, page, "Deleted user")
	assert.Contains(t, page, "/generate")
	assert.Contains(t, page, "/result")
	assert.NotContains(t, page, "/join")

	buf.Reset()
	require.NoError(t, TournamentView(data, white).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "/generate")
}

func TestFlashMessages(t *testing.T) {
	var buf bytes.Buffer
	err := FlashMessages([]messages.Message{{Level: messages.Error, Text: "Only the organizers of this tournament can cancel it."}}).
		Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `alert-danger`)
	assert.Contains(t, buf.String(), "Only the organizers of this tournament can cancel it.")
}

func TestClubView(t *testing.T) {
	c := &club.Club{ID: uuid.New(), Name: "Knights & Rooks"}
	tournament := bracket.Tournament{ID: uuid.New(), Name: "Winter Open", Stage: bracket.StageGroupStages}

	var buf bytes.Buffer
	require.NoError(t, ClubView(c, []bracket.Tournament{tournament}, nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Knights &amp; Rooks")
	assert.Contains(t, buf.String(), "/tournaments/"+tournament.ID.String())
	assert.Contains(t, buf.String(), "Group Stages")
	assert.Contains(t, buf.String(), "You are not a member of this club.")
	assert.NotContains(t, buf.String(), "create-tournament")

	member := &club.Membership{UserType: club.Member, ApplicationStatus: club.ApplicationApproved}
	buf.Reset()
	require.NoError(t, ClubView(c, nil, member).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "You are a Member of this club.")
	assert.NotContains(t, buf.String(), "create-tournament")

	officer := &club.Membership{UserType: club.Officer, ApplicationStatus: club.ApplicationApproved}
	buf.Reset()
	require.NoError(t, ClubView(c, nil, officer).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "You are an Officer of this club.")
	assert.Contains(t, buf.String(), "/clubs/"+c.ID.String()+"/tournaments")

	pending := &club.Membership{UserType: club.Owner, ApplicationStatus: club.ApplicationPending}
	buf.Reset()
	require.NoError(t, ClubView(c, nil, pending).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "waiting for approval")
	assert.NotContains(t, buf.String(), "create-tournament")
}

func TestLoginPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LoginPage([]string{"google"}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `href="/auth/google"`)
	assert.Contains(t, buf.String(), "Log in with Google")
	assert.NotContains(t, buf.String(), "discord")

	buf.Reset()
	require.NoError(t, LoginPage(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Signing in is not available.")
}
