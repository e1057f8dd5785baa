package views

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/middleware"
	"github.com/AdamBeresnev/op-chess-club/internal/service"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

const dateLayout = "2 Jan 2006 15:04"

var resultChoices = []bracket.Result{bracket.ResultWhiteWin, bracket.ResultDraw, bracket.ResultBlackWin, bracket.ResultPending}

var providerLabels = map[string]string{
	"discord": "Discord",
	"google":  "Google",
}

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

// displayName falls back to a placeholder for deleted accounts.
func displayName(people map[uuid.UUID]users.User, id *uuid.UUID) string {
	if id == nil {
		return "Deleted user"
	}
	if u, ok := people[*id]; ok {
		if u.Name != "" {
			return u.Name
		}
		return u.Username
	}
	return "Unknown player"
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func capacityLabel(data *service.TournamentData) string {
	if data.Tournament.Capacity == nil {
		return "Unlimited"
	}
	return fmt.Sprintf("%d / %d", len(data.Participants), *data.Tournament.Capacity)
}

func organizerNames(data *service.TournamentData) string {
	t := data.Tournament
	names := []string{displayName(data.Users, &t.OrganizerID)}
	for i := range t.Coorganizers {
		names = append(names, displayName(data.Users, &t.Coorganizers[i]))
	}
	return strings.Join(names, ", ")
}

// canRecord is true when the viewer may generate rounds and enter results.
func canRecord(t *bracket.Tournament, viewer uuid.UUID) bool {
	return t.IsOrganizer(viewer) && t.Stage.Playing()
}

func roundTitle(r RoundData) string {
	return fmt.Sprintf("%s, round %d", r.Stage, r.Phase+1)
}

func resultLabel(r bracket.Result) string {
	switch r {
	case bracket.ResultPending:
		return "Pending"
	case bracket.ResultWhiteWin:
		return "White won"
	case bracket.ResultDraw:
		return "Draw"
	case bracket.ResultBlackWin:
		return "Black won"
	default:
		return "Unknown"
	}
}

func ratingDate(p service.RatingPoint) string {
	if p.At == nil {
		return "Start"
	}
	return formatDate(*p.At)
}

func ratingValue(p service.RatingPoint) string {
	return fmt.Sprintf("%.0f", p.Rating)
}

func clubStanding(viewer *club.Membership) string {
	switch {
	case viewer == nil:
		return "You are not a member of this club."
	case viewer.ApplicationStatus != club.ApplicationApproved:
		return "Your membership application is waiting for approval."
	default:
		return "You are " + viewer.UserType.Name() + " of this club."
	}
}

func providerLabel(provider string) string {
	if label, ok := providerLabels[provider]; ok {
		return label
	}
	return provider
}

func tournamentPath(id uuid.UUID) string {
	return "/tournaments/" + id.String()
}

func tournamentURL(id uuid.UUID) templ.SafeURL {
	return templ.SafeURL(tournamentPath(id))
}

func tournamentActionURL(id uuid.UUID, action string) templ.SafeURL {
	return templ.SafeURL(tournamentPath(id) + "/" + action)
}

func matchResultURL(id uuid.UUID) templ.SafeURL {
	return templ.SafeURL("/matches/" + id.String() + "/result")
}

func createTournamentURL(clubID uuid.UUID) templ.SafeURL {
	return templ.SafeURL("/clubs/" + clubID.String() + "/tournaments")
}

func loginURL(provider string) templ.SafeURL {
	return templ.SafeURL("/auth/" + url.PathEscape(provider))
}
