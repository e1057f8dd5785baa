package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Group is one pool of players for a single round. Elimination rounds have one group per
// phase, group-stage rounds have several labelled A, B, C...
type Group struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	Stage        Stage     `db:"stage"`
	Phase        int       `db:"phase"`
	Label        string    `db:"label"`
	CreatedAt    time.Time `db:"created_at"`

	// Players in seeding order.
	Players []uuid.UUID `db:"-"`
}

func (g *Group) Has(userID uuid.UUID) bool {
	for _, id := range g.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupLabel turns a zero based index into A..Z, AA..AZ, ...
func GroupLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}
