package club

import (
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	NonMember UserType = "NM"
	Member    UserType = "MB"
	Officer   UserType = "OF"
	Owner     UserType = "OW"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "P"
	ApplicationApproved ApplicationStatus = "A"
	ApplicationDenied   ApplicationStatus = "D"
)

// rank orders user types so that an Owner is also an Officer and a Member.
func (t UserType) rank() int {
	switch t {
	case NonMember:
		return 0
	case Member:
		return 1
	case Officer:
		return 2
	case Owner:
		return 3
	default:
		return -1
	}
}

func (t UserType) Name() string {
	switch t {
	case NonMember:
		return "a Non-Member"
	case Member:
		return "a Member"
	case Officer:
		return "an Officer"
	case Owner:
		return "the Owner"
	default:
		return "unknown"
	}
}

type Club struct {
	ID               uuid.UUID  `db:"id"`
	Name             string     `db:"name"`
	OwnerID          *uuid.UUID `db:"owner_id"`
	Location         string     `db:"location"`
	MissionStatement string     `db:"mission_statement"`
	Description      string     `db:"description"`
	CreatedAt        time.Time  `db:"created_at"`
}

const BaselineRating = 1000

type Membership struct {
	ID                uuid.UUID         `db:"id"`
	UserID            uuid.UUID         `db:"user_id"`
	ClubID            uuid.UUID         `db:"club_id"`
	PersonalStatement string            `db:"personal_statement"`
	ApplicationStatus ApplicationStatus `db:"application_status"`
	UserType          UserType          `db:"user_type"`
	HighestEloRating  int               `db:"highest_elo_rating"`
	LowestEloRating   int               `db:"lowest_elo_rating"`
	CreatedAt         time.Time         `db:"created_at"`
}

// GrantsAtLeast reports whether the membership carries at least the standing of want.
// A nil or unapproved membership grants nothing.
func GrantsAtLeast(m *Membership, want UserType) bool {
	if m == nil || m.ApplicationStatus != ApplicationApproved {
		return false
	}
	return m.UserType.rank() >= want.rank() && want.rank() >= 0
}

// TrackRating moves the watermarks to include rating and reports whether they changed.
func (m *Membership) TrackRating(rating int) bool {
	changed := false
	if rating > m.HighestEloRating {
		m.HighestEloRating = rating
		changed = true
	}
	if rating < m.LowestEloRating {
		m.LowestEloRating = rating
		changed = true
	}
	return changed
}
