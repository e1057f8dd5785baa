package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageSignupsOpen   Stage = "S"
	StageSignupsClosed Stage = "C"
	StageElimination   Stage = "E"
	StageGroupStages   Stage = "G"
	StageFinished      Stage = "F"
)

func (s Stage) String() string {
	switch s {
	case StageSignupsOpen:
		return "Signups Open"
	case StageSignupsClosed:
		return "Signups Closed"
	case StageElimination:
		return "Elimination"
	case StageGroupStages:
		return "Group Stages"
	case StageFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// NotStarted reports whether the tournament can still be cancelled.
func (s Stage) NotStarted() bool {
	switch s {
	case StageSignupsOpen, StageSignupsClosed:
		return true
	case StageElimination, StageGroupStages, StageFinished:
		return false
	default:
		return false
	}
}

// Playing reports whether rounds can be generated in this stage.
func (s Stage) Playing() bool {
	return s == StageElimination || s == StageGroupStages
}

type Tournament struct {
	ID          uuid.UUID  `db:"id"`
	ClubID      uuid.UUID  `db:"club_id"`
	OrganizerID uuid.UUID  `db:"organizer_id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	Date        *time.Time `db:"date"`
	Deadline    *time.Time `db:"deadline"`
	Capacity    *int       `db:"capacity"`
	Stage       Stage      `db:"stage"`
	CreatedAt   time.Time  `db:"created_at"`

	Coorganizers []uuid.UUID `db:"-"`
}

// IsOrganizer is true for the organizer and every co-organizer.
func (t *Tournament) IsOrganizer(userID uuid.UUID) bool {
	if t.OrganizerID == userID {
		return true
	}
	for _, id := range t.Coorganizers {
		if id == userID {
			return true
		}
	}
	return false
}

// SignupsOpen reports whether joining and leaving are allowed at now.
func (t *Tournament) SignupsOpen(now time.Time) bool {
	if t.Stage != StageSignupsOpen {
		return false
	}
	return t.Deadline == nil || now.Before(*t.Deadline)
}

func (t *Tournament) DeadlinePassed(now time.Time) bool {
	return t.Deadline != nil && !now.Before(*t.Deadline)
}

func (t *Tournament) DatePassed(now time.Time) bool {
	return t.Date != nil && !now.Before(*t.Date)
}

// IsFull reports whether count participants fill the tournament. A nil capacity is unlimited.
func (t *Tournament) IsFull(count int) bool {
	return t.Capacity != nil && count >= *t.Capacity
}

type Participation struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	UserID       uuid.UUID `db:"user_id"`
	CreatedAt    time.Time `db:"created_at"`
}
