package bracket

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Result string

const (
	ResultPending  Result = "P"
	ResultWhiteWin Result = "W"
	ResultDraw     Result = "D"
	ResultBlackWin Result = "B"
)

var (
	ErrInvalidParticipant = errors.New("user is not a participant in this match")
	ErrResultNotAvailable = errors.New("match result is not available yet")
	ErrResultFinal        = errors.New("match already has a decisive result")
	ErrInvalidResult      = errors.New("invalid match result")
)

const (
	AwardWin  = 1.0
	AwardDraw = 0.5
	AwardLoss = 0.0
)

func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case ResultPending, ResultWhiteWin, ResultDraw, ResultBlackWin:
		return r, nil
	default:
		return "", ErrInvalidResult
	}
}

// Decisive is true for a white or black win.
func (r Result) Decisive() bool {
	switch r {
	case ResultWhiteWin, ResultBlackWin:
		return true
	case ResultPending, ResultDraw:
		return false
	default:
		return false
	}
}

type Match struct {
	ID           uuid.UUID  `db:"id"`
	TournamentID uuid.UUID  `db:"tournament_id"`
	GroupID      *uuid.UUID `db:"group_id"`

	// Either slot becomes nil once the user account is deleted
	WhitePlayerID *uuid.UUID `db:"white_player_id"`
	BlackPlayerID *uuid.UUID `db:"black_player_id"`

	Result     Result     `db:"result"`
	ResultDate *time.Time `db:"result_date"`
	Stage      Stage      `db:"stage"`
	MatchOrder int        `db:"match_order"`

	CreatedAt time.Time `db:"created_at"`
}

func (m *Match) IsWhite(userID uuid.UUID) bool {
	return m.WhitePlayerID != nil && *m.WhitePlayerID == userID
}

func (m *Match) IsBlack(userID uuid.UUID) bool {
	return m.BlackPlayerID != nil && *m.BlackPlayerID == userID
}

func (m *Match) Involves(userID uuid.UUID) bool {
	return m.IsWhite(userID) || m.IsBlack(userID)
}

// SamePairing reports whether both matches are between the same two players, colours ignored.
func (m *Match) SamePairing(other *Match) bool {
	if m.WhitePlayerID == nil || m.BlackPlayerID == nil {
		return false
	}
	return other.Involves(*m.WhitePlayerID) && other.Involves(*m.BlackPlayerID)
}

// Opponent returns the other player of the match, nil if that slot is empty.
func (m *Match) Opponent(userID uuid.UUID) (*uuid.UUID, error) {
	switch {
	case m.IsWhite(userID):
		return m.BlackPlayerID, nil
	case m.IsBlack(userID):
		return m.WhitePlayerID, nil
	default:
		return nil, ErrInvalidParticipant
	}
}

// Winner returns the winning player of a decisive match.
func (m *Match) Winner() *uuid.UUID {
	switch m.Result {
	case ResultWhiteWin:
		return m.WhitePlayerID
	case ResultBlackWin:
		return m.BlackPlayerID
	default:
		return nil
	}
}

// AwardFor returns the score the result grants userID: 1 for a win, 0.5 for a draw, 0 for a loss.
func (m *Match) AwardFor(userID uuid.UUID) (float64, error) {
	if !m.Involves(userID) {
		return 0, ErrInvalidParticipant
	}

	switch m.Result {
	case ResultPending:
		return 0, ErrResultNotAvailable
	case ResultDraw:
		return AwardDraw, nil
	case ResultWhiteWin:
		if m.IsWhite(userID) {
			return AwardWin, nil
		}
		return AwardLoss, nil
	case ResultBlackWin:
		if m.IsBlack(userID) {
			return AwardWin, nil
		}
		return AwardLoss, nil
	default:
		return 0, ErrInvalidResult
	}
}

// SetResult records outcome at now. Recording pending clears the result date. Once a
// decisive result is stored only the same outcome may be recorded again.
func (m *Match) SetResult(outcome Result, now time.Time) error {
	if _, err := ParseResult(string(outcome)); err != nil {
		return err
	}
	if m.Result.Decisive() && outcome != m.Result {
		return ErrResultFinal
	}

	m.Result = outcome
	if outcome == ResultPending {
		m.ResultDate = nil
		return nil
	}
	at := now.UTC()
	m.ResultDate = &at
	return nil
}
