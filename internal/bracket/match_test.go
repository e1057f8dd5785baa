package bracket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatch(result Result) (*Match, uuid.UUID, uuid.UUID) {
	white := uuid.New()
	black := uuid.New()
	return &Match{
		ID:            uuid.New(),
		WhitePlayerID: &white,
		BlackPlayerID: &black,
		Result:        result,
	}, white, black
}

func TestAwardFor(t *testing.T) {
	testCases := []struct {
		name          string
		result        Result
		expectedWhite float64
		expectedBlack float64
	}{
		{name: "white win", result: ResultWhiteWin, expectedWhite: 1, expectedBlack: 0},
		{name: "black win", result: ResultBlackWin, expectedWhite: 0, expectedBlack: 1},
		{name: "draw", result: ResultDraw, expectedWhite: 0.5, expectedBlack: 0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, white, black := newMatch(tc.result)

			w, err := m.AwardFor(white)
			require.NoError(t, err)
			b, err := m.AwardFor(black)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedWhite, w)
			assert.Equal(t, tc.expectedBlack, b)
			assert.Equal(t, 1.0, w+b)
		})
	}
}

func TestAwardFor_Pending(t *testing.T) {
	m, white, _ := newMatch(ResultPending)

	_, err := m.AwardFor(white)
	assert.ErrorIs(t, err, ErrResultNotAvailable)
}

func TestAwardFor_NotParticipant(t *testing.T) {
	m, _, _ := newMatch(ResultWhiteWin)

	_, err := m.AwardFor(uuid.New())
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestAwardFor_DeletedPlayer(t *testing.T) {
	m, white, black := newMatch(ResultBlackWin)
	m.WhitePlayerID = nil

	_, err := m.AwardFor(white)
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	award, err := m.AwardFor(black)
	require.NoError(t, err)
	assert.Equal(t, AwardWin, award)
}

func TestSetResult(t *testing.T) {
	now := time.Date(2021, 12, 25, 12, 0, 0, 0, time.UTC)

	m, _, _ := newMatch(ResultPending)
	require.NoError(t, m.SetResult(ResultDraw, now))
	assert.Equal(t, ResultDraw, m.Result)
	require.NotNil(t, m.ResultDate)
	assert.True(t, now.Equal(*m.ResultDate))

	// A draw may still be overwritten
	later := now.Add(time.Hour)
	require.NoError(t, m.SetResult(ResultWhiteWin, later))
	assert.True(t, later.Equal(*m.ResultDate))

	// Same outcome only refreshes the timestamp
	latest := later.Add(time.Hour)
	require.NoError(t, m.SetResult(ResultWhiteWin, latest))
	assert.Equal(t, ResultWhiteWin, m.Result)
	assert.True(t, latest.Equal(*m.ResultDate))

	err := m.SetResult(ResultBlackWin, latest)
	assert.ErrorIs(t, err, ErrResultFinal)
	assert.Equal(t, ResultWhiteWin, m.Result)
}

func TestSetResult_PendingClearsDate(t *testing.T) {
	m, _, _ := newMatch(ResultPending)
	require.NoError(t, m.SetResult(ResultDraw, time.Now()))
	require.NoError(t, m.SetResult(ResultPending, time.Now()))
	assert.Nil(t, m.ResultDate)

	assert.ErrorIs(t, m.SetResult(Result("X"), time.Now()), ErrInvalidResult)
}

func TestSamePairing(t *testing.T) {
	m, white, black := newMatch(ResultDraw)
	swapped := &Match{WhitePlayerID: &black, BlackPlayerID: &white}
	other := uuid.New()
	different := &Match{WhitePlayerID: &white, BlackPlayerID: &other}

	assert.True(t, m.SamePairing(swapped))
	assert.False(t, m.SamePairing(different))
}

func TestOpponent(t *testing.T) {
	m, white, black := newMatch(ResultPending)

	opponent, err := m.Opponent(white)
	require.NoError(t, err)
	assert.Equal(t, &black, opponent)

	opponent, err = m.Opponent(black)
	require.NoError(t, err)
	assert.Equal(t, &white, opponent)

	_, err = m.Opponent(uuid.New())
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	m.WhitePlayerID = nil
	opponent, err = m.Opponent(black)
	require.NoError(t, err)
	assert.Nil(t, opponent)
}
