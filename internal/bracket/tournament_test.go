package bracket

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSignupsOpen(t *testing.T) {
	deadline := time.Date(2021, 12, 20, 12, 0, 0, 0, time.UTC)
	tournament := &Tournament{Stage: StageSignupsOpen, Deadline: &deadline}

	assert.True(t, tournament.SignupsOpen(deadline.Add(-time.Second)))
	assert.False(t, tournament.SignupsOpen(deadline))
	assert.True(t, tournament.DeadlinePassed(deadline))

	tournament.Stage = StageSignupsClosed
	assert.False(t, tournament.SignupsOpen(deadline.Add(-time.Hour)))
}

func TestIsOrganizer(t *testing.T) {
	organizer := uuid.New()
	coorganizer := uuid.New()
	tournament := &Tournament{OrganizerID: organizer, Coorganizers: []uuid.UUID{coorganizer}}

	assert.True(t, tournament.IsOrganizer(organizer))
	assert.True(t, tournament.IsOrganizer(coorganizer))
	assert.False(t, tournament.IsOrganizer(uuid.New()))
}

func TestIsFull(t *testing.T) {
	tournament := &Tournament{}
	assert.False(t, tournament.IsFull(1000))

	tournament.Capacity = utils.Ptr(2)
	assert.False(t, tournament.IsFull(1))
	assert.True(t, tournament.IsFull(2))
}

func TestGroupLabel(t *testing.T) {
	assert.Equal(t, "A", GroupLabel(0))
	assert.Equal(t, "C", GroupLabel(2))
	assert.Equal(t, "Z", GroupLabel(25))
	assert.Equal(t, "AA", GroupLabel(26))
	assert.Equal(t, "AB", GroupLabel(27))
}
