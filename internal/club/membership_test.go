package club

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrantsAtLeast(t *testing.T) {
	testCases := []struct {
		name     string
		userType UserType
		want     UserType
		expected bool
	}{
		{"non member is not a member", NonMember, Member, false},
		{"member is a member", Member, Member, true},
		{"officer is a member", Officer, Member, true},
		{"owner is an officer", Owner, Officer, true},
		{"member is not an officer", Member, Officer, false},
		{"unknown type grants nothing", UserType("XX"), NonMember, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Membership{UserType: tc.userType, ApplicationStatus: ApplicationApproved}
			assert.Equal(t, tc.expected, GrantsAtLeast(m, tc.want))
		})
	}

	pending := &Membership{UserType: Officer, ApplicationStatus: ApplicationPending}
	assert.False(t, GrantsAtLeast(pending, Member))

	assert.False(t, GrantsAtLeast(nil, NonMember))
}

func TestTrackRating(t *testing.T) {
	m := &Membership{HighestEloRating: BaselineRating, LowestEloRating: BaselineRating}

	assert.True(t, m.TrackRating(1016))
	assert.Equal(t, 1016, m.HighestEloRating)
	assert.Equal(t, BaselineRating, m.LowestEloRating)

	assert.False(t, m.TrackRating(1010))

	assert.True(t, m.TrackRating(984))
	assert.Equal(t, 984, m.LowestEloRating)
}

func TestUserTypeName(t *testing.T) {
	assert.Equal(t, "a Non-Member", NonMember.Name())
	assert.Equal(t, "a Member", Member.Name())
	assert.Equal(t, "an Officer", Officer.Name())
	assert.Equal(t, "the Owner", Owner.Name())
	assert.Equal(t, "unknown", UserType("XX").Name())
}
