package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "mentor", "mentee"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), r)
	}

	_, err := ParseRole("Mentor")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestCan(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, SessionCancel, true},
		{RoleAdmin, AssignmentWrite, true},
		{RoleMentor, SessionComplete, true},
		{RoleMentor, SessionCancel, false},
		{RoleMentor, AssignmentWrite, false},
		{RoleMentor, FullSystemAccess, false},
		{RoleMentee, SessionFeedback, true},
		{RoleMentee, SessionCreate, false},
		{Role("guest"), DirectoryRead, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, Can(tc.role, tc.cap), "%s / %s", tc.role, tc.cap)
	}
}

func TestActor(t *testing.T) {
	a, err := NewActor("u-1", "M1", "mentor")
	require.NoError(t, err)
	assert.True(t, a.IsMentor())
	assert.False(t, a.IsMentee())
	assert.True(t, a.Can(SessionUpdate))
	assert.False(t, a.Can(SessionCancel))

	_, err = NewActor("u-2", "X", "superuser")
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	assert.ElementsMatch(t, []Capability{SessionFeedback}, Capabilities(RoleMentee))
	assert.Empty(t, Capabilities(Role("nobody")))
}
