package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAllowsByRoleID(t *testing.T) {
	g, err := NewGate(map[string][]string{
		"accept": {"111", "222"},
		"edit":   {"111"},
		"reject": {"111", "222"},
	}, nil)
	require.NoError(t, err)

	assert.True(t, g.Allowed(ActionAccept, []string{"333", "222"}))
	assert.False(t, g.Allowed(ActionAccept, []string{"333"}))
	assert.False(t, g.Allowed(ActionAccept, nil))

	assert.True(t, g.Allowed(ActionEdit, []string{"111"}))
	assert.False(t, g.Allowed(ActionEdit, []string{"222"}), "edit list is narrower than accept")
}

func TestGatePayReusesAcceptList(t *testing.T) {
	g, err := NewGate(map[string][]string{
		"accept": {"111"},
		"edit":   {"111"},
		"reject": {"111"},
		"pay":    {"999"}, // ignored: pay always follows accept
	}, nil)
	require.NoError(t, err)

	assert.True(t, g.Allowed(ActionPay, []string{"111"}))
	assert.False(t, g.Allowed(ActionPay, []string{"999"}))
}

func TestGateDefaultsForMissingActions(t *testing.T) {
	g, err := NewGate(map[string][]string{}, []string{"42"})
	require.NoError(t, err)

	for _, action := range []Action{ActionAccept, ActionEdit, ActionReject, ActionPay} {
		assert.True(t, g.Allowed(action, []string{"42"}), "action %s", action)
		assert.False(t, g.Allowed(action, []string{"43"}), "action %s", action)
	}
}

func TestGateRequiresSomeRoles(t *testing.T) {
	_, err := NewGate(map[string][]string{}, nil)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	g, err := NewGate(map[string][]string{}, []string{"42"})
	require.NoError(t, err)

	assert.NoError(t, g.Check(ActionAccept, []string{"42"}))
	assert.ErrorIs(t, g.Check(ActionAccept, []string{"1"}), ErrDenied)
}
