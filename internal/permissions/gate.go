// Package permissions gates the moderator actions of the approval workflow.
// Policies are keyed by stable role IDs, never role names.
package permissions

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionEdit   Action = "edit"
	ActionReject Action = "reject"
	ActionPay    Action = "pay"
)

var ErrDenied = errors.New("permission denied")

type Gate struct {
	policy map[Action][]string
}

// NewGate builds a gate from the configured action -> role-ID policy.
// Actions missing from the policy fall back to defaultRoles; pay always
// reuses the accept list.
func NewGate(policy map[string][]string, defaultRoles []string) (*Gate, error) {
	g := &Gate{policy: make(map[Action][]string)}

	for _, action := range []Action{ActionAccept, ActionEdit, ActionReject} {
		roles, ok := policy[string(action)]
		if !ok {
			roles = defaultRoles
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("no roles authorized for action %q", action)
		}
		g.policy[action] = roles
	}
	g.policy[ActionPay] = g.policy[ActionAccept]

	return g, nil
}

// Allowed reports whether any of the caller's current roles is on the
// action's allow-list.
func (g *Gate) Allowed(action Action, roleIDs []string) bool {
	allowed, ok := g.policy[action]
	if !ok {
		return false
	}
	for _, have := range roleIDs {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Check is Allowed as an error, for call sites that propagate denial.
func (g *Gate) Check(action Action, roleIDs []string) error {
	if !g.Allowed(action, roleIDs) {
		return fmt.Errorf("%w: action %s", ErrDenied, action)
	}
	return nil
}
