// Package session holds the in-progress submission wizard state, one session
// per (guild, member). The wizard is a strict linear state machine; component
// custom IDs only ever carry the opaque session id.
package session

import (
	"errors"
	"time"
)

type State int

const (
	StateServiceType State = iota // choosing animal vs plant
	StateItem                     // choosing the animal or crop sub-type
	StateQuantity                 // plant only: modal for quantity / custom name
	StateEvidence                 // waiting for the screenshot
	StateDone
)

func (s State) String() string {
	switch s {
	case StateServiceType:
		return "service-type"
	case StateItem:
		return "item"
	case StateQuantity:
		return "quantity"
	case StateEvidence:
		return "evidence"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

var (
	ErrSessionActive  = errors.New("a submission session is already active")
	ErrNoSession      = errors.New("no active submission session")
	ErrNotOwner       = errors.New("session belongs to another member")
	ErrBadTransition  = errors.New("step not allowed from the current state")
	ErrBadServiceType = errors.New("unknown service type")
)

type Session struct {
	ID       string
	GuildID  string
	MemberID string

	State       State
	ServiceType string // "animal" or "plant"
	ItemType    string
	Quantity    int64
	CustomPlant bool

	CreatedAt time.Time
}

// next returns the state that follows s for this session's service type.
func (s *Session) next() (State, bool) {
	switch s.State {
	case StateServiceType:
		return StateItem, true
	case StateItem:
		if s.ServiceType == "plant" {
			return StateQuantity, true
		}
		return StateEvidence, true
	case StateQuantity:
		return StateEvidence, true
	case StateEvidence:
		return StateDone, true
	default:
		return s.State, false
	}
}
