package role

import "strings"

// Status is the lifecycle state of a role.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusDisabled  Status = "DISABLED"
	StatusSuspended Status = "SUSPENDED"
	StatusDeleted   Status = "DELETED"
	StatusExpired   Status = "EXPIRED"
)

// AllStatuses lists every role status in declaration order.
var AllStatuses = []Status{
	StatusPending, StatusActive, StatusInactive, StatusDisabled,
	StatusSuspended, StatusDeleted, StatusExpired,
}

// statusTransitions is the complete table of legal role transitions.
// DELETED is terminal. Whether a particular role may enter DELETED is
// further restricted by its settings (see Aggregate.DeleteRole).
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusDisabled, StatusDeleted},
	StatusActive:    {StatusDisabled, StatusSuspended, StatusDeleted, StatusExpired},
	StatusInactive:  {StatusActive, StatusDeleted},
	StatusDisabled:  {StatusActive, StatusDeleted},
	StatusSuspended: {StatusActive, StatusDeleted},
	StatusExpired:   {StatusDeleted},
	StatusDeleted:   {},
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", newValidationError(ErrInvalidStatus, "status", "unknown role status: "+raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) String() string { return string(s) }

// CanTransitionTo reports whether (s, to) is in the transition table.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the targets reachable from s.
func (s Status) AllowedTransitions() []Status {
	next := statusTransitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func (s Status) IsTerminal() bool { return s == StatusDeleted }

// IsUsable is true for roles whose permissions still take effect.
func (s Status) IsUsable() bool { return s == StatusActive || s == StatusSuspended }
