package user

import "strings"

// Status is the lifecycle state of a user.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusDisabled  Status = "DISABLED"
	StatusDeleted   Status = "DELETED"
)

var AllStatuses = []Status{StatusPending, StatusActive, StatusSuspended, StatusDisabled, StatusDeleted}

// Only an ACTIVE user can be deleted; DELETED is terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusActive},
	StatusActive:    {StatusDisabled, StatusSuspended, StatusDeleted},
	StatusDisabled:  {StatusActive},
	StatusSuspended: {StatusActive},
	StatusDeleted:   {},
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", newValidationError(ErrInvalidStatus, "status", "unknown user status: "+raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) String() string { return string(s) }

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool { return s == StatusDeleted }
