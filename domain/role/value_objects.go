package role

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"iam/domain/shared"
)

const (
	MaxNameLength        = 50
	MaxDescriptionLength = 500
)

const forbiddenNameChars = `<>"'&`

// RoleID identifies a role aggregate.
type RoleID struct{ value string }

func NewRoleID(raw string) (RoleID, error) {
	v, err := shared.ParseUUID(entityName, "role_id", raw)
	if err != nil {
		return RoleID{}, err
	}
	return RoleID{value: v}, nil
}

func GenerateRoleID() RoleID           { return RoleID{value: shared.NewUUID()} }
func (id RoleID) String() string       { return id.value }
func (id RoleID) IsZero() bool         { return id.value == "" }
func (id RoleID) Equals(o RoleID) bool { return id.value == o.value }

// Name is a trimmed, case-preserving role name.
type Name struct{ value string }

func NewName(raw string) (Name, error) {
	value := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(value)
	if length == 0 {
		return Name{}, newValidationError(ErrInvalidRoleName, "name", "role name cannot be empty")
	}
	if length > MaxNameLength {
		return Name{}, newValidationError(ErrInvalidRoleName, "name",
			fmt.Sprintf("role name must be at most %d characters, got %d", MaxNameLength, length))
	}
	if strings.ContainsAny(value, forbiddenNameChars) {
		return Name{}, newValidationError(ErrInvalidRoleName, "name",
			"role name cannot contain any of "+forbiddenNameChars)
	}
	return Name{value: value}, nil
}

func (n Name) String() string { return n.value }

// Equals compares the trimmed values exactly.
func (n Name) Equals(other Name) bool { return n.value == other.value }

// EqualFold compares names ignoring case; uniqueness checks use it.
func (n Name) EqualFold(other Name) bool { return strings.EqualFold(n.value, other.value) }

// Description is a trimmed role description, possibly empty.
type Description struct{ value string }

func NewDescription(raw string) (Description, error) {
	value := strings.TrimSpace(raw)
	if length := utf8.RuneCountInString(value); length > MaxDescriptionLength {
		return Description{}, newValidationError(ErrInvalidDescription, "description",
			fmt.Sprintf("role description must be at most %d characters, got %d", MaxDescriptionLength, length))
	}
	return Description{value: value}, nil
}

func (d Description) String() string                { return d.value }
func (d Description) IsEmpty() bool                 { return d.value == "" }
func (d Description) Equals(other Description) bool { return d.value == other.value }
