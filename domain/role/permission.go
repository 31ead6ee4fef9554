package role

import (
	"encoding/json"
	"strings"
)

// Permission grants an action on a resource, optionally narrowed by conditions.
// Resource and action are normalized to trimmed lower case. Two permissions
// are equal when their canonical strings are equal.
type Permission struct {
	resource   string
	action     string
	conditions map[string]any
	canonical  string
}

// PermissionData is the serialized form of a Permission.
type PermissionData struct {
	Resource   string         `json:"resource"`
	Action     string         `json:"action"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

func NewPermission(resource, action string) (Permission, error) {
	return NewPermissionWithConditions(resource, action, nil)
}

func NewPermissionWithConditions(resource, action string, conditions map[string]any) (Permission, error) {
	r := normalizePermissionPart(resource)
	a := normalizePermissionPart(action)
	if r == "" {
		return Permission{}, newValidationError(ErrInvalidPermission, "resource", "permission resource cannot be empty")
	}
	if a == "" {
		return Permission{}, newValidationError(ErrInvalidPermission, "action", "permission action cannot be empty")
	}
	if strings.Contains(r, ":") || strings.Contains(a, ":") {
		return Permission{}, newValidationError(ErrInvalidPermission, "resource",
			"permission resource and action cannot contain ':'")
	}

	p := Permission{resource: r, action: a}
	p.canonical = r + ":" + a
	if len(conditions) > 0 {
		p.conditions = copyConditions(conditions)
		encoded, err := json.Marshal(p.conditions)
		if err != nil {
			return Permission{}, newValidationError(ErrInvalidPermission, "conditions",
				"permission conditions must be JSON encodable: "+err.Error())
		}
		p.canonical += ":" + string(encoded)
	}
	return p, nil
}

// MustPermission panics on invalid input. Intended for constants and tests.
func MustPermission(resource, action string) Permission {
	p, err := NewPermission(resource, action)
	if err != nil {
		panic(err)
	}
	return p
}

func normalizePermissionPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (p Permission) Resource() string { return p.resource }
func (p Permission) Action() string   { return p.action }

// Key is resource:action, ignoring conditions.
func (p Permission) Key() string { return p.resource + ":" + p.action }

// String is the canonical form resource:action[:conditionsJSON].
func (p Permission) String() string { return p.canonical }

func (p Permission) IsZero() bool { return p.canonical == "" }

func (p Permission) Equals(other Permission) bool { return p.canonical == other.canonical }

// Matches compares resource and action exactly after normalization.
// Conditions are not consulted; see HasCondition.
func (p Permission) Matches(resource, action string) bool {
	return p.resource == normalizePermissionPart(resource) && p.action == normalizePermissionPart(action)
}

func (p Permission) HasConditions() bool { return len(p.conditions) > 0 }

func (p Permission) HasCondition(key string) bool {
	_, ok := p.conditions[key]
	return ok
}

func (p Permission) Condition(key string) (any, bool) {
	v, ok := p.conditions[key]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Conditions returns a deep copy of the condition map.
func (p Permission) Conditions() map[string]any {
	if len(p.conditions) == 0 {
		return nil
	}
	return copyConditions(p.conditions)
}

func (p Permission) Data() PermissionData {
	return PermissionData{Resource: p.resource, Action: p.action, Conditions: p.Conditions()}
}

func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Data())
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var d PermissionData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := NewPermissionWithConditions(d.Resource, d.Action, d.Conditions)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func copyPermissions(perms []Permission) []Permission {
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

func copyConditions(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyConditions(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}
