// Package specification translates domain specifications into SQL predicates
// for the GORM read-model repositories.
package specification

import (
	"iam/domain/role"
	"iam/domain/shared"
	"iam/domain/user"

	"gorm.io/gorm"
)

// Clause is a parameterized WHERE fragment. An empty SQL matches every row.
type Clause struct {
	SQL  string
	Args []any
}

// Scope applies the clause to a query.
func (c Clause) Scope(db *gorm.DB) *gorm.DB {
	if c.SQL == "" {
		return db
	}
	return db.Where(c.SQL, c.Args...)
}

// LeafTranslator converts a concrete (non-composite) specification.
// It returns false for specifications it does not know.
type LeafTranslator[T any] func(spec shared.Specification[T]) (Clause, bool)

// Translate walks And/Or/Not composites and delegates leaves. When any part
// cannot be translated the whole specification is reported untranslatable and
// callers fall back to in-memory filtering.
func Translate[T any](spec shared.Specification[T], leaf LeafTranslator[T]) (Clause, bool) {
	switch s := spec.(type) {
	case nil:
		return Clause{}, true
	case shared.AndSpecification[T]:
		return binary(s.Left, s.Right, "AND", leaf)
	case shared.OrSpecification[T]:
		left, ok := Translate(s.Left, leaf)
		if !ok {
			return Clause{}, false
		}
		right, ok := Translate(s.Right, leaf)
		if !ok {
			return Clause{}, false
		}
		// an empty side matches everything, and so does the disjunction
		if left.SQL == "" || right.SQL == "" {
			return Clause{}, true
		}
		return join(left, right, "OR"), true
	case shared.NotSpecification[T]:
		inner, ok := Translate(s.Spec, leaf)
		if !ok {
			return Clause{}, false
		}
		if inner.SQL == "" {
			return Clause{SQL: "1 = 0"}, true
		}
		return Clause{SQL: "NOT (" + inner.SQL + ")", Args: inner.Args}, true
	}
	return leaf(spec)
}

func binary[T any](l, r shared.Specification[T], op string, leaf LeafTranslator[T]) (Clause, bool) {
	left, ok := Translate(l, leaf)
	if !ok {
		return Clause{}, false
	}
	right, ok := Translate(r, leaf)
	if !ok {
		return Clause{}, false
	}
	switch {
	case left.SQL == "":
		return right, true
	case right.SQL == "":
		return left, true
	}
	return join(left, right, op), true
}

func join(left, right Clause, op string) Clause {
	args := make([]any, 0, len(left.Args)+len(right.Args))
	args = append(args, left.Args...)
	args = append(args, right.Args...)
	return Clause{SQL: "(" + left.SQL + ") " + op + " (" + right.SQL + ")", Args: args}
}

// RoleLeaf translates role view specifications over the role_views table.
func RoleLeaf(spec shared.Specification[*role.View]) (Clause, bool) {
	switch s := spec.(type) {
	case role.ByTenantSpecification:
		return Clause{SQL: "tenant_id = ?", Args: []any{s.TenantID}}, true
	case role.ByNameSpecification:
		return Clause{SQL: "LOWER(name) = LOWER(?)", Args: []any{s.Name}}, true
	case role.ByStatusSpecification:
		return Clause{SQL: "status = ?", Args: []any{string(s.Status)}}, true
	case role.ByTypeSpecification:
		return Clause{SQL: "type = ?", Args: []any{string(s.Type)}}, true
	case role.ByIDsSpecification:
		if len(s.IDs) == 0 {
			return Clause{SQL: "1 = 0"}, true
		}
		return Clause{SQL: "id IN ?", Args: []any{s.IDs}}, true
	case role.ExpiredBySpecification:
		return Clause{SQL: "expires_at IS NOT NULL AND expires_at <= ?", Args: []any{s.At.UTC()}}, true
	}
	return Clause{}, false
}

// UserLeaf translates user view specifications over the user_views table.
func UserLeaf(spec shared.Specification[*user.View]) (Clause, bool) {
	switch s := spec.(type) {
	case user.ByTenantSpecification:
		return Clause{SQL: "tenant_id = ?", Args: []any{s.TenantID}}, true
	case user.ByEmailSpecification:
		return Clause{SQL: "email = ?", Args: []any{s.Email}}, true
	case user.ByStatusSpecification:
		return Clause{SQL: "status = ?", Args: []any{string(s.Status)}}, true
	}
	return Clause{}, false
}
