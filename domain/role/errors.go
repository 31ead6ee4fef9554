/*
Package role 定义角色领域错误。

每个构造函数返回 *shared.DomainError，errors.Is() 可同时命中本包的具体哨兵
（如 ErrDuplicatePermission）和 shared 包的错误类别（如 shared.ErrBusinessRule）。
*/
package role

import (
	"errors"
	"fmt"

	"iam/domain/shared"
)

const entityName = "role"

var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrDuplicateRoleName   = errors.New("duplicate role name")
	ErrDuplicatePermission = errors.New("duplicate permission")
	ErrPermissionNotFound  = errors.New("permission not found")
	ErrInvalidRoleType     = errors.New("invalid role type")

	ErrInvalidRoleName    = errors.New("invalid role name")
	ErrInvalidDescription = errors.New("invalid role description")
	ErrInvalidPermission  = errors.New("invalid permission")
	ErrInvalidSettings    = errors.New("invalid role settings")
	ErrInvalidStatus      = errors.New("invalid role status")
)

func NewRoleNotFoundError(roleID string) error {
	return shared.NewDomainError(shared.ErrNotFound, ErrRoleNotFound, entityName, "",
		"role not found: "+roleID)
}

func NewDuplicateRoleNameError(name string) error {
	return shared.NewDomainError(shared.ErrBusinessRule, ErrDuplicateRoleName, entityName, "name",
		"role name already in use: "+name)
}

func NewDuplicatePermissionError(p Permission) error {
	return shared.NewDomainError(shared.ErrBusinessRule, ErrDuplicatePermission, entityName, "permissions",
		"permission already granted: "+p.String())
}

func NewPermissionNotFoundError(p Permission) error {
	return shared.NewDomainError(shared.ErrBusinessRule, ErrPermissionNotFound, entityName, "permissions",
		"permission not granted: "+p.String())
}

func NewInvalidRoleTypeError(roleType Type, reason string) error {
	return shared.NewDomainError(shared.ErrBusinessRule, ErrInvalidRoleType, entityName, "type",
		fmt.Sprintf("role type %s: %s", roleType, reason))
}

func newValidationError(sentinel error, field, message string) error {
	return shared.NewDomainError(shared.ErrInvalidInput, sentinel, entityName, field, message)
}
