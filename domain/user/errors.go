/*
Package user 定义用户领域错误。

构造函数返回 *shared.DomainError，既能用 errors.Is() 匹配本包哨兵
（如 ErrDuplicateEmail），也能匹配 shared 包的错误类别。
*/
package user

import (
	"errors"

	"iam/domain/shared"
)

const entityName = "user"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")

	ErrInvalidEmail        = errors.New("invalid email format")
	ErrInvalidPasswordHash = errors.New("invalid password hash")
	ErrInvalidProfile      = errors.New("invalid user profile")
	ErrInvalidPreferences  = errors.New("invalid user preferences")
	ErrInvalidStatus       = errors.New("invalid user status")
)

func NewUserNotFoundError(userID string) error {
	return shared.NewDomainError(shared.ErrNotFound, ErrUserNotFound, entityName, "",
		"user not found: "+userID)
}

func NewDuplicateEmailError(email string) error {
	return shared.NewDomainError(shared.ErrBusinessRule, ErrDuplicateEmail, entityName, "email",
		"email already registered in tenant: "+email)
}

func NewInvalidEmailError(email string) error {
	return shared.NewDomainError(shared.ErrInvalidInput, ErrInvalidEmail, entityName, "email",
		"invalid email format: "+email)
}

func newValidationError(sentinel error, field, message string) error {
	return shared.NewDomainError(shared.ErrInvalidInput, sentinel, entityName, field, message)
}
