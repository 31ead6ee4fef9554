/*
Package shared - 领域层共享错误定义

设计原则:
1. 领域层定义哨兵错误(sentinel errors)，用于 errors.Is() 类型安全判断
2. 每个 DomainError 同时携带"具体错误"和"错误类别"，两者都可以被 errors.Is() 命中
3. DomainError 在创建时捕获堆栈，但延迟格式化（按需打印）
4. 领域错误不包含 HTTP 状态码等传输层概念

错误类别:
- NotFound          聚合或实体不存在
- InvalidInput      值对象构造失败（校验错误）
- StateConflict     当前生命周期状态不允许该操作
- BusinessRule      领域规则被破坏（重名、重复权限等）
- Concurrency       乐观并发版本不一致
- Forbidden         权限层级或租户边界不允许
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// 错误类别哨兵 (Kind Sentinels)
// ============================================================================

var (
	// ErrNotFound 资源未找到
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput 无效输入（参数校验失败）
	ErrInvalidInput = errors.New("invalid input")

	// ErrStateConflict 生命周期状态冲突
	ErrStateConflict = errors.New("state conflict")

	// ErrBusinessRule 业务规则被破坏
	ErrBusinessRule = errors.New("business rule violation")

	// ErrConcurrency 乐观并发冲突，调用方应重新加载后重试
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrForbidden 禁止访问（层级不足或跨租户）
	ErrForbidden = errors.New("forbidden")
)

// ============================================================================
// 具体哨兵 (Specific Sentinels)
// ============================================================================

var (
	// ErrInvalidState 操作要求可修改状态，但当前状态不允许
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidStateTransition 非法的状态迁移
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrCrossTenantAccess 跨租户访问
	ErrCrossTenantAccess = errors.New("cross-tenant access")

	// ErrInsufficientAuthority 角色层级不足以管理目标
	ErrInsufficientAuthority = errors.New("insufficient authority")
)

// Kind 错误类别
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindBusinessRule  Kind = "business_rule"
	KindConcurrency   Kind = "concurrency"
	KindForbidden     Kind = "forbidden"
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindNotFound, ErrNotFound},
	{KindValidation, ErrInvalidInput},
	{KindStateConflict, ErrStateConflict},
	{KindBusinessRule, ErrBusinessRule},
	{KindConcurrency, ErrConcurrency},
	{KindForbidden, ErrForbidden},
}

// KindOf 返回错误所属类别，非领域错误返回 KindUnknown
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}

// ============================================================================
// 领域错误结构体 (Domain Error)
// ============================================================================

// DomainError 领域错误 - 携带业务上下文和堆栈的结构化错误
type DomainError struct {
	// Err 具体哨兵错误（如 role.ErrDuplicatePermission）
	Err error

	// Kind 错误类别哨兵（如 ErrBusinessRule）
	Kind error

	// Entity 发生错误的实体名称（如 "role", "user"）
	Entity string

	// Message 人类可读的错误描述
	Message string

	// Field 可选：发生错误的字段名（用于校验错误）
	Field string

	stack []uintptr
}

// NewDomainError 供子领域包构造带类别的错误
func NewDomainError(kind, sentinel error, entity, field, message string) *DomainError {
	return &DomainError{
		Err:     sentinel,
		Kind:    kind,
		Entity:  entity,
		Field:   field,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// Error 实现 error 接口
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap 同时暴露具体错误与类别，errors.Is() 对两者都成立
func (e *DomainError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Kind != nil && e.Kind != e.Err {
		errs = append(errs, e.Kind)
	}
	return errs
}

// Stack 按需格式化堆栈（只在打印日志时调用）
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// ============================================================================
// 堆栈捕获辅助函数
// ============================================================================

// CaptureStack 捕获当前调用栈（导出供子领域包使用）
// skip: 跳过的帧数（通常为 3：Callers, CaptureStack, NewXxxError）
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack 格式化堆栈帧为字符串切片，过滤 runtime 内部帧，最多返回 10 帧
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

// ============================================================================
// 领域错误构造函数
// ============================================================================

// NewNotFoundError 创建"未找到"领域错误
func NewNotFoundError(entity, id string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Kind:    ErrNotFound,
		Entity:  entity,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
		stack:   CaptureStack(3),
	}
}

// NewValidationError 创建"校验失败"领域错误
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Kind:    ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewInvalidStateError 操作要求可修改状态
func NewInvalidStateError(entity, message string) error {
	return &DomainError{
		Err:     ErrInvalidState,
		Kind:    ErrStateConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewInvalidStateTransitionError 非法状态迁移
func NewInvalidStateTransitionError(entity, from, to string) error {
	return &DomainError{
		Err:     ErrInvalidStateTransition,
		Kind:    ErrStateConflict,
		Entity:  entity,
		Field:   "status",
		Message: fmt.Sprintf("%s cannot transition from %s to %s", entity, from, to),
		stack:   CaptureStack(3),
	}
}

// NewConcurrencyError 乐观并发冲突
func NewConcurrencyError(aggregateID string, expected, actual int) error {
	return &DomainError{
		Err:    ErrConcurrency,
		Kind:   ErrConcurrency,
		Entity: "aggregate",
		Message: fmt.Sprintf("aggregate %s: expected version %d but found %d, reload and retry",
			aggregateID, expected, actual),
		stack: CaptureStack(3),
	}
}

// NewForbiddenError 创建"禁止访问"领域错误
func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Kind:    ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewCrossTenantError 跨租户访问被拒绝
func NewCrossTenantError(entity string, expected, actual TenantID) error {
	return &DomainError{
		Err:     ErrCrossTenantAccess,
		Kind:    ErrForbidden,
		Entity:  entity,
		Field:   "tenant_id",
		Message: fmt.Sprintf("%s belongs to tenant %s, not %s", entity, actual, expected),
		stack:   CaptureStack(3),
	}
}

// ============================================================================
// Stacker 接口
// ============================================================================

// Stacker 可提供堆栈的错误接口
type Stacker interface {
	Stack() []string
}
