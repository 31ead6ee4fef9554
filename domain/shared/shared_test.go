package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSpecific = errors.New("specific")

func TestDomainErrorMatchesSentinelAndKind(t *testing.T) {
	err := NewDomainError(ErrBusinessRule, errSpecific, "role", "name", "boom")
	wrapped := fmt.Errorf("save: %w", err)

	assert.True(t, errors.Is(wrapped, errSpecific))
	assert.True(t, errors.Is(wrapped, ErrBusinessRule))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindBusinessRule, KindOf(wrapped))

	var de *DomainError
	require.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "name", de.Field)
	assert.NotEmpty(t, de.Stack())
}

func TestErrorConstructorsKinds(t *testing.T) {
	tenant := GenerateTenantID()
	tests := []struct {
		err  error
		kind Kind
		is   error
	}{
		{NewNotFoundError("role", "x"), KindNotFound, ErrNotFound},
		{NewValidationError("role", "name", "bad"), KindValidation, ErrInvalidInput},
		{NewInvalidStateError("role", "deleted"), KindStateConflict, ErrInvalidState},
		{NewInvalidStateTransitionError("role", "DELETED", "ACTIVE"), KindStateConflict, ErrInvalidStateTransition},
		{NewConcurrencyError("agg", 3, 4), KindConcurrency, ErrConcurrency},
		{NewForbiddenError("role", "nope"), KindForbidden, ErrForbidden},
		{NewCrossTenantError("role", tenant, GenerateTenantID()), KindForbidden, ErrCrossTenantAccess},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err), tt.err.Error())
		assert.True(t, errors.Is(tt.err, tt.is), tt.err.Error())
	}
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestIdentifiers(t *testing.T) {
	id, err := NewTenantID(" 3F2504E0-4F89-11D3-9A0C-0305E82C3301 ")
	require.NoError(t, err)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", id.String())

	same, err := NewTenantID("3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	require.NoError(t, err)
	assert.True(t, id.Equals(same))
	assert.Equal(t, id, same)

	for _, bad := range []string{"", "3f2504e0-4f89-61d3-9a0c-0305e82c3301", "3f2504e0-4f89-11d3-7a0c-0305e82c3301", "xyz"} {
		_, err := NewOrganizationID(bad)
		assert.Equal(t, KindValidation, KindOf(err), bad)
	}
	assert.True(t, IsUUID(NewUUID()))
	assert.True(t, TenantID{}.IsZero())
}

type testEvent struct {
	EventMetadata
}

func newTestEvent(name string) *testEvent {
	return &testEvent{EventMetadata: NewEventMetadata(name, NewUUID(), time.Now())}
}

func TestEventBusDispatch(t *testing.T) {
	bus := NewEventBus()
	var named, all []string

	require.NoError(t, bus.Subscribe("role.created", NewFuncHandler("named", func(e DomainEvent) error {
		named = append(named, e.EventName())
		return nil
	})))
	require.NoError(t, bus.Subscribe(AllEvents, NewFuncHandler("all", func(e DomainEvent) error {
		all = append(all, e.EventName())
		return nil
	})))
	assert.Error(t, bus.Subscribe(AllEvents, NewFuncHandler("all", func(DomainEvent) error { return nil })))

	require.NoError(t, bus.Publish(newTestEvent("role.created")))
	require.NoError(t, bus.Publish(newTestEvent("user.created")))

	assert.Equal(t, []string{"role.created"}, named)
	assert.Equal(t, []string{"role.created", "user.created"}, all)
	assert.Len(t, bus.GetPublishHistory(), 2)

	require.NoError(t, bus.Unsubscribe(AllEvents, NewFuncHandler("all", nil)))
	require.NoError(t, bus.Publish(newTestEvent("user.created")))
	assert.Len(t, all, 2)
}

func TestEventBusHandlerFailure(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	require.NoError(t, bus.Subscribe("x", NewFuncHandler("fails", func(DomainEvent) error { return errors.New("down") })))
	require.NoError(t, bus.Subscribe("x", NewFuncHandler("counts", func(DomainEvent) error { calls++; return nil })))

	err := bus.Publish(newTestEvent("x"))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	history := bus.GetPublishHistory()
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)

	assert.Error(t, bus.Publish(&testEvent{}))
}

func TestSpecificationComposition(t *testing.T) {
	ctx := context.Background()
	even := specFunc(func(n int) bool { return n%2 == 0 })
	big := specFunc(func(n int) bool { return n > 3 })

	nums := []int{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []int{4, 6}, Filter(ctx, And[int](even, big), nums))
	assert.Equal(t, []int{2, 4, 5, 6}, Filter(ctx, Or[int](even, big), nums))
	assert.Equal(t, []int{1, 3, 5}, Filter(ctx, Not[int](even), nums))
	assert.Equal(t, nums, Filter[int](ctx, nil, nums))
}

type specFunc func(int) bool

func (f specFunc) IsSatisfiedBy(ctx context.Context, n int) bool { return f(n) }
