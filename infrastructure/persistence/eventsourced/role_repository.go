package eventsourced

import (
	"context"
	"fmt"

	"iam/domain/role"
	"iam/domain/shared"
)

// RoleRepository persists role aggregates as event streams.
type RoleRepository struct {
	stream *stream[*role.Aggregate, role.Event]
}

func NewRoleRepository(store shared.EventStore, opts Options) *RoleRepository {
	return &RoleRepository{stream: newStream(store, opts, codec[*role.Aggregate, role.Event]{
		aggregateType: role.AggregateType,
		notFound:      role.NewRoleNotFoundError,
		encodeEvent:   role.EncodeEvent,
		decodeEvent:   role.DecodeEvent,
		fromHistory:   role.FromHistory,
		restore:       restoreRole,
		snapshot:      snapshotRole,
		changes:       (*role.Aggregate).Changes,
		tenantOf:      (*role.Aggregate).TenantID,
	})}
}

func (r *RoleRepository) Load(ctx context.Context, tenantID shared.TenantID, id role.RoleID) (*role.Aggregate, error) {
	return r.stream.load(ctx, tenantID, id.String())
}

func (r *RoleRepository) Save(ctx context.Context, agg *role.Aggregate) error {
	return r.stream.save(ctx, agg)
}

func restoreRole(state []byte, version int, suffix []role.Event) (*role.Aggregate, error) {
	snap, err := role.DecodeSnapshot(state)
	if err != nil {
		return nil, err
	}
	if snap.Version != version {
		return nil, fmt.Errorf("role snapshot version %d does not match record version %d", snap.Version, version)
	}
	return role.FromSnapshot(snap, suffix)
}

func snapshotRole(agg *role.Aggregate) ([]byte, error) {
	snap, err := agg.ToSnapshot()
	if err != nil {
		return nil, err
	}
	return role.EncodeSnapshot(snap)
}

var _ role.Repository = (*RoleRepository)(nil)
