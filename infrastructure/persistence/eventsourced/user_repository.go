package eventsourced

import (
	"context"
	"fmt"

	"iam/domain/shared"
	"iam/domain/user"
)

// UserRepository persists user aggregates as event streams.
type UserRepository struct {
	stream *stream[*user.Aggregate, user.Event]
}

func NewUserRepository(store shared.EventStore, opts Options) *UserRepository {
	return &UserRepository{stream: newStream(store, opts, codec[*user.Aggregate, user.Event]{
		aggregateType: user.AggregateType,
		notFound:      user.NewUserNotFoundError,
		encodeEvent:   user.EncodeEvent,
		decodeEvent:   user.DecodeEvent,
		fromHistory:   user.FromHistory,
		restore:       restoreUser,
		snapshot:      snapshotUser,
		changes:       (*user.Aggregate).Changes,
		tenantOf:      (*user.Aggregate).TenantID,
	})}
}

func (r *UserRepository) Load(ctx context.Context, tenantID shared.TenantID, id user.UserID) (*user.Aggregate, error) {
	return r.stream.load(ctx, tenantID, id.String())
}

func (r *UserRepository) Save(ctx context.Context, agg *user.Aggregate) error {
	return r.stream.save(ctx, agg)
}

func restoreUser(state []byte, version int, suffix []user.Event) (*user.Aggregate, error) {
	snap, err := user.DecodeSnapshot(state)
	if err != nil {
		return nil, err
	}
	if snap.Version != version {
		return nil, fmt.Errorf("user snapshot version %d does not match record version %d", snap.Version, version)
	}
	return user.FromSnapshot(snap, suffix)
}

func snapshotUser(agg *user.Aggregate) ([]byte, error) {
	snap, err := agg.ToSnapshot()
	if err != nil {
		return nil, err
	}
	return user.EncodeSnapshot(snap)
}

var _ user.Repository = (*UserRepository)(nil)
