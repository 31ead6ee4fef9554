package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"iam/config"
	"iam/infrastructure/messaging"
	"iam/infrastructure/persistence/mysql/po"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []messaging.Message
	failOn    string
}

func (p *fakePublisher) Publish(ctx context.Context, msg messaging.Message) error {
	if msg.EventType == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, msg)
	return nil
}

var outboxColumns = []string{"id", "event_id", "aggregate_id", "aggregate_type", "tenant_id", "event_type", "payload", "status", "retry_count", "last_error", "created_at", "updated_at"}

func TestNewOutboxWorkerValidation(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewOutboxRepository(db)
	valid := config.WorkerConfig{PollInterval: time.Second, BatchSize: 10, MaxRetries: 3}

	_, err := NewOutboxWorker(nil, &fakePublisher{}, valid)
	assert.Error(t, err)
	_, err = NewOutboxWorker(repo, nil, valid)
	assert.Error(t, err)

	bad := valid
	bad.BatchSize = 0
	_, err = NewOutboxWorker(repo, &fakePublisher{}, bad)
	assert.Error(t, err)

	w, err := NewOutboxWorker(repo, &fakePublisher{}, config.WorkerConfig{PollInterval: time.Second, BatchSize: 1, MaxRetries: 1, PublishRate: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, w.limiter.Burst())
}

func TestProcessBatch(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &fakePublisher{failOn: "user.created"}
	w, err := NewOutboxWorker(NewOutboxRepository(db), pub, config.WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		MaxRetries:   5,
	})
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectExec("UPDATE `outbox_events` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `outbox_events` WHERE status = \\? ORDER BY id ASC LIMIT").
		WillReturnRows(sqlmock.NewRows(outboxColumns).
			AddRow("01A", "e1", "r1", "role", "t1", "role.created", `{"eventType":"role.created"}`, "PENDING", 0, "", now, now).
			AddRow("01B", "e2", "u1", "user", "t1", "user.created", `{"eventType":"user.created"}`, "PENDING", 4, "", now, now))

	// 01A: claimed, published, marked
	mock.ExpectExec("UPDATE `outbox_events` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `outbox_events` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	// 01B: claimed, publish fails on its fifth attempt, parked
	mock.ExpectExec("UPDATE `outbox_events` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .*retry_count.* FROM `outbox_events`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "retry_count"}).AddRow("01B", 4))
	mock.ExpectExec("UPDATE `outbox_events` SET").
		WithArgs(sqlmock.AnyArg(), 5, string(po.EventStatusFailed), "01B").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, w.processBatch(context.Background()))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "role.created", pub.published[0].EventType)
	assert.Equal(t, "r1", pub.published[0].AggregateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEventProcessingContention(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)

	mock.ExpectExec("UPDATE `outbox_events` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Error(t, repo.MarkEventProcessing(context.Background(), "01A"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewOutboxEventOrdering(t *testing.T) {
	now := time.Now()
	a := po.NewOutboxEvent(storedEvents("r1", 1, 1)[0], now)
	b := po.NewOutboxEvent(storedEvents("r1", 2, 1)[0], now)
	assert.Len(t, a.ID, 26)
	assert.Less(t, a.ID, b.ID)
	assert.Equal(t, string(po.EventStatusPending), a.Status)

	msg := a.ToMessage()
	assert.Equal(t, a.ID, msg.ID)
	assert.Equal(t, "role.permission_added", msg.EventType)
}
