package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"train-chat/internal/domain/presence"
	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
	"train-chat/internal/general/postgres"
	rediscache "train-chat/internal/general/redis"
	"train-chat/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

type fixture struct {
	svc  *adminService
	mock pgxmock.PgxPoolIface
	mr   *miniredis.Miniredis
}

func newFixture(t *testing.T, consumer ports.QueueConsumer) *fixture {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	svc := NewAdminService(
		postgres.NewUnitOfWork(mock),
		postgres.NewPresenceEventRepo(mock),
		rediscache.NewRoster(cli),
		consumer,
		logger.NewNop(),
	).(*adminService)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	svc.retry = time.Millisecond
	return &fixture{svc: svc, mock: mock, mr: mr}
}

func (f *fixture) expectAppend(kind, room, conn, nick string, id int64) {
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO presence_events`).
		WithArgs(kind, room, conn, nick, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	f.mock.ExpectCommit()
}

func msg(kind, room, conn, nick string) contracts.PresenceMessage {
	return contracts.PresenceMessage{Kind: kind, RoomID: room, ConnectionID: conn, Nickname: nick, Timestamp: time.Now()}
}

func TestRecordPresenceUpdatesRoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.expectAppend("joined", "u09tunq_90", "c1", "SwiftFox1", 1)
	f.expectAppend("joined", "u09tunq_90", "c2", "BlueHare2", 2)
	f.expectAppend("disconnected", "u09tunq_90", "c1", "SwiftFox1", 3)

	for _, m := range []contracts.PresenceMessage{
		msg("joined", "u09tunq_90", "c1", "SwiftFox1"),
		msg("joined", "u09tunq_90", "c2", "BlueHare2"),
		msg("disconnected", "u09tunq_90", "c1", "SwiftFox1"),
	} {
		if err := f.svc.RecordPresence(ctx, m); err != nil {
			t.Fatalf("record %s: %v", m.Kind, err)
		}
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}

	res, err := f.svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if res.TotalRooms != 1 || res.TotalUsers != 1 || res.Rooms[0].Members[0].Nickname != "BlueHare2" {
		t.Fatalf("rooms = %+v", res)
	}
}

func TestRecordPresenceRejectsBadMessage(t *testing.T) {
	f := newFixture(t, nil)
	err := f.svc.RecordPresence(context.Background(), msg("teleported", "r", "c1", ""))
	if !errors.Is(err, presence.ErrInvalidKind) || !errors.Is(err, ports.ErrPoisonMessage) {
		t.Fatalf("err = %v", err)
	}
}

func TestRecordPresenceRedeliveryRepairsRoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	m := msg("joined", "u09tunq_90", "c1", "SwiftFox1")
	m.CorrelationID = "msg-1"

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO presence_events`).
		WithArgs("joined", "u09tunq_90", "c1", "SwiftFox1", pgxmock.AnyArg(), "msg-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	f.mock.ExpectCommit()

	f.mr.SetError("LOADING Redis is loading the dataset in memory")
	err := f.svc.RecordPresence(ctx, m)
	if err == nil || errors.Is(err, ports.ErrPoisonMessage) {
		t.Fatalf("roster outage should be retryable, got %v", err)
	}
	f.mr.SetError("")

	// the broker hands the same message back; its journal row already exists
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO presence_events`).
		WithArgs("joined", "u09tunq_90", "c1", "SwiftFox1", pgxmock.AnyArg(), "msg-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	f.mock.ExpectRollback()

	if err := f.svc.RecordPresence(ctx, m); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}

	res, err := f.svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if res.TotalUsers != 1 || res.Rooms[0].Members[0].ConnectionID != "c1" {
		t.Fatalf("rooms = %+v", res)
	}
}

func TestRecordPresenceRollsBackOnInsertError(t *testing.T) {
	f := newFixture(t, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO presence_events`).WillReturnError(errors.New("disk full"))
	f.mock.ExpectRollback()

	if err := f.svc.RecordPresence(context.Background(), msg("joined", "r", "c1", "n")); err == nil {
		t.Fatalf("expected error")
	}
	res, _ := f.svc.ListRooms(context.Background())
	if res.TotalRooms != 0 || res.Rooms == nil {
		t.Fatalf("roster changed despite failed journal write: %+v", res)
	}
}

func TestRoomEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	f.mock.ExpectQuery(`FROM presence_events`).
		WithArgs("u09tunq_90", DefaultEventsLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "room_id", "connection_id", "nickname", "occurred_at"}).
			AddRow(int64(9), "left", "u09tunq_90", "c1", "n", at))

	res, err := f.svc.RoomEvents(ctx, "u09tunq_90", "")
	if err != nil {
		t.Fatalf("room events: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].ID != 9 || res.Events[0].Kind != "left" {
		t.Fatalf("events = %+v", res)
	}

	for _, bad := range []string{"0", "-3", "ten"} {
		if _, err := f.svc.RoomEvents(ctx, "u09tunq_90", bad); !errors.Is(err, ErrInvalidLimit) {
			t.Fatalf("limit %q: err = %v", bad, err)
		}
	}
	if _, err := f.svc.RoomEvents(ctx, " ", ""); !errors.Is(err, presence.ErrEmptyRoomID) {
		t.Fatalf("empty room: err = %v", err)
	}
}

// scriptedConsumer delivers bodies once, then fails the loop until the
// context ends.
type scriptedConsumer struct {
	bodies  [][]byte
	results []error
	calls   int
}

func (c *scriptedConsumer) Consume(ctx context.Context, queue, _ string, _ int, h func(context.Context, []byte) error) error {
	c.calls++
	if queue != contracts.QueuePresenceEvents {
		return errors.New("wrong queue " + queue)
	}
	for _, b := range c.bodies {
		c.results = append(c.results, h(ctx, b))
	}
	c.bodies = nil
	return errors.New("channel closed")
}

func TestRunBackgroundConsumer(t *testing.T) {
	good, _ := json.Marshal(msg("joined", "room1", "c1", "WittyPanda3"))
	consumer := &scriptedConsumer{bodies: [][]byte{good, []byte("{oops")}}
	f := newFixture(t, consumer)
	f.expectAppend("joined", "room1", "c1", "WittyPanda3", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.RunBackgroundConsumer(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		res, _ := f.svc.ListRooms(context.Background())
		if res.TotalUsers == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("presence never reached the roster")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("consumer: %v", err)
	}

	if consumer.calls < 1 || len(consumer.results) != 2 || consumer.results[0] != nil || !errors.Is(consumer.results[1], ports.ErrPoisonMessage) {
		t.Fatalf("calls=%d results=%v", consumer.calls, consumer.results)
	}
}
