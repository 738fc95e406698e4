package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"train-chat/internal/domain/presence"
	"train-chat/internal/general/config"

	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Host = "db"
	cfg.Database.Port = 5432
	cfg.Database.User = "chat"
	cfg.Database.Password = "s3cr#t"
	cfg.Database.Name = "train_chat"

	if got, want := DSN(cfg), "postgres://chat:s3cr%23t@db:5432/train_chat?sslmode=disable"; got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestWithinTxCommits(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO presence_events`).
		WithArgs("joined", "u09tunq_90", "c1", "BlueFox1", at, nil).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	repo := NewPresenceEventRepo(mock)
	e, _ := presence.NewEvent(presence.KindJoined, "u09tunq_90", "c1", "BlueFox1", at)

	err := NewUnitOfWork(mock).WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Append(ctx, e)
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if e.ID != 42 {
		t.Fatalf("id = %d", e.ID)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewUnitOfWork(mock).WithinTx(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestNestedWithinTxJoinsOuter(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	uow := NewUnitOfWork(mock)
	err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
		outer, _ := TxFromContext(ctx)
		return uow.WithinTx(ctx, func(ctx context.Context) error {
			if inner, _ := TxFromContext(ctx); inner != outer {
				t.Errorf("nested call opened a new transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
}

func TestAppendOutsideTx(t *testing.T) {
	mock := newMock(t)
	e, _ := presence.NewEvent(presence.KindLeft, "r", "c1", "", time.Now())
	if err := NewPresenceEventRepo(mock).Append(context.Background(), e); !errors.Is(err, ErrNoTx) {
		t.Fatalf("err = %v", err)
	}
}

func TestAppendSkipsRedeliveredMessage(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT INTO presence_events.+ON CONFLICT \(message_id\)`).
		WithArgs("left", "u09tunq_90", "c1", "BlueFox1", at, "msg-7").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	repo := NewPresenceEventRepo(mock)
	e, _ := presence.NewEvent(presence.KindLeft, "u09tunq_90", "c1", "BlueFox1", at)
	e.MessageID = "msg-7"

	err := NewUnitOfWork(mock).WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Append(ctx, e)
	})
	if !errors.Is(err, presence.ErrDuplicateEvent) {
		t.Fatalf("err = %v, want ErrDuplicateEvent", err)
	}
}

func TestListByRoom(t *testing.T) {
	mock := newMock(t)
	t1 := time.Date(2025, 3, 1, 8, 1, 0, 0, time.UTC)
	t0 := t1.Add(-time.Minute)

	mock.ExpectQuery(`SELECT id, kind, room_id, connection_id, nickname, occurred_at\s+FROM presence_events`).
		WithArgs("u09tunq_90", MaxEventsPage).
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "room_id", "connection_id", "nickname", "occurred_at"}).
			AddRow(int64(2), "left", "u09tunq_90", "c1", "BlueFox1", t1).
			AddRow(int64(1), "joined", "u09tunq_90", "c1", "BlueFox1", t0))

	events, err := NewPresenceEventRepo(mock).ListByRoom(context.Background(), "u09tunq_90", 10_000)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if len(events) != 2 || events[0].Kind != presence.KindLeft || events[1].ID != 1 {
		t.Fatalf("events = %+v", events)
	}
}
