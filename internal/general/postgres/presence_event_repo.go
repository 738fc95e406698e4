package postgres

import (
	"context"
	"errors"
	"fmt"

	"train-chat/internal/domain/presence"
	"train-chat/internal/ports"

	"github.com/jackc/pgx/v5"
)

// MaxEventsPage caps ListByRoom.
const MaxEventsPage = 500

// Querier is the read side shared by pools and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PresenceEventRepo is the presence_events journal.
type PresenceEventRepo struct {
	db Querier
}

func NewPresenceEventRepo(db Querier) ports.PresenceEventRepository {
	return &PresenceEventRepo{db: db}
}

// Append inserts e and fills in its id. Must run inside WithinTx. An
// event whose MessageID is already journaled is not inserted again and
// yields presence.ErrDuplicateEvent.
func (r *PresenceEventRepo) Append(ctx context.Context, e *presence.Event) error {
	tx, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO presence_events (kind, room_id, connection_id, nickname, occurred_at, message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) WHERE message_id IS NOT NULL DO NOTHING
		RETURNING id
	`, string(e.Kind), e.RoomID, e.ConnectionID, e.Nickname, e.OccurredAt, nullIfEmpty(e.MessageID)).Scan(&e.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return presence.ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("insert presence event: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListByRoom returns the newest events of roomID first. limit is clamped
// to 1..MaxEventsPage.
func (r *PresenceEventRepo) ListByRoom(ctx context.Context, roomID string, limit int) ([]presence.Event, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxEventsPage {
		limit = MaxEventsPage
	}

	var q Querier = r.db
	if tx, ok := TxFromContext(ctx); ok {
		q = tx
	}

	rows, err := q.Query(ctx, `
		SELECT id, kind, room_id, connection_id, nickname, occurred_at
		FROM presence_events
		WHERE room_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query presence events: %w", err)
	}
	defer rows.Close()

	events := make([]presence.Event, 0, limit)
	for rows.Next() {
		var (
			e    presence.Event
			kind string
		)
		if err := rows.Scan(&e.ID, &kind, &e.RoomID, &e.ConnectionID, &e.Nickname, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan presence event: %w", err)
		}
		e.Kind = presence.Kind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}
