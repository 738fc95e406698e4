package service

import (
	"context"
	"errors"
	"fmt"

	"train-chat/internal/domain/presence"
	"train-chat/internal/general/contracts"
	"train-chat/internal/ports"
)

// RecordPresence journals one presence transition and applies it to the
// live roster. The journal row is committed before the roster changes.
// Redelivery of a message whose journal row already exists only reapplies
// the roster change, which is idempotent.
func (s *adminService) RecordPresence(ctx context.Context, msg contracts.PresenceMessage) error {
	ev, err := presence.NewEvent(presence.Kind(msg.Kind), msg.RoomID, msg.ConnectionID, msg.Nickname, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: invalid presence message: %w", ports.ErrPoisonMessage, err)
	}
	ev.MessageID = msg.CorrelationID

	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return s.events.Append(txCtx, ev)
	})
	switch {
	case errors.Is(err, presence.ErrDuplicateEvent):
		s.logger.Debug(ctx, "presence_redelivered", "Presence event already journaled", map[string]any{"kind": msg.Kind})
	case err != nil:
		return fmt.Errorf("journal presence: %w", err)
	}

	if ev.Kind == presence.KindJoined {
		err = s.roster.Join(ctx, ev.RoomID, ev.ConnectionID, ev.Nickname)
	} else {
		err = s.roster.Leave(ctx, ev.RoomID, ev.ConnectionID)
	}
	if err != nil {
		return fmt.Errorf("update roster: %w", err)
	}

	s.logger.Debug(s.logger.WithRoomID(ctx, ev.RoomID), "presence_recorded", "Presence event recorded", map[string]any{
		"id":   ev.ID,
		"kind": string(ev.Kind),
	})
	return nil
}
