package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"train-chat/internal/general/contracts"
	"train-chat/internal/ports"
)

// Dispatch decodes one inbound frame from conn and runs the matching
// operation. Frames that cannot be decoded or carry an unknown type are
// answered with an error frame to the sender only.
func (g *Gateway) Dispatch(ctx context.Context, conn ports.Conn, raw []byte) error {
	err := g.dispatch(ctx, conn.ID(), raw)
	if errors.Is(err, ErrBadFrame) || errors.Is(err, ErrUnknownEvent) {
		if frame, encErr := contracts.EncodeFrame(contracts.EventError, contracts.ErrorNotice{Error: err.Error()}); encErr == nil {
			conn.Send(frame)
		}
	}
	return err
}

func (g *Gateway) dispatch(ctx context.Context, connID string, raw []byte) error {
	var f contracts.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	switch f.Type {
	case contracts.EventSetNickname:
		var nick string
		if err := decodeData(f.Data, &nick); err != nil {
			return err
		}
		return g.SetNickname(ctx, connID, nick)

	case contracts.EventJoinRoom:
		var req contracts.RoomRequest
		if err := decodeData(f.Data, &req); err != nil {
			return err
		}
		return g.JoinRoom(ctx, connID, req.RoomID, req.Nickname)

	case contracts.EventLeaveRoom:
		var req contracts.RoomRequest
		if err := decodeData(f.Data, &req); err != nil {
			return err
		}
		return g.LeaveRoom(ctx, connID, req.RoomID, req.Nickname)

	case contracts.EventChatMessage:
		var req contracts.ChatRequest
		if err := decodeData(f.Data, &req); err != nil {
			return err
		}
		return g.ChatMessage(ctx, connID, req.RoomID, req.Message)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrBadFrame)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return nil
}
