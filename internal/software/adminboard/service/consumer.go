package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"train-chat/internal/general/contracts"
	"train-chat/internal/ports"
)

// RunBackgroundConsumer feeds the presence queue into RecordPresence
// until ctx is done. A broken consume loop is restarted after a pause,
// which covers broker reconnects.
func (s *adminService) RunBackgroundConsumer(ctx context.Context) error {
	for {
		err := s.consumer.Consume(ctx, contracts.QueuePresenceEvents, consumerTag, consumerPrefetch, s.handlePresence)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.logger.Error(ctx, "presence_consumer_failed", "Presence consumer stopped, restarting", err, nil)
		}

		t := time.NewTimer(s.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *adminService) handlePresence(ctx context.Context, body []byte) error {
	var msg contracts.PresenceMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Error(ctx, "presence_decode_failed", "Dropping undecodable presence message", err, nil)
		return fmt.Errorf("%w: decode presence message: %w", ports.ErrPoisonMessage, err)
	}
	if msg.CorrelationID != "" {
		ctx = s.logger.WithRequestID(ctx, msg.CorrelationID)
	}
	if err := s.RecordPresence(ctx, msg); err != nil {
		s.logger.Error(ctx, "presence_record_failed", "Failed to record presence event", err, map[string]any{"kind": msg.Kind})
		return err
	}
	return nil
}
