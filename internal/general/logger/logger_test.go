package logger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	ctx := l.WithRequestID(context.Background(), "req-1")
	ctx = l.WithConnID(ctx, "conn-1")
	ctx = l.WithRoomID(ctx, "u09tunq_90")

	l.Info(ctx, "room_joined", "  joined  ", map[string]any{"members": 2})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "joined" {
		t.Fatalf("message not trimmed: %q", e.Message)
	}
	fields := e.ContextMap()
	for key, want := range map[string]string{
		"action":        "room_joined",
		"request_id":    "req-1",
		"connection_id": "conn-1",
		"room_id":       "u09tunq_90",
	} {
		if fields[key] != want {
			t.Fatalf("field %s = %v, want %s", key, fields[key], want)
		}
	}
}

func TestErrorWithNilErrAndBlankAction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Error(context.Background(), " ", "boom", nil, nil)
	l.Error(context.TODO(), "write_failed", "boom", errors.New("closed"), nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["action"] != "unspecified" {
		t.Fatalf("blank action should become unspecified")
	}
	if entries[0].ContextMap()["error"] != "unknown error" {
		t.Fatalf("nil error should be replaced, got %v", entries[0].ContextMap()["error"])
	}
	if entries[1].ContextMap()["error"] != "closed" {
		t.Fatalf("error not attached")
	}
}

func TestBlankIDsDoNotChangeContext(t *testing.T) {
	l := NewNop()
	ctx := context.Background()
	if l.WithConnID(ctx, "  ") != ctx {
		t.Fatalf("blank id should return the same context")
	}
}
