package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"testing"

	"train-chat/internal/domain/motion"
	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
)

type recorder struct {
	events []string
	down   bool
}

func (r *recorder) Emit(eventType string, payload any) error {
	if r.down {
		return errors.New("not connected")
	}
	switch p := payload.(type) {
	case string:
		r.events = append(r.events, eventType+" "+p)
	case contracts.RoomRequest:
		r.events = append(r.events, fmt.Sprintf("%s %s as %s", eventType, p.RoomID, p.Nickname))
	case contracts.ChatRequest:
		r.events = append(r.events, fmt.Sprintf("%s %s: %s", eventType, p.RoomID, p.Message))
	default:
		r.events = append(r.events, eventType)
	}
	return nil
}

func (r *recorder) take() []string {
	out := r.events
	r.events = nil
	return out
}

func expect(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRoomChangesArePaired(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := NewBinder(rec, logger.NewNop())

	b.SetNickname(ctx, "BlueFox7")
	b.SetRoom(ctx, "xn76urx6_90")
	b.SetRoom(ctx, "xn76urx6_90")
	b.SetRoom(ctx, "xn76urx4_90")
	b.SetRoom(ctx, "")
	b.SetRoom(ctx, "")

	expect(t, rec.take(),
		"set-nickname BlueFox7",
		"join-room xn76urx6_90 as BlueFox7",
		"leave-room xn76urx6_90 as BlueFox7",
		"join-room xn76urx4_90 as BlueFox7",
		"leave-room xn76urx4_90 as BlueFox7",
	)
}

func TestNicknameChangeCyclesMembership(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := NewBinder(rec, logger.NewNop())

	b.SetNickname(ctx, "Old")
	b.SetRoom(ctx, "room1")
	rec.take()

	b.SetNickname(ctx, " New ")
	b.SetNickname(ctx, "New")

	expect(t, rec.take(),
		"leave-room room1 as Old",
		"set-nickname New",
		"join-room room1 as New",
	)
}

func TestCloseLeaves(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := NewBinder(rec, logger.NewNop())

	b.Close(ctx)
	b.SetRoom(ctx, "room1")
	b.Close(ctx)

	expect(t, rec.take(), "join-room room1 as ", "leave-room room1 as ")
	if b.Room() != "" {
		t.Fatalf("room = %q", b.Room())
	}
}

func TestFailedEmitIsDropped(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{down: true}
	b := NewBinder(rec, logger.NewNop())

	b.SetNickname(ctx, "Lucky1")
	b.SetRoom(ctx, "room1")
	if b.Room() != "room1" || b.Nickname() != "Lucky1" {
		t.Fatalf("local state did not advance")
	}

	rec.down = false
	b.Resync(ctx)
	expect(t, rec.take(), "set-nickname Lucky1", "join-room room1 as Lucky1")
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := NewBinder(rec, logger.NewNop())

	if err := b.Send(ctx, "hi"); !errors.Is(err, ErrNoRoom) {
		t.Fatalf("err = %v", err)
	}
	b.SetRoom(ctx, "room1")
	rec.take()
	if err := b.Send(ctx, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v", err)
	}
	if err := b.Send(ctx, "  hello  "); err != nil {
		t.Fatalf("send: %v", err)
	}
	expect(t, rec.take(), "chat-message room1: hello")
}

func frame(t *testing.T, typ string, data any) contracts.Frame {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return contracts.Frame{Type: typ, Data: raw}
}

func TestChatLog(t *testing.T) {
	l := NewChatLog(3)

	apply := func(f contracts.Frame) {
		t.Helper()
		if _, _, err := l.Apply(f); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	apply(frame(t, contracts.EventUserJoined, contracts.PresenceNotice{UserID: "c2", Nickname: "Hare", Timestamp: 1}))
	apply(frame(t, contracts.EventChatMessage, contracts.ChatBroadcast{Sender: "c2", Nickname: "Hare", Message: "hi", Timestamp: 2}))
	apply(frame(t, contracts.EventUserLeft, contracts.PresenceNotice{UserID: "c2", Nickname: "Hare", Timestamp: 3}))

	if _, ok, _ := l.Apply(contracts.Frame{Type: contracts.EventError}); ok {
		t.Fatalf("error frame logged")
	}

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("entries = %+v", got)
	}
	if got[0].Message != "Hare joined" || !got[0].System {
		t.Fatalf("join entry = %+v", got[0])
	}
	if got[1].Message != "hi" || got[1].System {
		t.Fatalf("chat entry = %+v", got[1])
	}
	if got[2].Message != "Hare left" {
		t.Fatalf("leave entry = %+v", got[2])
	}

	apply(frame(t, contracts.EventChatMessage, contracts.ChatBroadcast{Message: "4th"}))
	if got := l.Entries(); len(got) != 3 || got[0].Message != "hi" {
		t.Fatalf("log not bounded: %+v", got)
	}

	if _, _, err := l.Apply(contracts.Frame{Type: contracts.EventChatMessage, Data: []byte(`"x"`)}); err == nil {
		t.Fatalf("bad payload accepted")
	}

	l.Reset()
	if len(l.Entries()) != 0 {
		t.Fatalf("reset kept entries")
	}
}

func TestRoomLatch(t *testing.T) {
	var l RoomLatch
	steps := []struct {
		state motion.MotionState
		want  string
	}{
		{motion.MotionState{RoomID: "a_90"}, ""},
		{motion.MotionState{RoomID: "b_90", IsRiding: true}, "b_90"},
		{motion.MotionState{RoomID: "c_90", IsRiding: true}, "b_90"},
		{motion.MotionState{RoomID: "c_90"}, ""},
		{motion.MotionState{RoomID: "d_45", IsRiding: true}, "d_45"},
	}
	for i, s := range steps {
		if got := l.Update(s.state); got != s.want {
			t.Fatalf("step %d: room = %q, want %q", i, got, s.want)
		}
	}
}

func TestRandomNickname(t *testing.T) {
	re := regexp.MustCompile(`^(Swift|Blue|Silent|Bright|Lucky|Witty)(Fox|Otter|Hare|Falcon|Koala|Panda)\d{1,3}$`)
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		if n := RandomNickname(r); !re.MatchString(n) {
			t.Fatalf("nickname %q", n)
		}
	}
	if !re.MatchString(RandomNickname(nil)) {
		t.Fatalf("global source nickname malformed")
	}
}
