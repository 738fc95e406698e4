package riderclient

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"train-chat/internal/domain/geo"
	"train-chat/internal/domain/presence"
	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
	"train-chat/internal/software/rider/position"
	"train-chat/internal/software/rider/session"
)

type emitted struct {
	typ     string
	payload any
}

type recordingEmitter struct{ sent []emitted }

func (r *recordingEmitter) Emit(t string, p any) error {
	r.sent = append(r.sent, emitted{t, p})
	return nil
}

func TestHandleLineNick(t *testing.T) {
	em := &recordingEmitter{}
	b := session.NewBinder(em, logger.NewNop())

	if err := handleLine(context.Background(), b, "/nick  Owl "); err != nil {
		t.Fatal(err)
	}
	if b.Nickname() != "Owl" {
		t.Fatalf("nickname = %q", b.Nickname())
	}
	if len(em.sent) != 1 || em.sent[0].typ != contracts.EventSetNickname {
		t.Fatalf("sent = %+v", em.sent)
	}
	if err := handleLine(context.Background(), b, "/nick"); err == nil {
		t.Fatal("bare /nick accepted")
	}
}

func TestHandleLineChat(t *testing.T) {
	em := &recordingEmitter{}
	b := session.NewBinder(em, logger.NewNop())
	ctx := context.Background()

	if err := handleLine(ctx, b, "hello"); !errors.Is(err, session.ErrNoRoom) {
		t.Fatalf("err = %v, want ErrNoRoom", err)
	}
	if err := handleLine(ctx, b, "   "); err != nil {
		t.Fatalf("blank line: %v", err)
	}

	b.SetRoom(ctx, "u09tunq_90")
	em.sent = nil
	if err := handleLine(ctx, b, "hello"); err != nil {
		t.Fatal(err)
	}
	req, ok := em.sent[0].payload.(contracts.ChatRequest)
	if !ok || req.RoomID != "u09tunq_90" || req.Message != "hello" {
		t.Fatalf("sent = %+v", em.sent)
	}
}

func TestRender(t *testing.T) {
	ts := time.Date(2025, 3, 1, 8, 30, 5, 0, time.Local).UnixMilli()
	var buf bytes.Buffer

	render(&buf, presence.ChatMessage{Nickname: "Owl", Message: "hi", Timestamp: ts})
	render(&buf, presence.Notice(presence.KindJoined, "c1", "Fox", ts))

	want := "[08:30:05] Owl: hi\n[08:30:05] * Fox joined\n"
	if buf.String() != want {
		t.Fatalf("render = %q, want %q", buf.String(), want)
	}
}

func TestReadLines(t *testing.T) {
	out := make(chan string)
	go readLines(strings.NewReader("a\nb\n"), out)
	var got []string
	for l := range out {
		got = append(got, l)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("lines = %v", got)
	}
}

func TestOpenSource(t *testing.T) {
	src, done, err := openSource(Flags{Origin: geo.Point{Lat: 48.1, Lng: 11.5}, SpeedMps: 10, StopAt: time.Minute, Dwell: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer done()
	sim, ok := src.(*position.SimulatedSource)
	if !ok || len(sim.Stops) != 1 {
		t.Fatalf("source = %#v", src)
	}

	if _, _, err := openSource(Flags{Origin: geo.Point{Lat: 91}}); err == nil {
		t.Fatal("invalid origin accepted")
	}
	if _, _, err := openSource(Flags{Replay: "/nonexistent/track.jsonl"}); err == nil {
		t.Fatal("missing replay file accepted")
	}
}
