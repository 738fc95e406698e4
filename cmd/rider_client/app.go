package riderclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"train-chat/internal/domain/geo"
	"train-chat/internal/domain/motion"
	"train-chat/internal/domain/presence"
	"train-chat/internal/general/clock"
	"train-chat/internal/general/config"
	"train-chat/internal/general/logger"
	"train-chat/internal/software/rider/engine"
	"train-chat/internal/software/rider/position"
	"train-chat/internal/software/rider/session"
	"train-chat/internal/software/rider/wsclient"

	"golang.org/x/sync/errgroup"
)

// Flags are the rider's command-line options.
type Flags struct {
	ConfigPath string
	Replay     string        // recorded track; empty means simulate
	Origin     geo.Point     // simulated start
	SpeedMps   float64       // simulated speed
	HeadingDeg float64       // simulated heading
	StopAt     time.Duration // simulated station stop, 0 for none
	Dwell      time.Duration
	Nickname   string
}

// Run drives the motion engine, binds its room to the gateway session and
// reads chat lines from stdin until ctx is cancelled.
func Run(ctx context.Context, f Flags) error {
	cfg, err := config.LoadFromFile(f.ConfigPath, config.SectionMotion, config.SectionRider)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logger.New("rider-client", logger.Options{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	source, closeSource, err := openSource(f)
	if err != nil {
		logger.Error(ctx, "position_source_failed", "Failed to open position source", err, map[string]any{"replay": f.Replay})
		return err
	}
	defer closeSource()

	nick := strings.TrimSpace(f.Nickname)
	if nick == "" {
		nick = strings.TrimSpace(cfg.Rider.Nickname)
	}
	if nick == "" {
		nick = session.RandomNickname(nil)
	}

	// the link outlives ctx long enough to send the final leave
	linkCtx, stopLink := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLink()

	var binder *session.Binder
	client := wsclient.New(cfg.Rider.GatewayURL, logger, wsclient.Options{
		OnConnect: func(ctx context.Context) { binder.Resync(ctx) },
	})
	binder = session.NewBinder(client, logger)
	binder.SetNickname(ctx, nick)

	chat := session.NewChatLog(session.DefaultLogSize)
	var latch session.RoomLatch

	eng := engine.New(source, logger, engine.Options{
		Interval: time.Duration(cfg.Motion.SampleIntervalMs) * time.Millisecond,
		Params: motion.Params{
			ThresholdMps:     cfg.Motion.ThresholdMps,
			Grace:            time.Duration(cfg.Motion.GraceMs) * time.Millisecond,
			GeohashPrecision: uint(cfg.Motion.GeohashPrecision),
		},
		OnState: func(s motion.MotionState) {
			room := latch.Update(s)
			if room == "" {
				fmt.Fprintf(os.Stdout, "-- detecting: %.1f m/s heading %.0f riding=%t online=%t\n", s.SpeedMps, s.HeadingDeg, s.IsRiding, client.Connected())
			}
			if room == binder.Room() {
				return
			}
			chat.Reset()
			binder.SetRoom(ctx, room)
			if room == "" {
				fmt.Fprintln(os.Stdout, "-- left the train chat")
			} else {
				fmt.Fprintf(os.Stdout, "-- joined room %s as %s\n", room, binder.Nickname())
			}
		},
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return client.Run(linkCtx) })
	g.Go(func() error { return eng.Run(gctx) })

	g.Go(func() error {
		for frame := range client.Events() {
			entry, ok, err := chat.Apply(frame)
			if err != nil {
				logger.Warn(ctx, "frame_decode_failed", "Ignoring malformed frame", map[string]any{"error": err.Error()})
				continue
			}
			if ok {
				render(os.Stdout, entry)
			}
		}
		return nil
	})

	// stdin cannot be interrupted, so the reader stays outside the group
	lines := make(chan string)
	go readLines(os.Stdin, lines)

	g.Go(func() error {
		defer func() {
			binder.Close(ctx)
			stopLink()
		}()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					<-gctx.Done()
					return nil
				}
				if err := handleLine(gctx, binder, line); err != nil {
					fmt.Fprintln(os.Stdout, "!!", err)
				}
			}
		}
	})

	logger.Info(ctx, "client_started", "Rider client started", map[string]any{
		"gateway":  cfg.Rider.GatewayURL,
		"nickname": nick,
		"replay":   f.Replay != "",
	})
	return g.Wait()
}

func openSource(f Flags) (position.Source, func(), error) {
	if f.Replay != "" {
		src, err := position.OpenReplay(f.Replay)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	}
	if err := f.Origin.Validate(); err != nil {
		return nil, nil, err
	}
	var stops []position.Stop
	if f.StopAt > 0 && f.Dwell > 0 {
		stops = append(stops, position.Stop{At: f.StopAt, Dwell: f.Dwell})
	}
	return position.NewSimulatedSource(clock.Real(), f.Origin, f.SpeedMps, f.HeadingDeg, stops...), func() {}, nil
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

// handleLine treats "/nick NAME" as a rename and anything else as chat.
func handleLine(ctx context.Context, b *session.Binder, line string) error {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "/nick"); ok {
		name := strings.TrimSpace(rest)
		if name == "" {
			return errors.New("usage: /nick NAME")
		}
		b.SetNickname(ctx, name)
		return nil
	}
	err := b.Send(ctx, line)
	if errors.Is(err, session.ErrEmptyMessage) {
		return nil
	}
	return err
}

func render(w io.Writer, m presence.ChatMessage) {
	ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
	if m.System {
		fmt.Fprintf(w, "[%s] * %s\n", ts, m.Message)
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", ts, m.Nickname, m.Message)
}
