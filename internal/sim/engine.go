package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"globe-flight/internal/camera"
	"globe-flight/internal/flight"
	"globe-flight/internal/log"
	"globe-flight/internal/metrics"
	"globe-flight/internal/track"
)

// ErrQueueFull is returned by Submit when the engine is not keeping up.
var ErrQueueFull = errors.New("sim: command queue full")

type stateReq struct {
	reply chan Snapshot
}

type trackReq struct {
	reply chan track.Track
}

type subscribeReq struct {
	ch chan Snapshot
}

// Engine runs a Session on its own goroutine. Commands, state queries and
// subscriptions reach it over channels, so the session has a single
// writer.
type Engine struct {
	// Actor channels
	cmdCh       chan Command
	stateReqCh  chan stateReq
	trackReqCh  chan trackReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan Snapshot
	done        chan struct{}

	tickHz   float64
	inputTTL time.Duration
	session  SessionConfig
	lg       *log.Logger
	metrics  *metrics.Metrics
}

type Config struct {
	TickHz float64
	// InputTTL is how long a control input is held without a refresh
	// before the controls are treated as released.
	InputTTL time.Duration
	Session  SessionConfig

	Logger  *log.Logger
	Metrics *metrics.Metrics
}

func New(cfg Config) *Engine {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 30
	}
	if cfg.InputTTL <= 0 {
		cfg.InputTTL = 500 * time.Millisecond
	}
	return &Engine{
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq, 32),
		trackReqCh:  make(chan trackReq, 8),
		subscribeCh: make(chan subscribeReq, 32),
		unsubCh:     make(chan chan Snapshot, 32),
		done:        make(chan struct{}),
		tickHz:      cfg.TickHz,
		inputTTL:    cfg.InputTTL,
		session:     cfg.Session,
		lg:          cfg.Logger.With("component", "engine"),
		metrics:     cfg.Metrics,
	}
}

// Submit queues cmd without blocking.
func (e *Engine) Submit(cmd Command) error {
	select {
	case e.cmdCh <- cmd:
		return nil
	default:
		e.metrics.CommandDropped()
		e.lg.Warn("command dropped", "type", string(cmd.Type()))
		return ErrQueueFull
	}
}

// Takeoff submits cmd and waits for the engine to act on it, returning
// flight.ErrNoAircraftSelected if cmd names no aircraft.
func (e *Engine) Takeoff(ctx context.Context, cmd TakeoffCommand) error {
	cmd.reply = make(chan error, 1)
	if cmd.At.IsZero() {
		cmd.At = time.Now()
	}
	if err := e.Submit(cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) GetState(ctx context.Context) (Snapshot, error) {
	req := stateReq{reply: make(chan Snapshot, 1)}
	select {
	case e.stateReqCh <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// GetTrack returns a copy of the current flight's track.
func (e *Engine) GetTrack(ctx context.Context) (track.Track, error) {
	req := trackReq{reply: make(chan track.Track, 1)}
	select {
	case e.trackReqCh <- req:
	case <-ctx.Done():
		return track.Track{}, ctx.Err()
	}

	select {
	case t := <-req.reply:
		return t, nil
	case <-ctx.Done():
		return track.Track{}, ctx.Err()
	}
}

// Subscribe returns a channel receiving a snapshot every tick. Slow
// subscribers miss snapshots rather than stall the engine. The channel is
// closed by the returned function or when the engine stops. The returned
// function blocks until the engine takes the request or stops.
func (e *Engine) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			select {
			case e.unsubCh <- ch:
			case <-e.done:
			}
		})
	}
	return ch, unsub
}

// Run owns the session until ctx is done. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	// Actor-owned state
	now := time.Now()
	sess := NewSession(e.session, e.lg, camera.ListenerFunc(func(v camera.View) {
		e.lg.Info("view changed", "view", v.String())
	}))

	var input flight.ControlInput
	var inputAt time.Time
	transitions := 0

	subs := map[chan Snapshot]struct{}{}

	publish := func(st Snapshot) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	handle := func(cmd Command) {
		switch c := cmd.(type) {
		case TakeoffCommand:
			at := c.At
			if at.IsZero() {
				at = now
			}
			err := sess.Takeoff(c.Aircraft, c.From, c.To, at)
			if err != nil {
				e.lg.Warn("takeoff rejected", "error", err)
			} else {
				e.metrics.Takeoff(c.Aircraft.String())
				input, inputAt = flight.ControlInput{}, time.Time{}
			}
			if c.reply != nil {
				c.reply <- err
			}

		case ControlCommand:
			input, inputAt = c.Input.Clamped(), c.At
			if inputAt.IsZero() {
				inputAt = time.Now()
			}

		case SetViewCommand:
			sess.SetView(c.View, c.Animate)

		case NextViewCommand:
			sess.NextView()

		case LightingCommand:
			sess.SetIlluminationMode(c.Mode)
			e.lg.Info("lighting mode", "mode", c.Mode.String())

		case LandCommand:
			sess.Land()
		}
	}

	tick := time.NewTicker(time.Duration(float64(time.Second) / e.tickHz))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			e.metrics.SetSubscribers(0)
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			e.metrics.SetSubscribers(len(subs))
			req.ch <- sess.Snapshot(now)

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
				e.metrics.SetSubscribers(len(subs))
			}

		case req := <-e.stateReqCh:
			req.reply <- sess.Snapshot(now)

		case req := <-e.trackReqCh:
			req.reply <- sess.Track()

		case cmd := <-e.cmdCh:
			handle(cmd)

		case t := <-tick.C:
			dt := t.Sub(now).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.tickHz
			}
			now = t

			// Sample the input once per tick; a stale input means the
			// client stopped sending and the controls are released.
			in := input
			if inputAt.IsZero() || now.Sub(inputAt) > e.inputTTL {
				in = flight.ControlInput{}
			}

			start := time.Now()
			st := sess.Tick(in, dt, now)
			e.metrics.ObserveTick(time.Since(start))
			e.metrics.SetFlightActive(st.Active)
			if st.Active {
				e.metrics.EnvWarning(st.Warning)
			}
			for ; transitions < st.ViewTransitions; transitions++ {
				e.metrics.ViewTransition()
			}

			publish(st)
		}
	}
}
