package lifecycle

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"sessionclock-backend/internal/metrics"
	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/policy"
)

var (
	ErrViewStopped    = errors.New("lifecycle: view stopped")
	ErrTimerNotInView = errors.New("lifecycle: timer not in view")
)

// TimerSource loads the working set for an actor.
type TimerSource interface {
	ListTimersForActor(ctx context.Context, actorID uuid.UUID, isSuperuser bool) ([]models.Timer, error)
}

// TimerWriter persists a transition without blocking the caller.
type TimerWriter interface {
	WriteTimer(t models.Timer)
}

type Options struct {
	TickInterval   time.Duration
	FocusInterval  time.Duration
	ReloadInterval time.Duration
	Location       *time.Location
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.FocusInterval <= 0 {
		o.FocusInterval = 100 * time.Millisecond
	}
	if o.ReloadInterval <= 0 {
		o.ReloadInterval = 30 * time.Second
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type reloadResult struct {
	seq    uint64
	timers []models.Timer
	err    error
}

type reloadWaiter struct {
	seq uint64
	ch  chan error
}

// View runs the lifecycle for one session. A single goroutine owns the
// engine: it runs the collection tick, the periodic reload, the focused
// timer refresh and every caller action, one at a time. Storage reads happen
// on separate goroutines and hand their result back to the loop; the most
// recently issued reload that succeeds wins.
type View struct {
	sessionID uuid.UUID
	source    TimerSource
	writer    TimerWriter
	opts      Options

	actions  chan func()
	reloads  chan reloadResult
	stopChan chan struct{}
	done     chan struct{}
	ready    chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool
	readers  sync.WaitGroup

	// Everything below is touched only by the loop goroutine.
	engine        *Engine
	actor         models.Profile
	focus         uuid.UUID
	focusTicker   *time.Ticker
	loadedAt      time.Time
	lastErr       error
	issued        uint64
	applied       uint64
	readyClosed   bool
	waiters       []reloadWaiter
	reloadCtx     context.Context
	cancelReloads context.CancelFunc
}

func NewView(sessionID uuid.UUID, actor models.Profile, source TimerSource, writer TimerWriter, opts Options) *View {
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		sessionID:     sessionID,
		source:        source,
		writer:        writer,
		opts:          opts.withDefaults(),
		actions:       make(chan func()),
		reloads:       make(chan reloadResult),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		ready:         make(chan struct{}),
		engine:        NewEngine(),
		actor:         actor,
		reloadCtx:     ctx,
		cancelReloads: cancel,
	}
}

// Start launches the loop and the initial reload. Calling it twice is a no-op.
func (v *View) Start() {
	v.startMu.Lock()
	defer v.startMu.Unlock()
	if v.started {
		return
	}
	v.started = true
	go v.run()
}

// Stop tears the loop down, releases its tickers and waits for in-flight
// reads to return.
func (v *View) Stop() {
	v.stopOnce.Do(func() {
		close(v.stopChan)
	})

	v.startMu.Lock()
	started := v.started
	v.startMu.Unlock()
	if started {
		<-v.done
	} else {
		v.cancelReloads()
	}
	v.readers.Wait()
}

// Ready is closed once the first reload has finished, successfully or not.
func (v *View) Ready() <-chan struct{} {
	return v.ready
}

func (v *View) SessionID() uuid.UUID {
	return v.sessionID
}

func (v *View) run() {
	defer close(v.done)

	tick := time.NewTicker(v.opts.TickInterval)
	defer tick.Stop()
	reload := time.NewTicker(v.opts.ReloadInterval)
	defer reload.Stop()

	v.startReload()

	for {
		var focusC <-chan time.Time
		if v.focusTicker != nil {
			focusC = v.focusTicker.C
		}

		select {
		case <-v.stopChan:
			v.teardown()
			return
		case fn := <-v.actions:
			fn()
		case res := <-v.reloads:
			v.applyReload(res)
		case <-tick.C:
			v.tick()
		case <-reload.C:
			v.startReload()
		case <-focusC:
			v.refreshFocus()
		}
	}
}

func (v *View) teardown() {
	v.cancelReloads()
	v.stopFocus()
	for _, w := range v.waiters {
		w.ch <- ErrViewStopped
	}
	v.waiters = nil
}

func (v *View) tick() {
	res := v.engine.Tick(v.opts.Now().UnixMilli())
	metrics.Ticks.Inc()
	v.persist(res)
}

func (v *View) persist(res TickResult) {
	for _, t := range res.Activated {
		metrics.Activations.Inc()
		v.writer.WriteTimer(t)
	}
	for _, t := range res.Completed {
		metrics.Completions.Inc()
		v.writer.WriteTimer(t)
	}
}

func (v *View) startReload() uint64 {
	v.issued++
	seq := v.issued
	actor := v.actor
	ctx := v.reloadCtx

	v.readers.Add(1)
	go func() {
		defer v.readers.Done()
		timers, err := v.source.ListTimersForActor(ctx, actor.ID, policy.SeesAllTimers(actor.Role, actor.Status))
		select {
		case v.reloads <- reloadResult{seq: seq, timers: timers, err: err}:
		case <-v.stopChan:
		}
	}()

	return seq
}

func (v *View) applyReload(res reloadResult) {
	var waitErr error

	switch {
	case res.seq <= v.applied:
		// Superseded by a newer reload that already landed.
	case res.err != nil:
		waitErr = res.err
		metrics.ReloadFailures.Inc()
		if res.seq == v.issued {
			v.lastErr = res.err
		}
		log.Printf("lifecycle: reload for session %s failed: %v", v.sessionID, res.err)
	default:
		v.applied = res.seq
		v.engine.Replace(res.timers, v.opts.Now().UnixMilli())
		v.loadedAt = v.opts.Now()
		v.lastErr = nil
		if v.focus != uuid.Nil {
			if _, ok := v.engine.Find(v.focus); !ok {
				v.stopFocus()
			}
		}
	}

	landed := res.err == nil && res.seq == v.applied
	remaining := v.waiters[:0]
	for _, w := range v.waiters {
		switch {
		case w.seq == res.seq:
			w.ch <- waitErr
		case landed && w.seq < res.seq:
			w.ch <- nil
		default:
			remaining = append(remaining, w)
		}
	}
	v.waiters = remaining

	if !v.readyClosed {
		v.readyClosed = true
		close(v.ready)
	}
}

func (v *View) refreshFocus() {
	if v.focus == uuid.Nil {
		v.stopFocus()
		return
	}
	if _, ok := v.engine.Find(v.focus); !ok {
		v.stopFocus()
		return
	}
	if t, ok := v.engine.Complete(v.focus, v.opts.Now().UnixMilli()); ok {
		v.persist(TickResult{Completed: []models.Timer{t}})
	}
}

func (v *View) startFocus(id uuid.UUID) {
	v.focus = id
	if v.focusTicker == nil {
		v.focusTicker = time.NewTicker(v.opts.FocusInterval)
	}
}

func (v *View) stopFocus() {
	v.focus = uuid.Nil
	if v.focusTicker != nil {
		v.focusTicker.Stop()
		v.focusTicker = nil
	}
}

// do runs fn on the loop and waits for it to finish.
func (v *View) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case v.actions <- wrapped:
	case <-v.stopChan:
		return ErrViewStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted, fn runs promptly on the loop.
	<-finished
	return nil
}

// Board renders the current working set.
func (v *View) Board(ctx context.Context, activeOnly bool) (Board, error) {
	var b Board
	err := v.do(ctx, func() {
		now := v.opts.Now()
		b = BuildBoard(v.engine, now, v.opts.Location, activeOnly)
		if v.focus != uuid.Nil {
			if t, ok := v.engine.Find(v.focus); ok {
				c := CountdownAt(t, now.UnixMilli())
				b.Focus = &c
			}
		}
		if !v.loadedAt.IsZero() {
			loadedAt := v.loadedAt
			b.LoadedAt = &loadedAt
		}
		if v.lastErr != nil {
			b.LastError = "Failed to load timers"
		}
	})
	return b, err
}

// Timers returns the sorted working set with the completed and flashing ids.
func (v *View) Timers(ctx context.Context) (timers []models.Timer, completed, flashing []uuid.UUID, err error) {
	err = v.do(ctx, func() {
		timers = v.engine.Timers()
		completed = v.engine.CompletedIDs()
		flashing = v.engine.FlashingIDs()
	})
	return timers, completed, flashing, err
}

// Reload fetches the working set again and waits until it has been applied
// or superseded by a newer reload.
func (v *View) Reload(ctx context.Context) error {
	ch := make(chan error, 1)
	if err := v.do(ctx, func() {
		seq := v.startReload()
		v.waiters = append(v.waiters, reloadWaiter{seq: seq, ch: ch})
	}); err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remove drops a timer from the working set. It reports whether the timer
// was present; an absent id is not an error.
func (v *View) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	var removed bool
	err := v.do(ctx, func() {
		removed = v.engine.Remove(id)
		if v.focus == id {
			v.stopFocus()
		}
	})
	return removed, err
}

// Upsert applies a timer returned by a workflow operation without waiting
// for the next reload. Timers the actor cannot see are ignored.
func (v *View) Upsert(ctx context.Context, t models.Timer) error {
	return v.do(ctx, func() {
		if t.UserID != v.actor.ID && !policy.SeesAllTimers(v.actor.Role, v.actor.Status) {
			return
		}
		v.engine.Upsert(t, v.opts.Now().UnixMilli())
	})
}

// Complete finishes a timer whose time has run out. ok is false when the
// timer is not finished or was already completed.
func (v *View) Complete(ctx context.Context, id uuid.UUID) (timer models.Timer, ok bool, err error) {
	doErr := v.do(ctx, func() {
		if _, found := v.engine.Find(id); !found {
			err = ErrTimerNotInView
			return
		}
		timer, ok = v.engine.Complete(id, v.opts.Now().UnixMilli())
		if ok {
			v.persist(TickResult{Completed: []models.Timer{timer}})
		} else {
			timer, _ = v.engine.Find(id)
		}
	})
	if doErr != nil {
		return models.Timer{}, false, doErr
	}
	return timer, ok, err
}

// Focus starts the fine-grained refresh for one timer, replacing any
// previous focus.
func (v *View) Focus(ctx context.Context, id uuid.UUID) (c Countdown, err error) {
	doErr := v.do(ctx, func() {
		t, ok := v.engine.Find(id)
		if !ok {
			err = ErrTimerNotInView
			return
		}
		v.startFocus(id)
		c = CountdownAt(t, v.opts.Now().UnixMilli())
	})
	if doErr != nil {
		return Countdown{}, doErr
	}
	return c, err
}

func (v *View) Unfocus(ctx context.Context) error {
	return v.do(ctx, v.stopFocus)
}

func (v *View) Countdown(ctx context.Context, id uuid.UUID) (c Countdown, err error) {
	doErr := v.do(ctx, func() {
		t, ok := v.engine.Find(id)
		if !ok {
			err = ErrTimerNotInView
			return
		}
		c = CountdownAt(t, v.opts.Now().UnixMilli())
	})
	if doErr != nil {
		return Countdown{}, doErr
	}
	return c, err
}

// SetActor swaps the profile the view loads for and triggers a reload.
func (v *View) SetActor(ctx context.Context, actor models.Profile) error {
	return v.do(ctx, func() {
		v.actor = actor
		v.startReload()
	})
}

func (v *View) Actor(ctx context.Context) (models.Profile, error) {
	var actor models.Profile
	err := v.do(ctx, func() {
		actor = v.actor
	})
	return actor, err
}
