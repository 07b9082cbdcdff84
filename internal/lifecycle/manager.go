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
)

var ErrManagerClosed = errors.New("lifecycle: manager closed")

type mounted struct {
	view     *View
	userID   uuid.UUID
	lastUsed time.Time
}

// Manager keeps one View per signed-in session. Views are mounted on first
// use and unmounted on sign-out, after sitting idle, or on Close.
type Manager struct {
	source      TimerSource
	writer      TimerWriter
	opts        Options
	idleTimeout time.Duration
	clock       func() time.Time

	mu       sync.Mutex
	views    map[uuid.UUID]*mounted
	closed   bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewManager(source TimerSource, writer TimerWriter, opts Options, idleTimeout time.Duration) *Manager {
	return &Manager{
		source:      source,
		writer:      writer,
		opts:        opts,
		idleTimeout: idleTimeout,
		clock:       time.Now,
		views:       make(map[uuid.UUID]*mounted),
		stopChan:    make(chan struct{}),
	}
}

// Start runs the idle janitor. Without an idle timeout views stay mounted
// until sign-out or Close.
func (m *Manager) Start() {
	if m.idleTimeout <= 0 {
		return
	}

	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				if n := m.sweepIdle(m.clock()); n > 0 {
					log.Printf("lifecycle: unmounted %d idle views, %d still mounted", n, m.Len())
				}
			}
		}
	}()
}

// Mount returns the session's view, creating and starting it on first use.
func (m *Manager) Mount(sessionID uuid.UUID, actor models.Profile) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	if entry, ok := m.views[sessionID]; ok {
		entry.lastUsed = m.clock()
		return entry.view, nil
	}

	view := NewView(sessionID, actor, m.source, m.writer, m.opts)
	view.Start()
	m.views[sessionID] = &mounted{view: view, userID: actor.ID, lastUsed: m.clock()}
	metrics.MountedViews.Inc()

	return view, nil
}

// Lookup returns a mounted view without creating one.
func (m *Manager) Lookup(sessionID uuid.UUID) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.views[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = m.clock()
	return entry.view, true
}

// Unmount stops and forgets the session's view. It reports whether one was
// mounted.
func (m *Manager) Unmount(sessionID uuid.UUID) bool {
	m.mu.Lock()
	entry, ok := m.views[sessionID]
	if ok {
		delete(m.views, sessionID)
		metrics.MountedViews.Dec()
	}
	m.mu.Unlock()

	if ok {
		entry.view.Stop()
	}
	return ok
}

// UpdateActor pushes a changed profile into every view mounted for that
// user. Each affected view reloads with the new role.
func (m *Manager) UpdateActor(ctx context.Context, actor models.Profile) error {
	m.mu.Lock()
	var views []*View
	for _, entry := range m.views {
		if entry.userID == actor.ID {
			views = append(views, entry.view)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, view := range views {
		if err := view.SetActor(ctx, actor); err != nil && !errors.Is(err, ErrViewStopped) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

func (m *Manager) sweepIdle(now time.Time) int {
	m.mu.Lock()
	var idle []*View
	for id, entry := range m.views {
		if now.Sub(entry.lastUsed) >= m.idleTimeout {
			idle = append(idle, entry.view)
			delete(m.views, id)
			metrics.MountedViews.Dec()
		}
	}
	m.mu.Unlock()

	for _, view := range idle {
		view.Stop()
	}
	return len(idle)
}

// Close stops the janitor and every mounted view. Mount fails afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.stopChan)
	views := m.views
	m.views = make(map[uuid.UUID]*mounted)
	m.mu.Unlock()

	m.wg.Wait()
	for _, entry := range views {
		entry.view.Stop()
		metrics.MountedViews.Dec()
	}
}
