package service

import (
	"sync"
	"time"
)

// Monitor runs the liveness contract per socket: a ping every interval, and a
// timeout timer that force-disconnects when no heartbeat arrives in the
// window. A heartbeat replaces the current timer (stop, then reset) so timers
// never stack and a renewed heartbeat always supersedes the prior deadline.
type Monitor struct {
	mu       sync.Mutex
	interval time.Duration
	timeout  time.Duration
	watches  map[string]*watch
	onPing   func(socketID string)
	onExpire func(socketID string)
}

type watch struct {
	timer  *time.Timer
	ticker *time.Ticker
	done   chan struct{}
}

func NewMonitor(interval, timeout time.Duration, onPing, onExpire func(socketID string)) *Monitor {
	return &Monitor{
		interval: interval,
		timeout:  timeout,
		watches:  map[string]*watch{},
		onPing:   onPing,
		onExpire: onExpire,
	}
}

// Track starts watching a socket. Idempotent per socket.
func (m *Monitor) Track(socketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[socketID]; ok {
		return
	}
	w := &watch{
		timer: time.AfterFunc(m.timeout, func() { m.expire(socketID) }),
		done:  make(chan struct{}),
	}
	if m.interval > 0 && m.onPing != nil {
		w.ticker = time.NewTicker(m.interval)
		go m.pingLoop(socketID, w)
	}
	m.watches[socketID] = w
}

func (m *Monitor) pingLoop(socketID string, w *watch) {
	for {
		select {
		case <-w.ticker.C:
			m.onPing(socketID)
		case <-w.done:
			return
		}
	}
}

// Touch resets the timeout window after a heartbeat. Returns false when the
// socket is not tracked (already expired or never joined), which callers
// treat as a no-op.
func (m *Monitor) Touch(socketID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[socketID]
	if !ok {
		return false
	}
	w.timer.Stop()
	w.timer.Reset(m.timeout)
	return true
}

// Forget stops watching a socket. Safe to call for unknown sockets and after
// expiry.
func (m *Monitor) Forget(socketID string) {
	m.mu.Lock()
	w, ok := m.watches[socketID]
	if ok {
		delete(m.watches, socketID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	w.stop()
}

func (m *Monitor) Tracked(socketID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watches[socketID]
	return ok
}

// expire removes the watch before invoking the callback; whichever of expiry
// and Forget runs first wins, so the disconnect fires exactly once.
func (m *Monitor) expire(socketID string) {
	m.mu.Lock()
	w, ok := m.watches[socketID]
	if ok {
		delete(m.watches, socketID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	w.stop()
	if m.onExpire != nil {
		m.onExpire(socketID)
	}
}

// Shutdown clears every outstanding timer.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	watches := m.watches
	m.watches = map[string]*watch{}
	m.mu.Unlock()
	for _, w := range watches {
		w.stop()
	}
}

// stop is called at most once per watch: expire, Forget and Shutdown all
// remove the watch from the map under the lock before stopping it.
func (w *watch) stop() {
	w.timer.Stop()
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.done)
}
