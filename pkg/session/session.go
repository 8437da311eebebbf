// Package session owns the single shared connection to the robot SDK.
//
// Every SDK call flows through the Manager's critical section: the SDK is
// not safe for concurrent invocation, so at most one call is in flight at
// any time. Robot state (posture, stiffness) is mutated only here, and only
// after the underlying call succeeds.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davesnowdon/go-nao-bridge/internal/log"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
)

// ErrRobotUnavailable is returned when the robot is disconnected or becomes
// unreachable mid-command. The manager does not auto-reconnect; callers fail
// fast until a new Connect succeeds.
var ErrRobotUnavailable = errors.New("robot unavailable")

// DialFunc establishes a new SDK connection.
type DialFunc func(ctx context.Context) (nao.Conn, error)

// Status is a snapshot of the session's view of the robot.
type Status struct {
	Connected    bool        `json:"connected"`
	Stiff        bool        `json:"stiffness_enabled"`
	Posture      nao.Posture `json:"posture"`
	RobotAddr    string      `json:"robot_addr"`
	BatteryLevel int         `json:"battery_level"`
	Awake        bool        `json:"awake"`
	LifeState    string      `json:"autonomous_life_state"`
}

// Effect is one command-shaped unit of work against the SDK. On success the
// manager applies the declared state transitions.
type Effect struct {
	// Name identifies the effect in logs.
	Name string

	// Do performs the SDK call. It runs inside the exclusive section.
	Do func(ctx context.Context, conn nao.Conn) error

	// Posture, when non-empty, is recorded as the current posture on success.
	Posture nao.Posture

	// Stiffness, when non-nil, is recorded as the stiffness flag on success.
	Stiffness *bool
}

// Manager serializes all access to the robot SDK connection.
// Exactly one Manager exists per running bridge.
type Manager struct {
	addr string
	dial DialFunc

	// mu guards the SDK connection itself. Held for the full duration of
	// every SDK call so no two calls overlap.
	mu   sync.Mutex
	conn nao.Conn

	// stateMu guards the cached robot state for cheap reads.
	stateMu   sync.RWMutex
	connected bool
	stiff     bool
	posture   nao.Posture
	battery   int
	awake     bool
	lifeState string
}

// NewManager creates a session manager for the robot at addr. No connection
// is made until Connect.
func NewManager(addr string, dial DialFunc) *Manager {
	return &Manager{
		addr:    addr,
		dial:    dial,
		posture: nao.PostureUnknown,
	}
}

// Connect establishes the SDK connection, replacing any previous one.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	conn, err := m.dial(ctx)
	if err != nil {
		m.setConnected(false)
		return fmt.Errorf("connect to robot %s: %w", m.addr, err)
	}
	m.conn = conn
	m.setConnected(true)
	log.Info("robot connected", "addr", m.addr)

	// Seed cached state so /status is meaningful before the first command.
	if state, err := conn.State(ctx); err == nil {
		m.applyState(state)
	}
	return nil
}

// Close tears down the SDK connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setConnected(false)
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// Execute runs one effect against the robot. Only one SDK call is in flight
// at any time; concurrent callers queue on the internal lock. Declared state
// transitions are applied only when the call succeeds.
func (m *Manager) Execute(ctx context.Context, e Effect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || !m.Connected() {
		return fmt.Errorf("%s: %w", e.Name, ErrRobotUnavailable)
	}

	start := time.Now()
	err := e.Do(ctx, m.conn)
	if err != nil {
		var connErr *nao.ConnError
		if errors.As(err, &connErr) {
			// Lost the robot mid-command. Mark the session dead so
			// subsequent calls fail fast until the next Connect.
			m.setConnected(false)
			log.Error("robot connection lost", "effect", e.Name, "err", err)
			return fmt.Errorf("%s: %w", e.Name, ErrRobotUnavailable)
		}
		return fmt.Errorf("%s: %w", e.Name, err)
	}

	m.stateMu.Lock()
	if e.Posture != "" {
		m.posture = e.Posture
	}
	if e.Stiffness != nil {
		m.stiff = *e.Stiffness
	}
	m.stateMu.Unlock()

	log.Debug("effect executed", "effect", e.Name, "took", time.Since(start))
	return nil
}

// Query runs a read-only SDK call. It shares the exclusive section with
// Execute since the SDK tolerates no concurrent use at all.
func (m *Manager) Query(ctx context.Context, name string, fn func(ctx context.Context, conn nao.Conn) error) error {
	return m.Execute(ctx, Effect{Name: name, Do: fn})
}

// RefreshState pulls a fresh robot-side state snapshot into the cache.
func (m *Manager) RefreshState(ctx context.Context) error {
	return m.Query(ctx, "refresh state", func(ctx context.Context, conn nao.Conn) error {
		state, err := conn.State(ctx)
		if err != nil {
			return err
		}
		m.applyState(state)
		return nil
	})
}

// Status returns the cached session status.
func (m *Manager) Status() Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return Status{
		Connected:    m.connected,
		Stiff:        m.stiff,
		Posture:      m.posture,
		RobotAddr:    m.addr,
		BatteryLevel: m.battery,
		Awake:        m.awake,
		LifeState:    m.lifeState,
	}
}

// Connected reports whether the session believes the robot is reachable.
func (m *Manager) Connected() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.connected
}

func (m *Manager) setConnected(connected bool) {
	m.stateMu.Lock()
	m.connected = connected
	m.stateMu.Unlock()
}

func (m *Manager) applyState(state nao.State) {
	m.stateMu.Lock()
	m.battery = state.BatteryLevel
	m.awake = state.Awake
	m.lifeState = state.LifeState
	if state.Posture != "" {
		m.posture = state.Posture
	}
	m.stateMu.Unlock()
}
