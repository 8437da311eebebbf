// Package naotest provides a fake robot connection for tests.
package naotest

import (
	"context"
	"sync"
	"time"

	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
)

// FakeConn implements nao.Conn in memory. It records every call in order and
// detects overlapping calls, which the real SDK does not tolerate.
type FakeConn struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error

	inFlight   int
	overlapped bool

	// Delay is inserted into every call. Use it to widen the window in
	// which overlapping calls would be observed.
	Delay time.Duration

	// OnCall, when set, runs at the start of every call.
	OnCall func(name string)

	StateValue      nao.State
	SonarValue      nao.SonarReading
	AnglesValue     map[string]float64
	NamesValue      []string
	BehavioursValue []string

	closed bool
}

var _ nao.Conn = (*FakeConn)(nil)

// FailWith makes the named method return err. Pass "*" to fail every method.
func (f *FakeConn) FailWith(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	f.errs[name] = err
}

// Reset clears the recorded calls. Connecting a session performs a State
// handshake; call Reset afterwards when a test asserts on calls made by the
// commands under test alone.
func (f *FakeConn) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Calls returns the method names invoked so far, in order.
func (f *FakeConn) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times the named method was invoked.
func (f *FakeConn) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Overlapped reports whether two calls were ever in flight at once.
func (f *FakeConn) Overlapped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapped
}

// Closed reports whether Close was called.
func (f *FakeConn) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeConn) enter(name string) (error, func()) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.inFlight++
	if f.inFlight > 1 {
		f.overlapped = true
	}
	err := f.errs[name]
	if err == nil {
		err = f.errs["*"]
	}
	hook := f.OnCall
	delay := f.Delay
	f.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return err, func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *FakeConn) call(name string) error {
	err, done := f.enter(name)
	defer done()
	return err
}

func (f *FakeConn) Stand(ctx context.Context, variant string, speed float64) error {
	return f.call("Stand")
}

func (f *FakeConn) Sit(ctx context.Context, variant string, speed float64) error {
	return f.call("Sit")
}

func (f *FakeConn) Crouch(ctx context.Context, speed float64) error {
	return f.call("Crouch")
}

func (f *FakeConn) Lie(ctx context.Context, position string, speed float64) error {
	return f.call("Lie")
}

func (f *FakeConn) SetStiffness(ctx context.Context, enabled bool) error {
	return f.call("SetStiffness")
}

func (f *FakeConn) Wake(ctx context.Context) error { return f.call("Wake") }

func (f *FakeConn) Rest(ctx context.Context) error { return f.call("Rest") }

func (f *FakeConn) SetLifeState(ctx context.Context, state string) error {
	return f.call("SetLifeState")
}

func (f *FakeConn) Say(ctx context.Context, text string, blocking, animated bool) error {
	return f.call("Say")
}

func (f *FakeConn) SetLEDs(ctx context.Context, colors map[nao.LEDGroup]nao.Color) error {
	return f.call("SetLEDs")
}

func (f *FakeConn) LEDsOff(ctx context.Context) error { return f.call("LEDsOff") }

func (f *FakeConn) MoveHead(ctx context.Context, yawDeg, pitchDeg float64) error {
	return f.call("MoveHead")
}

func (f *FakeConn) MoveArms(ctx context.Context, position nao.ArmPosition, arms nao.ArmSelection, shoulderPitchOffset, shoulderRollOffset float64) error {
	return f.call("MoveArms")
}

func (f *FakeConn) MoveHands(ctx context.Context, left, right nao.HandAction) error {
	return f.call("MoveHands")
}

func (f *FakeConn) Walk(ctx context.Context, v nao.WalkVector) error {
	return f.call("Walk")
}

func (f *FakeConn) StopWalking(ctx context.Context) error { return f.call("StopWalking") }

func (f *FakeConn) Sonar(ctx context.Context) (nao.SonarReading, error) {
	err, done := f.enter("Sonar")
	defer done()
	return f.SonarValue, err
}

func (f *FakeConn) JointAngles(ctx context.Context, chain nao.Chain) (map[string]float64, error) {
	err, done := f.enter("JointAngles")
	defer done()
	return f.AnglesValue, err
}

func (f *FakeConn) JointNames(ctx context.Context, chain nao.Chain) ([]string, error) {
	err, done := f.enter("JointNames")
	defer done()
	return f.NamesValue, err
}

func (f *FakeConn) State(ctx context.Context) (nao.State, error) {
	err, done := f.enter("State")
	defer done()
	return f.StateValue, err
}

func (f *FakeConn) RunBehaviour(ctx context.Context, name string) error {
	return f.call("RunBehaviour")
}

func (f *FakeConn) Behaviours(ctx context.Context, kind string) ([]string, error) {
	err, done := f.enter("Behaviours")
	defer done()
	return f.BehavioursValue, err
}

func (f *FakeConn) SetDefaultBehaviour(ctx context.Context, name string, isDefault bool) error {
	return f.call("SetDefaultBehaviour")
}

func (f *FakeConn) SetMoveDuration(ctx context.Context, d time.Duration) error {
	return f.call("SetMoveDuration")
}

func (f *FakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
