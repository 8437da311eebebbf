package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davesnowdon/go-nao-bridge/internal/log"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

// DefaultWalkDuration bounds a walk command that does not specify one.
const DefaultWalkDuration = 3 * time.Second

// Dispatcher routes validated commands to the session manager, registering
// long-running ones with the operation tracker.
type Dispatcher struct {
	session *session.Manager
	tracker *operation.Tracker

	mu           sync.Mutex
	moveDuration time.Duration
}

// NewDispatcher creates a dispatcher. moveDuration is the robot's global
// duration for timed movements.
func NewDispatcher(sess *session.Manager, tracker *operation.Tracker, moveDuration time.Duration) *Dispatcher {
	return &Dispatcher{
		session:      sess,
		tracker:      tracker,
		moveDuration: moveDuration,
	}
}

// ---- synchronous commands ----

// Stand executes a stand command.
func (d *Dispatcher) Stand(ctx context.Context, cmd Stand) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, standEffect(cmd))
}

// Sit executes a sit command.
func (d *Dispatcher) Sit(ctx context.Context, cmd Sit) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, sitEffect(cmd))
}

// Crouch executes a crouch command.
func (d *Dispatcher) Crouch(ctx context.Context, cmd Crouch) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, crouchEffect(cmd))
}

// Lie executes a lie command.
func (d *Dispatcher) Lie(ctx context.Context, cmd Lie) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, lieEffect(cmd))
}

// SetStiffness engages or releases joint motors.
func (d *Dispatcher) SetStiffness(ctx context.Context, cmd Stiffness) error {
	enabled := cmd.Enabled
	name := "relax"
	if enabled {
		name = "stiff"
	}
	return d.session.Execute(ctx, session.Effect{
		Name:      name,
		Stiffness: &enabled,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetStiffness(ctx, enabled)
		},
	})
}

// Wake wakes the robot. Waking engages stiffness.
func (d *Dispatcher) Wake(ctx context.Context) error {
	stiff := true
	return d.session.Execute(ctx, session.Effect{
		Name:      "wake",
		Stiffness: &stiff,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Wake(ctx)
		},
	})
}

// Rest puts the robot in rest mode. Resting releases stiffness.
func (d *Dispatcher) Rest(ctx context.Context) error {
	stiff := false
	return d.session.Execute(ctx, session.Effect{
		Name:      "rest",
		Stiffness: &stiff,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Rest(ctx)
		},
	})
}

// SetLifeState sets the autonomous life state.
func (d *Dispatcher) SetLifeState(ctx context.Context, cmd LifeState) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, session.Effect{
		Name: "set life state",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetLifeState(ctx, cmd.State)
		},
	})
}

// Say executes a speech command synchronously.
func (d *Dispatcher) Say(ctx context.Context, cmd Say) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, sayEffect(cmd))
}

// SetLEDs sets LED cluster colors.
func (d *Dispatcher) SetLEDs(ctx context.Context, cmd SetLEDs) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, ledsEffect(cmd))
}

// LEDsOff turns all LEDs off.
func (d *Dispatcher) LEDsOff(ctx context.Context) error {
	return d.session.Execute(ctx, ledsOffEffect())
}

// MoveHead positions the head.
func (d *Dispatcher) MoveHead(ctx context.Context, cmd MoveHead) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, headEffect(cmd))
}

// MoveArms applies an arm preset.
func (d *Dispatcher) MoveArms(ctx context.Context, cmd MoveArms) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, armsEffect(cmd))
}

// MoveHands opens or closes the hands.
func (d *Dispatcher) MoveHands(ctx context.Context, cmd MoveHands) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	return d.session.Execute(ctx, handsEffect(cmd))
}

// StopWalking halts the current walking motion. Stopping is its own
// command, not a cancellation of a prior walk operation.
func (d *Dispatcher) StopWalking(ctx context.Context) error {
	return d.session.Execute(ctx, walkStopEffect())
}

// Sonar reads both sonar sensors.
func (d *Dispatcher) Sonar(ctx context.Context) (nao.SonarReading, error) {
	var reading nao.SonarReading
	err := d.session.Query(ctx, "read sonar", func(ctx context.Context, conn nao.Conn) error {
		var err error
		reading, err = conn.Sonar(ctx)
		return err
	})
	return reading, err
}

// JointAngles returns the current joint angles for a chain.
func (d *Dispatcher) JointAngles(ctx context.Context, chain string) (map[string]float64, error) {
	if !nao.Chain(chain).Valid() {
		return nil, invalidf("invalid chain %q", chain)
	}
	var angles map[string]float64
	err := d.session.Query(ctx, "joint angles", func(ctx context.Context, conn nao.Conn) error {
		var err error
		angles, err = conn.JointAngles(ctx, nao.Chain(chain))
		return err
	})
	return angles, err
}

// JointNames returns the joint names for a chain.
func (d *Dispatcher) JointNames(ctx context.Context, chain string) ([]string, error) {
	if !nao.Chain(chain).Valid() {
		return nil, invalidf("invalid chain %q", chain)
	}
	var names []string
	err := d.session.Query(ctx, "joint names", func(ctx context.Context, conn nao.Conn) error {
		var err error
		names, err = conn.JointNames(ctx, nao.Chain(chain))
		return err
	})
	return names, err
}

// Behaviours lists behaviors of the given kind.
func (d *Dispatcher) Behaviours(ctx context.Context, kind string) ([]string, error) {
	switch kind {
	case "installed", "default", "running":
	default:
		return nil, invalidf("invalid behaviour type %q", kind)
	}
	var names []string
	err := d.session.Query(ctx, "list behaviours", func(ctx context.Context, conn nao.Conn) error {
		var err error
		names, err = conn.Behaviours(ctx, kind)
		return err
	})
	return names, err
}

// SetDefaultBehaviour marks a behavior as default.
func (d *Dispatcher) SetDefaultBehaviour(ctx context.Context, name string, isDefault bool) error {
	if name == "" {
		return invalidf("behaviour name is required")
	}
	return d.session.Execute(ctx, session.Effect{
		Name: "set default behaviour",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetDefaultBehaviour(ctx, name, isDefault)
		},
	})
}

// SetMoveDuration sets the robot's global movement duration.
func (d *Dispatcher) SetMoveDuration(ctx context.Context, cmd SetDuration) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	err := d.session.Execute(ctx, session.Effect{
		Name: "set move duration",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetMoveDuration(ctx, cmd.Duration)
		},
	})
	if err == nil {
		d.mu.Lock()
		d.moveDuration = cmd.Duration
		d.mu.Unlock()
	}
	return err
}

// MoveDuration returns the current global movement duration.
func (d *Dispatcher) MoveDuration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveDuration
}

// ---- asynchronous commands ----

// StartWalk registers a timed walk operation and returns its id. The walk
// runs in the background: start walking, hold the vector for the duration,
// stop. Disconnected sessions are rejected before an id is allocated.
func (d *Dispatcher) StartWalk(ctx context.Context, cmd Walk) (string, error) {
	if err := cmd.validate(); err != nil {
		return "", err
	}
	if !d.session.Connected() {
		return "", session.ErrRobotUnavailable
	}

	duration := cmd.Duration
	if duration == 0 {
		duration = DefaultWalkDuration
	}
	vector := nao.WalkVector{X: cmd.X, Y: cmd.Y, Theta: cmd.Theta, Speed: cmd.Speed}
	description := fmt.Sprintf("walk x=%g y=%g theta=%g for %s", cmd.X, cmd.Y, cmd.Theta, duration)

	id := d.tracker.Start(operation.KindWalk, description, func(ctx context.Context, progress func(string)) (any, error) {
		return d.walk(ctx, vector, duration, progress)
	})
	return id, nil
}

// RunWalkPreset registers a predefined walking pattern as an operation.
func (d *Dispatcher) RunWalkPreset(ctx context.Context, cmd WalkPreset) (string, error) {
	if err := cmd.validate(); err != nil {
		return "", err
	}
	if !d.session.Connected() {
		return "", session.ErrRobotUnavailable
	}

	vector := cmd.vector()
	description := fmt.Sprintf("walk preset %s for %s", cmd.Action, cmd.Duration)
	id := d.tracker.Start(operation.KindWalk, description, func(ctx context.Context, progress func(string)) (any, error) {
		return d.walk(ctx, vector, cmd.Duration, progress)
	})
	return id, nil
}

func (d *Dispatcher) walk(ctx context.Context, vector nao.WalkVector, duration time.Duration, progress func(string)) (any, error) {
	if err := d.session.Execute(ctx, walkStartEffect(vector)); err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("walking for %s", duration))

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	// Stop even when the tracker is shutting down: a walking robot must
	// not be left walking.
	stopCtx := context.WithoutCancel(ctx)
	if err := d.session.Execute(stopCtx, walkStopEffect()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"walked_for": duration.String()}, nil
}

// RunBehaviour runs an installed behavior. Blocking behaviors execute
// synchronously and return ("", nil) on success; non-blocking ones are
// registered as operations and return the operation id.
func (d *Dispatcher) RunBehaviour(ctx context.Context, cmd Behaviour) (string, error) {
	if err := cmd.validate(); err != nil {
		return "", err
	}

	effect := session.Effect{
		Name: "run behaviour",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.RunBehaviour(ctx, cmd.Name)
		},
	}

	if cmd.Blocking {
		return "", d.session.Execute(ctx, effect)
	}

	if !d.session.Connected() {
		return "", session.ErrRobotUnavailable
	}
	id := d.tracker.Start(operation.KindBehaviour, "behaviour "+cmd.Name, func(ctx context.Context, _ func(string)) (any, error) {
		if err := d.session.Execute(ctx, effect); err != nil {
			return nil, err
		}
		return map[string]any{"behaviour": cmd.Name}, nil
	})
	return id, nil
}

// RunAnimation registers a named animation as an operation.
func (d *Dispatcher) RunAnimation(ctx context.Context, cmd Animation) (string, error) {
	if err := cmd.validate(); err != nil {
		return "", err
	}
	if !d.session.Connected() {
		return "", session.ErrRobotUnavailable
	}

	anim := animations[cmd.Name]
	steps := anim.steps(cmd)
	multiplier := cmd.DurationMultiplier

	id := d.tracker.Start(operation.KindAnimation, "animation "+cmd.Name, func(ctx context.Context, progress func(string)) (any, error) {
		restore, err := d.scaleMoveDuration(ctx, multiplier)
		if err != nil {
			return nil, err
		}
		defer restore()

		results, err := d.runSequence(ctx, steps, true, progress)
		if err != nil {
			return results, err
		}
		return map[string]any{"animation": cmd.Name, "steps": len(results)}, nil
	})
	return id, nil
}

// RunSequence registers an ordered list of steps as an operation. When
// stopOnError is false, step failures are recorded and execution continues.
func (d *Dispatcher) RunSequence(ctx context.Context, cmd Sequence) (string, error) {
	if err := cmd.validate(); err != nil {
		return "", err
	}
	if !d.session.Connected() {
		return "", session.ErrRobotUnavailable
	}

	steps := cmd.Steps
	stopOnError := cmd.Blocking
	description := fmt.Sprintf("sequence of %d steps", len(steps))

	id := d.tracker.Start(operation.KindSequence, description, func(ctx context.Context, progress func(string)) (any, error) {
		results, err := d.runSequence(ctx, steps, stopOnError, progress)
		if err != nil {
			return results, err
		}
		return map[string]any{"executed_steps": results}, nil
	})
	return id, nil
}

// scaleMoveDuration temporarily scales the robot's global movement duration.
// The returned restore func resets it; it is a no-op for multiplier 0 or 1.
func (d *Dispatcher) scaleMoveDuration(ctx context.Context, multiplier float64) (func(), error) {
	if multiplier == 0 || multiplier == 1 {
		return func() {}, nil
	}

	base := d.MoveDuration()
	scaled := time.Duration(float64(base) * multiplier)
	err := d.session.Execute(ctx, session.Effect{
		Name: "scale move duration",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetMoveDuration(ctx, scaled)
		},
	})
	if err != nil {
		return nil, err
	}

	return func() {
		restoreCtx := context.WithoutCancel(ctx)
		err := d.session.Execute(restoreCtx, session.Effect{
			Name: "restore move duration",
			Do: func(ctx context.Context, conn nao.Conn) error {
				return conn.SetMoveDuration(ctx, base)
			},
		})
		if err != nil {
			log.Warn("failed to restore move duration", "err", err)
		}
	}, nil
}

func walkStartEffect(v nao.WalkVector) session.Effect {
	return session.Effect{
		Name: "walk",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Walk(ctx, v)
		},
	}
}

func walkStopEffect() session.Effect {
	return session.Effect{
		Name: "stop walking",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.StopWalking(ctx)
		},
	}
}
