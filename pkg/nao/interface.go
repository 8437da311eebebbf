package nao

import (
	"context"
	"time"
)

// PostureController moves the robot between whole-body postures.
type PostureController interface {
	Stand(ctx context.Context, variant string, speed float64) error
	Sit(ctx context.Context, variant string, speed float64) error
	Crouch(ctx context.Context, speed float64) error
	Lie(ctx context.Context, position string, speed float64) error
}

// StiffnessController engages and releases joint motors.
type StiffnessController interface {
	SetStiffness(ctx context.Context, enabled bool) error
	Wake(ctx context.Context) error
	Rest(ctx context.Context) error
	SetLifeState(ctx context.Context, state string) error
}

// SpeechController makes the robot talk.
type SpeechController interface {
	// Say speaks text. Animated adds contextual gestures. The call blocks
	// until speech completes when blocking is true.
	Say(ctx context.Context, text string, blocking, animated bool) error
}

// LEDController drives the LED clusters.
type LEDController interface {
	SetLEDs(ctx context.Context, colors map[LEDGroup]Color) error
	LEDsOff(ctx context.Context) error
}

// ArmPosition and HandAction name the preset limb targets.
type (
	ArmPosition string
	HandAction  string
)

// Arm preset positions.
const (
	ArmsUp      ArmPosition = "up"
	ArmsDown    ArmPosition = "down"
	ArmsForward ArmPosition = "forward"
	ArmsOut     ArmPosition = "out"
	ArmsBack    ArmPosition = "back"
)

// Hand actions.
const (
	HandOpen  HandAction = "open"
	HandClose HandAction = "close"
	HandKeep  HandAction = ""
)

// ArmSelection picks which arms a preset applies to.
type ArmSelection string

const (
	ArmBoth  ArmSelection = "both"
	ArmLeft  ArmSelection = "left"
	ArmRight ArmSelection = "right"
)

// LimbController moves head, arms and hands.
type LimbController interface {
	MoveHead(ctx context.Context, yawDeg, pitchDeg float64) error
	MoveArms(ctx context.Context, position ArmPosition, arms ArmSelection, shoulderPitchOffset, shoulderRollOffset float64) error
	MoveHands(ctx context.Context, left, right HandAction) error
}

// LocomotionController controls walking.
type LocomotionController interface {
	// Walk starts continuous walking at the given velocities. It returns
	// once walking has started, not when it ends.
	Walk(ctx context.Context, v WalkVector) error
	StopWalking(ctx context.Context) error
}

// SensorController reads robot sensors.
type SensorController interface {
	Sonar(ctx context.Context) (SonarReading, error)
	JointAngles(ctx context.Context, chain Chain) (map[string]float64, error)
	JointNames(ctx context.Context, chain Chain) ([]string, error)
	State(ctx context.Context) (State, error)
}

// BehaviourController runs behaviors installed on the robot.
type BehaviourController interface {
	RunBehaviour(ctx context.Context, name string) error
	Behaviours(ctx context.Context, kind string) ([]string, error)
	SetDefaultBehaviour(ctx context.Context, name string, isDefault bool) error
}

// Conn is the composite interface for a live SDK connection. It combines
// all capability interfaces plus connection lifecycle.
type Conn interface {
	PostureController
	StiffnessController
	SpeechController
	LEDController
	LimbController
	LocomotionController
	SensorController
	BehaviourController

	// SetMoveDuration sets the global duration used for timed movements.
	SetMoveDuration(ctx context.Context, d time.Duration) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Ensure HTTPConn implements Conn
var _ Conn = (*HTTPConn)(nil)
