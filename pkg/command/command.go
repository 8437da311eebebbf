// Package command maps validated robot commands onto the session manager
// and the operation tracker.
//
// Commands are immutable once constructed. Validation happens before any
// robot access: a malformed command never touches the SDK.
package command

import (
	"fmt"
	"time"

	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
)

// ValidationError reports a malformed command. The robot is untouched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// invalidf builds a ValidationError.
func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func validateSpeed(speed float64) error {
	if speed < 0.1 || speed > 1.0 {
		return invalidf("speed must be between 0.1 and 1.0, got %g", speed)
	}
	return nil
}

func validateDuration(d time.Duration) error {
	if d <= 0 {
		return invalidf("duration must be positive, got %s", d)
	}
	return nil
}

// Stand moves the robot to a standing posture.
type Stand struct {
	Speed   float64
	Variant string
}

func (c Stand) validate() error {
	if err := validateSpeed(c.Speed); err != nil {
		return err
	}
	switch c.Variant {
	case nao.StandDefault, nao.StandInit, nao.StandZero:
		return nil
	}
	return invalidf("unknown stand variant %q", c.Variant)
}

// Sit moves the robot to a sitting posture.
type Sit struct {
	Speed   float64
	Variant string
}

func (c Sit) validate() error {
	if err := validateSpeed(c.Speed); err != nil {
		return err
	}
	switch c.Variant {
	case nao.SitDefault, nao.SitRelax:
		return nil
	}
	return invalidf("unknown sit variant %q", c.Variant)
}

// Crouch moves the robot to a crouching posture.
type Crouch struct {
	Speed float64
}

func (c Crouch) validate() error {
	return validateSpeed(c.Speed)
}

// Lie moves the robot to a lying posture.
type Lie struct {
	Speed    float64
	Position string
}

func (c Lie) validate() error {
	if err := validateSpeed(c.Speed); err != nil {
		return err
	}
	switch c.Position {
	case nao.LieBack, nao.LieBelly:
		return nil
	}
	return invalidf("lie position must be %q or %q, got %q", nao.LieBack, nao.LieBelly, c.Position)
}

// Stiffness enables or disables joint motors.
type Stiffness struct {
	Enabled bool
}

// LifeState sets the autonomous life state.
type LifeState struct {
	State string
}

func (c LifeState) validate() error {
	if !nao.ValidLifeState(c.State) {
		return invalidf("invalid autonomous life state %q", c.State)
	}
	return nil
}

// Say makes the robot speak.
type Say struct {
	Text     string
	Blocking bool
	Animated bool
}

func (c Say) validate() error {
	if c.Text == "" {
		return invalidf("text is required")
	}
	return nil
}

// SetLEDs sets LED cluster colors from hex strings.
type SetLEDs struct {
	Colors map[string]string
}

func (c SetLEDs) validate() error {
	if len(c.Colors) == 0 {
		return invalidf("at least one LED group is required")
	}
	for group, hex := range c.Colors {
		if !nao.LEDGroup(group).Valid() {
			return invalidf("unknown LED group %q", group)
		}
		if _, err := nao.ParseColor(hex); err != nil {
			return invalidf("LED group %q: %v", group, err)
		}
	}
	return nil
}

// parsed converts validated hex colors to SDK colors.
func (c SetLEDs) parsed() map[nao.LEDGroup]nao.Color {
	colors := make(map[nao.LEDGroup]nao.Color, len(c.Colors))
	for group, hex := range c.Colors {
		color, _ := nao.ParseColor(hex)
		colors[nao.LEDGroup(group)] = color
	}
	return colors
}

// MoveHead positions the head. Angles are degrees.
type MoveHead struct {
	Yaw   float64
	Pitch float64
}

func (c MoveHead) validate() error {
	if c.Yaw < -nao.MaxHeadYawDeg || c.Yaw > nao.MaxHeadYawDeg {
		return invalidf("head yaw must be between %d and %d degrees, got %g",
			-nao.MaxHeadYawDeg, nao.MaxHeadYawDeg, c.Yaw)
	}
	if c.Pitch < nao.MinHeadPitchDeg || c.Pitch > nao.MaxHeadPitchDeg {
		return invalidf("head pitch must be between %d and %d degrees, got %g",
			nao.MinHeadPitchDeg, nao.MaxHeadPitchDeg, c.Pitch)
	}
	return nil
}

// MoveArms applies an arm preset position.
type MoveArms struct {
	Position            string
	Arms                string
	ShoulderPitchOffset float64
	ShoulderRollOffset  float64
}

func (c MoveArms) validate() error {
	switch nao.ArmPosition(c.Position) {
	case nao.ArmsUp, nao.ArmsDown, nao.ArmsForward, nao.ArmsOut, nao.ArmsBack:
	default:
		return invalidf("invalid arm position %q", c.Position)
	}
	switch nao.ArmSelection(c.Arms) {
	case nao.ArmBoth, nao.ArmLeft, nao.ArmRight:
	default:
		return invalidf("invalid arm selection %q", c.Arms)
	}
	return nil
}

// MoveHands opens or closes hands. Empty means leave unchanged.
type MoveHands struct {
	Left  string
	Right string
}

func (c MoveHands) validate() error {
	for _, hand := range []string{c.Left, c.Right} {
		switch nao.HandAction(hand) {
		case nao.HandOpen, nao.HandClose, nao.HandKeep:
		default:
			return invalidf("hand action must be %q or %q, got %q", nao.HandOpen, nao.HandClose, hand)
		}
	}
	if c.Left == "" && c.Right == "" {
		return invalidf("at least one hand action is required")
	}
	return nil
}

// Walk starts a timed walk. Velocities are normalized to [-1, 1].
// Duration bounds the walk; zero picks the default.
type Walk struct {
	X        float64
	Y        float64
	Theta    float64
	Speed    float64
	Duration time.Duration
}

func (c Walk) validate() error {
	for name, v := range map[string]float64{"x": c.X, "y": c.Y, "theta": c.Theta} {
		if v < -1 || v > 1 {
			return invalidf("%s velocity must be between -1.0 and 1.0, got %g", name, v)
		}
	}
	if err := validateSpeed(c.Speed); err != nil {
		return err
	}
	if c.Duration < 0 {
		return invalidf("duration must not be negative, got %s", c.Duration)
	}
	return nil
}

// Walk preset actions.
const (
	WalkForward   = "forward"
	WalkBackward  = "backward"
	WalkTurnLeft  = "turn_left"
	WalkTurnRight = "turn_right"
)

// WalkPreset runs a predefined walking pattern for a fixed duration.
type WalkPreset struct {
	Action   string
	Speed    float64
	Duration time.Duration
}

func (c WalkPreset) validate() error {
	switch c.Action {
	case WalkForward, WalkBackward, WalkTurnLeft, WalkTurnRight:
	default:
		return invalidf("invalid walk action %q", c.Action)
	}
	if err := validateSpeed(c.Speed); err != nil {
		return err
	}
	return validateDuration(c.Duration)
}

// vector maps the preset action to a walk vector.
func (c WalkPreset) vector() nao.WalkVector {
	v := nao.WalkVector{Speed: c.Speed}
	switch c.Action {
	case WalkForward:
		v.X = 1
	case WalkBackward:
		v.X = -1
	case WalkTurnLeft:
		v.Theta = 1
	case WalkTurnRight:
		v.Theta = -1
	}
	return v
}

// Behaviour runs an installed robot behavior.
type Behaviour struct {
	Name     string
	Blocking bool
}

func (c Behaviour) validate() error {
	if c.Name == "" {
		return invalidf("behaviour name is required")
	}
	return nil
}

// Animation runs a named animation from the registry.
type Animation struct {
	Name               string
	Statement          string
	DurationMultiplier float64
}

func (c Animation) validate() error {
	if c.Name == "" {
		return invalidf("animation name is required")
	}
	if _, ok := animations[c.Name]; !ok {
		return invalidf("unknown animation %q", c.Name)
	}
	if c.DurationMultiplier < 0 {
		return invalidf("duration multiplier must not be negative, got %g", c.DurationMultiplier)
	}
	return nil
}

// Sequence runs an ordered list of movement steps.
type Sequence struct {
	Steps    []Step
	Blocking bool
}

func (c Sequence) validate() error {
	if len(c.Steps) == 0 {
		return invalidf("sequence is required")
	}
	for i, step := range c.Steps {
		if err := step.validate(); err != nil {
			return invalidf("step %d: %v", i+1, err)
		}
	}
	return nil
}

// SetDuration sets the global movement duration on the robot.
type SetDuration struct {
	Duration time.Duration
}

func (c SetDuration) validate() error {
	return validateDuration(c.Duration)
}
