package command

import (
	"context"
	"fmt"
	"time"

	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

// Step types accepted in a sequence.
const (
	StepPosture = "posture"
	StepSpeech  = "speech"
	StepArms    = "arms"
	StepHands   = "hands"
	StepHead    = "head"
	StepLEDs    = "leds"
	StepWait    = "wait"
)

// Step is one movement in a sequence. Which fields apply depends on Type.
type Step struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`

	// posture
	Speed   float64 `json:"speed,omitempty"`
	Variant string  `json:"variant,omitempty"`

	// speech
	Text     string `json:"text,omitempty"`
	Blocking bool   `json:"blocking,omitempty"`
	Animated bool   `json:"animated,omitempty"`

	// arms / hands
	Position  string `json:"position,omitempty"`
	Arms      string `json:"arms,omitempty"`
	LeftHand  string `json:"left_hand,omitempty"`
	RightHand string `json:"right_hand,omitempty"`

	// head
	Yaw   float64 `json:"yaw,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`

	// leds
	LEDs map[string]string `json:"leds,omitempty"`

	// wait duration in seconds
	Duration float64 `json:"duration,omitempty"`
}

// command converts a step to the equivalent validatable command.
// Wait steps have no command; they return nil.
func (s Step) command() (validator, error) {
	switch s.Type {
	case StepPosture:
		switch s.Action {
		case "stand":
			return Stand{Speed: orDefault(s.Speed, 0.5), Variant: orDefaultStr(s.Variant, nao.StandDefault)}, nil
		case "sit":
			return Sit{Speed: orDefault(s.Speed, 0.5), Variant: orDefaultStr(s.Variant, nao.SitDefault)}, nil
		case "crouch":
			return Crouch{Speed: orDefault(s.Speed, 0.5)}, nil
		case "lie":
			return Lie{Speed: orDefault(s.Speed, 0.5), Position: orDefaultStr(s.Position, nao.LieBack)}, nil
		}
		return nil, invalidf("unknown posture action %q", s.Action)
	case StepSpeech:
		if s.Action != "say" {
			return nil, invalidf("unknown speech action %q", s.Action)
		}
		return Say{Text: s.Text, Blocking: s.Blocking, Animated: s.Animated}, nil
	case StepArms:
		if s.Action != "preset" {
			return nil, invalidf("unknown arms action %q", s.Action)
		}
		return MoveArms{Position: orDefaultStr(s.Position, "up"), Arms: orDefaultStr(s.Arms, "both")}, nil
	case StepHands:
		if s.Action != "position" {
			return nil, invalidf("unknown hands action %q", s.Action)
		}
		return MoveHands{Left: s.LeftHand, Right: s.RightHand}, nil
	case StepHead:
		if s.Action != "position" {
			return nil, invalidf("unknown head action %q", s.Action)
		}
		return MoveHead{Yaw: s.Yaw, Pitch: s.Pitch}, nil
	case StepLEDs:
		switch s.Action {
		case "set":
			return SetLEDs{Colors: s.LEDs}, nil
		case "off":
			return ledsOff{}, nil
		}
		return nil, invalidf("unknown leds action %q", s.Action)
	case StepWait:
		if s.Duration <= 0 {
			return nil, invalidf("wait duration must be positive, got %g", s.Duration)
		}
		return nil, nil
	}
	return nil, invalidf("unknown step type %q", s.Type)
}

func (s Step) validate() error {
	cmd, err := s.command()
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}
	return cmd.validate()
}

// validator is the common surface of command structs.
type validator interface {
	validate() error
}

// ledsOff is the internal command behind the "leds off" step and route.
type ledsOff struct{}

func (ledsOff) validate() error { return nil }

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// StepResult records the outcome of one sequence step.
type StepResult struct {
	Step   int    `json:"step"`
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// runSequence executes steps in order, recording a result per attempted
// step. With stopOnError, the first failure aborts the sequence and fails
// the operation; otherwise failures are recorded and execution continues.
func (d *Dispatcher) runSequence(ctx context.Context, steps []Step, stopOnError bool, progress func(string)) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		progress(fmt.Sprintf("step %d/%d", i+1, len(steps)))
		result := StepResult{Step: i + 1, Type: step.Type, Action: step.Action, Status: "completed"}
		err := d.runStep(ctx, step)
		if err != nil {
			result.Status = "failed"
			result.Error = err.Error()
			results = append(results, result)
			if stopOnError {
				return results, fmt.Errorf("sequence failed at step %d: %w", i+1, err)
			}
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (d *Dispatcher) runStep(ctx context.Context, step Step) error {
	if step.Type == StepWait {
		select {
		case <-time.After(time.Duration(step.Duration * float64(time.Second))):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cmd, err := step.command()
	if err != nil {
		return err
	}

	switch c := cmd.(type) {
	case Stand:
		return d.session.Execute(ctx, standEffect(c))
	case Sit:
		return d.session.Execute(ctx, sitEffect(c))
	case Crouch:
		return d.session.Execute(ctx, crouchEffect(c))
	case Lie:
		return d.session.Execute(ctx, lieEffect(c))
	case Say:
		return d.session.Execute(ctx, sayEffect(c))
	case MoveArms:
		return d.session.Execute(ctx, armsEffect(c))
	case MoveHands:
		return d.session.Execute(ctx, handsEffect(c))
	case MoveHead:
		return d.session.Execute(ctx, headEffect(c))
	case SetLEDs:
		return d.session.Execute(ctx, ledsEffect(c))
	case ledsOff:
		return d.session.Execute(ctx, ledsOffEffect())
	}
	return invalidf("unsupported step type %q", step.Type)
}

// Effect constructors shared by the dispatcher and the sequence runner.

func standEffect(c Stand) session.Effect {
	return session.Effect{
		Name:    "stand",
		Posture: nao.PostureStanding,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Stand(ctx, c.Variant, c.Speed)
		},
	}
}

func sitEffect(c Sit) session.Effect {
	return session.Effect{
		Name:    "sit",
		Posture: nao.PostureSitting,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Sit(ctx, c.Variant, c.Speed)
		},
	}
}

func crouchEffect(c Crouch) session.Effect {
	return session.Effect{
		Name:    "crouch",
		Posture: nao.PostureCrouching,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Crouch(ctx, c.Speed)
		},
	}
}

func lieEffect(c Lie) session.Effect {
	return session.Effect{
		Name:    "lie",
		Posture: nao.PostureLying,
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Lie(ctx, c.Position, c.Speed)
		},
	}
}

func sayEffect(c Say) session.Effect {
	return session.Effect{
		Name: "say",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.Say(ctx, c.Text, c.Blocking, c.Animated)
		},
	}
}

func armsEffect(c MoveArms) session.Effect {
	return session.Effect{
		Name: "move arms",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.MoveArms(ctx, nao.ArmPosition(c.Position), nao.ArmSelection(c.Arms),
				c.ShoulderPitchOffset, c.ShoulderRollOffset)
		},
	}
}

func handsEffect(c MoveHands) session.Effect {
	return session.Effect{
		Name: "move hands",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.MoveHands(ctx, nao.HandAction(c.Left), nao.HandAction(c.Right))
		},
	}
}

func headEffect(c MoveHead) session.Effect {
	return session.Effect{
		Name: "move head",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.MoveHead(ctx, c.Yaw, c.Pitch)
		},
	}
}

func ledsEffect(c SetLEDs) session.Effect {
	colors := c.parsed()
	return session.Effect{
		Name: "set leds",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.SetLEDs(ctx, colors)
		},
	}
}

func ledsOffEffect() session.Effect {
	return session.Effect{
		Name: "leds off",
		Do: func(ctx context.Context, conn nao.Conn) error {
			return conn.LEDsOff(ctx)
		},
	}
}
