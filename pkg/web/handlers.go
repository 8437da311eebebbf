package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/davesnowdon/go-nao-bridge/pkg/command"
)

// body decodes a JSON request body into out. An absent body is accepted and
// leaves out at its zero value, matching the original API's tolerance for
// empty POST bodies.
func body(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return &command.ValidationError{Message: "malformed request body: " + err.Error()}
	}
	return nil
}

// applyDuration sets the robot's global movement duration when a request
// carries one. Durations arrive in seconds.
func (s *Server) applyDuration(c *fiber.Ctx, seconds float64) error {
	if seconds == 0 {
		return nil
	}
	return s.dispatcher.SetMoveDuration(c.UserContext(), command.SetDuration{
		Duration: time.Duration(seconds * float64(time.Second)),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	// Best effort refresh; a stale cache is still a valid answer.
	_ = s.session.RefreshState(c.UserContext())

	status := s.session.Status()
	return ok(c, fiber.Map{
		"robot_connected":       status.Connected,
		"robot_addr":            status.RobotAddr,
		"battery_level":         status.BatteryLevel,
		"awake":                 status.Awake,
		"autonomous_life_state": status.LifeState,
		"current_posture":       status.Posture,
		"stiffness_enabled":     status.Stiff,
		"active_operations":     len(s.tracker.Active()),
		"api_version":           APIVersion,
	}, "Status retrieved successfully")
}

type stiffnessRequest struct {
	Duration float64 `json:"duration"`
}

func (s *Server) handleStiff(c *fiber.Ctx) error {
	var req stiffnessRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.applyDuration(c, req.Duration); err != nil {
		return fail(c, err)
	}
	if err := s.dispatcher.SetStiffness(c.UserContext(), command.Stiffness{Enabled: true}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot stiffness enabled")
}

func (s *Server) handleRelax(c *fiber.Ctx) error {
	if err := s.dispatcher.SetStiffness(c.UserContext(), command.Stiffness{Enabled: false}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot stiffness disabled")
}

func (s *Server) handleWake(c *fiber.Ctx) error {
	if err := s.dispatcher.Wake(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot woke up")
}

func (s *Server) handleRest(c *fiber.Ctx) error {
	if err := s.dispatcher.Rest(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot in rest mode")
}

type lifeStateRequest struct {
	State string `json:"state"`
}

func (s *Server) handleLifeState(c *fiber.Ctx) error {
	req := lifeStateRequest{State: "disabled"}
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.dispatcher.SetLifeState(c.UserContext(), command.LifeState{State: req.State}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Autonomous life state set to: "+req.State)
}

func (s *Server) handleJointAngles(c *fiber.Ctx) error {
	chain := c.Params("chain")
	angles, err := s.dispatcher.JointAngles(c.UserContext(), chain)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"chain": chain, "joints": angles},
		"Joint angles for chain '"+chain+"' retrieved")
}

func (s *Server) handleJointNames(c *fiber.Ctx) error {
	chain := c.Params("chain")
	names, err := s.dispatcher.JointNames(c.UserContext(), chain)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"chain": chain, "joint_names": names},
		"Joint names for chain '"+chain+"' retrieved")
}

type postureRequest struct {
	Speed    float64 `json:"speed"`
	Variant  string  `json:"variant"`
	Position string  `json:"position"`
}

func (r *postureRequest) defaults(variant string) {
	if r.Speed == 0 {
		r.Speed = 0.5
	}
	if r.Variant == "" {
		r.Variant = variant
	}
}

func (s *Server) handleStand(c *fiber.Ctx) error {
	var req postureRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	req.defaults("Stand")
	if err := s.dispatcher.Stand(c.UserContext(), command.Stand{Speed: req.Speed, Variant: req.Variant}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot moved to standing position")
}

func (s *Server) handleSit(c *fiber.Ctx) error {
	var req postureRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	req.defaults("Sit")
	if err := s.dispatcher.Sit(c.UserContext(), command.Sit{Speed: req.Speed, Variant: req.Variant}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot moved to sitting position")
}

func (s *Server) handleCrouch(c *fiber.Ctx) error {
	var req postureRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	req.defaults("")
	if err := s.dispatcher.Crouch(c.UserContext(), command.Crouch{Speed: req.Speed}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot moved to crouching position")
}

func (s *Server) handleLie(c *fiber.Ctx) error {
	var req postureRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	req.defaults("")
	if req.Position == "" {
		req.Position = "back"
	}
	if err := s.dispatcher.Lie(c.UserContext(), command.Lie{Speed: req.Speed, Position: req.Position}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Robot moved to lying position")
}

type armsRequest struct {
	Duration float64 `json:"duration"`
	Position string  `json:"position"`
	Arms     string  `json:"arms"`
	Offset   struct {
		ShoulderPitch float64 `json:"shoulder_pitch"`
		ShoulderRoll  float64 `json:"shoulder_roll"`
	} `json:"offset"`
}

func (s *Server) handleArmsPreset(c *fiber.Ctx) error {
	req := armsRequest{Position: "up", Arms: "both"}
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.applyDuration(c, req.Duration); err != nil {
		return fail(c, err)
	}
	cmd := command.MoveArms{
		Position:            req.Position,
		Arms:                req.Arms,
		ShoulderPitchOffset: req.Offset.ShoulderPitch,
		ShoulderRollOffset:  req.Offset.ShoulderRoll,
	}
	if err := s.dispatcher.MoveArms(c.UserContext(), cmd); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Arms moved to "+req.Position+" position")
}

type handsRequest struct {
	Duration  float64 `json:"duration"`
	LeftHand  string  `json:"left_hand"`
	RightHand string  `json:"right_hand"`
}

func (s *Server) handleHandsPosition(c *fiber.Ctx) error {
	var req handsRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.applyDuration(c, req.Duration); err != nil {
		return fail(c, err)
	}
	if err := s.dispatcher.MoveHands(c.UserContext(), command.MoveHands{Left: req.LeftHand, Right: req.RightHand}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Hand positions updated")
}

type headRequest struct {
	Duration float64 `json:"duration"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
}

func (s *Server) handleHeadPosition(c *fiber.Ctx) error {
	var req headRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.applyDuration(c, req.Duration); err != nil {
		return fail(c, err)
	}
	if err := s.dispatcher.MoveHead(c.UserContext(), command.MoveHead{Yaw: req.Yaw, Pitch: req.Pitch}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Head position updated")
}

type sayRequest struct {
	Text     string `json:"text"`
	Blocking bool   `json:"blocking"`
	Animated bool   `json:"animated"`
}

func (s *Server) handleSay(c *fiber.Ctx) error {
	var req sayRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	cmd := command.Say{Text: req.Text, Blocking: req.Blocking, Animated: req.Animated}
	if err := s.dispatcher.Say(c.UserContext(), cmd); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Speech command executed")
}

type ledsRequest struct {
	Duration float64           `json:"duration"`
	LEDs     map[string]string `json:"leds"`
}

func (s *Server) handleLEDsSet(c *fiber.Ctx) error {
	var req ledsRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.applyDuration(c, req.Duration); err != nil {
		return fail(c, err)
	}
	if err := s.dispatcher.SetLEDs(c.UserContext(), command.SetLEDs{Colors: req.LEDs}); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "LED colors updated")
}

func (s *Server) handleLEDsOff(c *fiber.Ctx) error {
	if err := s.dispatcher.LEDsOff(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "All LEDs turned off")
}

type walkRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Theta    float64 `json:"theta"`
	Speed    float64 `json:"speed"`
	Duration float64 `json:"duration"`
}

func (s *Server) handleWalkStart(c *fiber.Ctx) error {
	req := walkRequest{Speed: 0.5}
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	cmd := command.Walk{
		X:        req.X,
		Y:        req.Y,
		Theta:    req.Theta,
		Speed:    req.Speed,
		Duration: time.Duration(req.Duration * float64(time.Second)),
	}
	id, err := s.dispatcher.StartWalk(c.UserContext(), cmd)
	if err != nil {
		return fail(c, err)
	}
	return accepted(c, id, "Walking started")
}

func (s *Server) handleWalkStop(c *fiber.Ctx) error {
	if err := s.dispatcher.StopWalking(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return ok(c, nil, "Walking stopped")
}

type walkPresetRequest struct {
	Action   string  `json:"action"`
	Duration float64 `json:"duration"`
	Speed    float64 `json:"speed"`
}

func (s *Server) handleWalkPreset(c *fiber.Ctx) error {
	req := walkPresetRequest{Action: "forward", Duration: 3.0, Speed: 1.0}
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	cmd := command.WalkPreset{
		Action:   req.Action,
		Speed:    req.Speed,
		Duration: time.Duration(req.Duration * float64(time.Second)),
	}
	id, err := s.dispatcher.RunWalkPreset(c.UserContext(), cmd)
	if err != nil {
		return fail(c, err)
	}
	return accepted(c, id, "Walk "+req.Action+" started")
}

func (s *Server) handleSonar(c *fiber.Ctx) error {
	reading, err := s.dispatcher.Sonar(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{
		"left":      reading.Left,
		"right":     reading.Right,
		"units":     "meters",
		"timestamp": timestamp(),
	}, "Sonar readings retrieved")
}

type durationRequest struct {
	Duration float64 `json:"duration"`
}

func (s *Server) handleConfigDuration(c *fiber.Ctx) error {
	var req durationRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	cmd := command.SetDuration{Duration: time.Duration(req.Duration * float64(time.Second))}
	if err := s.dispatcher.SetMoveDuration(c.UserContext(), cmd); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"duration": req.Duration}, "Global duration updated")
}

func (s *Server) handleOperations(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"operations":        s.tracker.List(),
		"active_operations": s.tracker.Active(),
	}, "Operations retrieved")
}

func (s *Server) handleOperation(c *fiber.Ctx) error {
	op, err := s.tracker.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, op, "Operation status retrieved")
}

type behaviourRequest struct {
	Behaviour string `json:"behaviour"`
	Blocking  *bool  `json:"blocking"`
	Default   *bool  `json:"default"`
}

func (s *Server) handleBehaviourExecute(c *fiber.Ctx) error {
	var req behaviourRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	blocking := true
	if req.Blocking != nil {
		blocking = *req.Blocking
	}
	id, err := s.dispatcher.RunBehaviour(c.UserContext(), command.Behaviour{Name: req.Behaviour, Blocking: blocking})
	if err != nil {
		return fail(c, err)
	}
	if id != "" {
		return accepted(c, id, "Behaviour '"+req.Behaviour+"' started")
	}
	return ok(c, fiber.Map{"behaviour": req.Behaviour, "blocking": blocking},
		"Behaviour '"+req.Behaviour+"' executed successfully")
}

func (s *Server) handleBehaviourDefault(c *fiber.Ctx) error {
	var req behaviourRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	isDefault := true
	if req.Default != nil {
		isDefault = *req.Default
	}
	if err := s.dispatcher.SetDefaultBehaviour(c.UserContext(), req.Behaviour, isDefault); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"behaviour": req.Behaviour}, "Behaviour default updated")
}

func (s *Server) handleBehaviourList(c *fiber.Ctx) error {
	kind := c.Params("type")
	names, err := s.dispatcher.Behaviours(c.UserContext(), kind)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"behaviours": names}, "Available behaviours retrieved")
}

type animationRequest struct {
	Animation  string `json:"animation"`
	Parameters struct {
		Statement          string  `json:"statement"`
		DurationMultiplier float64 `json:"duration_multiplier"`
	} `json:"parameters"`
}

func (s *Server) handleAnimationExecute(c *fiber.Ctx) error {
	var req animationRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	cmd := command.Animation{
		Name:               req.Animation,
		Statement:          req.Parameters.Statement,
		DurationMultiplier: req.Parameters.DurationMultiplier,
	}
	id, err := s.dispatcher.RunAnimation(c.UserContext(), cmd)
	if err != nil {
		return fail(c, err)
	}
	return accepted(c, id, "Animation '"+req.Animation+"' started")
}

func (s *Server) handleAnimationList(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"animations": command.Animations()}, "Available animations retrieved")
}

type sequenceRequest struct {
	Sequence []command.Step `json:"sequence"`
	Blocking *bool          `json:"blocking"`
}

func (s *Server) handleSequence(c *fiber.Ctx) error {
	var req sequenceRequest
	if err := body(c, &req); err != nil {
		return fail(c, err)
	}
	stopOnError := true
	if req.Blocking != nil {
		stopOnError = *req.Blocking
	}
	id, err := s.dispatcher.RunSequence(c.UserContext(), command.Sequence{Steps: req.Sequence, Blocking: stopOnError})
	if err != nil {
		return fail(c, err)
	}
	return accepted(c, id, "Sequence started")
}
