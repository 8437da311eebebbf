package nao

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davesnowdon/go-nao-bridge/internal/httpc"
)

// ConnError indicates the robot daemon could not be reached. The session
// manager treats it as a lost connection and fails fast afterwards.
type ConnError struct {
	Addr string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("robot %s unreachable: %v", e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// CommandError indicates the daemon accepted the request but the SDK call
// itself failed on the robot.
type CommandError struct {
	Status  int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("robot command failed (%d): %s", e.Status, e.Message)
}

// HTTPConn implements Conn using the robot-side daemon's HTTP API.
// This is the primary transport used by the bridge.
type HTTPConn struct {
	BaseURL string

	addr   string
	client *http.Client
}

// Dial connects to the robot daemon at addr (host:port) and confirms it is
// reachable. The context bounds the handshake.
func Dial(ctx context.Context, addr string, commandTimeout time.Duration) (*HTTPConn, error) {
	c := &HTTPConn{
		BaseURL: "http://" + addr,
		addr:    addr,
		client:  httpc.NewClient(commandTimeout),
	}
	if _, err := c.State(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the connection's idle transports.
func (c *HTTPConn) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPConn) post(ctx context.Context, path string, payload any) error {
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *HTTPConn) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPConn) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ConnError{Addr: c.addr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &CommandError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// Stand moves the robot to a standing posture.
func (c *HTTPConn) Stand(ctx context.Context, variant string, speed float64) error {
	return c.post(ctx, "/motion/posture", map[string]any{
		"posture": variant, "speed": speed,
	})
}

// Sit moves the robot to a sitting posture.
func (c *HTTPConn) Sit(ctx context.Context, variant string, speed float64) error {
	return c.post(ctx, "/motion/posture", map[string]any{
		"posture": variant, "speed": speed,
	})
}

// Crouch moves the robot to a crouching posture.
func (c *HTTPConn) Crouch(ctx context.Context, speed float64) error {
	return c.post(ctx, "/motion/posture", map[string]any{
		"posture": "Crouch", "speed": speed,
	})
}

// Lie moves the robot to a lying posture.
func (c *HTTPConn) Lie(ctx context.Context, position string, speed float64) error {
	posture := "LyingBack"
	if position == LieBelly {
		posture = "LyingBelly"
	}
	return c.post(ctx, "/motion/posture", map[string]any{
		"posture": posture, "speed": speed,
	})
}

// SetStiffness engages or releases all joint motors.
func (c *HTTPConn) SetStiffness(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/motion/stiffness", map[string]any{"enabled": enabled})
}

// Wake wakes the robot up.
func (c *HTTPConn) Wake(ctx context.Context) error {
	return c.post(ctx, "/motion/wake", nil)
}

// Rest puts the robot in rest mode.
func (c *HTTPConn) Rest(ctx context.Context) error {
	return c.post(ctx, "/motion/rest", nil)
}

// SetLifeState sets the autonomous life state.
func (c *HTTPConn) SetLifeState(ctx context.Context, state string) error {
	return c.post(ctx, "/life/state", map[string]any{"state": state})
}

// Say speaks text through the robot's TTS engine.
func (c *HTTPConn) Say(ctx context.Context, text string, blocking, animated bool) error {
	return c.post(ctx, "/tts/say", map[string]any{
		"text": text, "blocking": blocking, "animated": animated,
	})
}

// SetLEDs sets LED cluster colors.
func (c *HTTPConn) SetLEDs(ctx context.Context, colors map[LEDGroup]Color) error {
	payload := make(map[string]string, len(colors))
	for group, color := range colors {
		payload[string(group)] = color.Hex()
	}
	return c.post(ctx, "/leds/set", map[string]any{"colors": payload})
}

// LEDsOff turns all LEDs off.
func (c *HTTPConn) LEDsOff(ctx context.Context) error {
	return c.post(ctx, "/leds/off", nil)
}

// MoveHead moves the head to the given yaw/pitch in degrees.
func (c *HTTPConn) MoveHead(ctx context.Context, yawDeg, pitchDeg float64) error {
	return c.post(ctx, "/motion/head", map[string]any{
		"yaw": yawDeg, "pitch": pitchDeg,
	})
}

// MoveArms applies an arm preset position.
func (c *HTTPConn) MoveArms(ctx context.Context, position ArmPosition, arms ArmSelection, shoulderPitchOffset, shoulderRollOffset float64) error {
	return c.post(ctx, "/motion/arms", map[string]any{
		"position":              position,
		"arms":                  arms,
		"shoulder_pitch_offset": shoulderPitchOffset,
		"shoulder_roll_offset":  shoulderRollOffset,
	})
}

// MoveHands opens or closes the hands.
func (c *HTTPConn) MoveHands(ctx context.Context, left, right HandAction) error {
	payload := map[string]any{}
	if left != HandKeep {
		payload["left"] = left
	}
	if right != HandKeep {
		payload["right"] = right
	}
	return c.post(ctx, "/motion/hands", payload)
}

// Walk starts continuous walking at the given velocities.
func (c *HTTPConn) Walk(ctx context.Context, v WalkVector) error {
	return c.post(ctx, "/locomotion/walk", v.Clamp())
}

// StopWalking halts the current walking motion.
func (c *HTTPConn) StopWalking(ctx context.Context) error {
	return c.post(ctx, "/locomotion/stop", nil)
}

// Sonar reads both sonar sensors.
func (c *HTTPConn) Sonar(ctx context.Context) (SonarReading, error) {
	var reading SonarReading
	err := c.get(ctx, "/sensors/sonar", &reading)
	return reading, err
}

// JointAngles returns the current angles for a joint chain.
func (c *HTTPConn) JointAngles(ctx context.Context, chain Chain) (map[string]float64, error) {
	var out struct {
		Joints map[string]float64 `json:"joints"`
	}
	if err := c.get(ctx, "/joints/"+string(chain)+"/angles", &out); err != nil {
		return nil, err
	}
	return out.Joints, nil
}

// JointNames returns the joint names for a chain.
func (c *HTTPConn) JointNames(ctx context.Context, chain Chain) ([]string, error) {
	var out struct {
		Names []string `json:"names"`
	}
	if err := c.get(ctx, "/joints/"+string(chain)+"/names", &out); err != nil {
		return nil, err
	}
	return out.Names, nil
}

// State returns a snapshot of robot-side state.
func (c *HTTPConn) State(ctx context.Context) (State, error) {
	var state State
	err := c.get(ctx, "/state", &state)
	return state, err
}

// RunBehaviour runs an installed behavior to completion.
func (c *HTTPConn) RunBehaviour(ctx context.Context, name string) error {
	return c.post(ctx, "/behaviour/run", map[string]any{"name": name})
}

// Behaviours lists behaviors of the given kind: installed, default or running.
func (c *HTTPConn) Behaviours(ctx context.Context, kind string) ([]string, error) {
	var out struct {
		Behaviours []string `json:"behaviours"`
	}
	if err := c.get(ctx, "/behaviour/"+kind, &out); err != nil {
		return nil, err
	}
	return out.Behaviours, nil
}

// SetDefaultBehaviour marks a behavior as default (or removes the mark).
func (c *HTTPConn) SetDefaultBehaviour(ctx context.Context, name string, isDefault bool) error {
	return c.post(ctx, "/behaviour/default", map[string]any{
		"name": name, "default": isDefault,
	})
}

// SetMoveDuration sets the global duration used for timed movements.
func (c *HTTPConn) SetMoveDuration(ctx context.Context, d time.Duration) error {
	return c.post(ctx, "/config/duration", map[string]any{
		"duration": d.Seconds(),
	})
}
