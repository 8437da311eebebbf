// Package client is a typed Go client for the nao-bridge REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davesnowdon/go-nao-bridge/internal/httpc"
	"github.com/davesnowdon/go-nao-bridge/pkg/command"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
)

// APIError is a non-success response from the bridge.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nao-bridge: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
}

// Client talks to a running nao-bridge instance.
type Client struct {
	base string
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the bridge at baseURL, e.g. "http://localhost:3000".
// The shared httpc client is used unless WithHTTPClient overrides it.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpc.Client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data"`
	Message     string          `json:"message"`
	OperationID string          `json:"operation_id"`
	Error       *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (string, error) {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, body)
	if err != nil {
		return "", err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: "request failed"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return "", apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decoding response data: %w", err)
		}
	}
	return env.OperationID, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) (string, error) {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, out)
	return err
}

// Status is the bridge's view of the robot and its own state.
type Status struct {
	RobotConnected   bool   `json:"robot_connected"`
	RobotAddr        string `json:"robot_addr"`
	BatteryLevel     int    `json:"battery_level"`
	Awake            bool   `json:"awake"`
	LifeState        string `json:"autonomous_life_state"`
	CurrentPosture   string `json:"current_posture"`
	StiffnessEnabled bool   `json:"stiffness_enabled"`
	ActiveOperations int    `json:"active_operations"`
	APIVersion       string `json:"api_version"`
}

// Status reports bridge and robot state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.get(ctx, "/status", &out)
	return out, err
}

// Stiff enables stiffness on all robot joints.
func (c *Client) Stiff(ctx context.Context) error {
	_, err := c.post(ctx, "/robot/stiff", nil, nil)
	return err
}

// Relax disables stiffness on all robot joints.
func (c *Client) Relax(ctx context.Context) error {
	_, err := c.post(ctx, "/robot/relax", nil, nil)
	return err
}

// Wake brings the robot out of rest mode.
func (c *Client) Wake(ctx context.Context) error {
	_, err := c.post(ctx, "/robot/wake", nil, nil)
	return err
}

// Rest puts the robot into rest mode.
func (c *Client) Rest(ctx context.Context) error {
	_, err := c.post(ctx, "/robot/rest", nil, nil)
	return err
}

// SetLifeState sets the autonomous life state ("solitary", "interactive",
// "safeguard" or "disabled").
func (c *Client) SetLifeState(ctx context.Context, state string) error {
	_, err := c.post(ctx, "/robot/autonomous_life/state", map[string]string{"state": state}, nil)
	return err
}

type postureBody struct {
	Speed    float64 `json:"speed,omitempty"`
	Variant  string  `json:"variant,omitempty"`
	Position string  `json:"position,omitempty"`
}

// Stand moves the robot to a standing posture. Variant may be empty for the
// default, or one of "Stand", "StandInit", "StandZero".
func (c *Client) Stand(ctx context.Context, speed float64, variant string) error {
	_, err := c.post(ctx, "/posture/stand", postureBody{Speed: speed, Variant: variant}, nil)
	return err
}

// Sit moves the robot to a sitting posture.
func (c *Client) Sit(ctx context.Context, speed float64, variant string) error {
	_, err := c.post(ctx, "/posture/sit", postureBody{Speed: speed, Variant: variant}, nil)
	return err
}

// Crouch moves the robot to a crouching posture.
func (c *Client) Crouch(ctx context.Context, speed float64) error {
	_, err := c.post(ctx, "/posture/crouch", postureBody{Speed: speed}, nil)
	return err
}

// Lie moves the robot to lie on its "back" or "belly".
func (c *Client) Lie(ctx context.Context, speed float64, position string) error {
	_, err := c.post(ctx, "/posture/lie", postureBody{Speed: speed, Position: position}, nil)
	return err
}

// Say makes the robot speak. A blocking call returns after speech finishes.
func (c *Client) Say(ctx context.Context, text string, blocking, animated bool) error {
	_, err := c.post(ctx, "/speech/say", map[string]any{
		"text":     text,
		"blocking": blocking,
		"animated": animated,
	}, nil)
	return err
}

// MoveHead points the head. Angles are in degrees.
func (c *Client) MoveHead(ctx context.Context, yaw, pitch float64) error {
	_, err := c.post(ctx, "/head/position", map[string]float64{"yaw": yaw, "pitch": pitch}, nil)
	return err
}

// MoveArms moves arms to a named preset position.
func (c *Client) MoveArms(ctx context.Context, position, arms string) error {
	_, err := c.post(ctx, "/arms/preset", map[string]string{"position": position, "arms": arms}, nil)
	return err
}

// MoveHands opens or closes the hands. Actions are "open" or "close"; an
// empty string leaves that hand alone.
func (c *Client) MoveHands(ctx context.Context, left, right string) error {
	_, err := c.post(ctx, "/hands/position", map[string]string{"left_hand": left, "right_hand": right}, nil)
	return err
}

// SetLEDs sets LED group colors. Keys are LED groups, values are hex colors
// like "#ff0000".
func (c *Client) SetLEDs(ctx context.Context, colors map[string]string) error {
	_, err := c.post(ctx, "/leds/set", map[string]any{"leds": colors}, nil)
	return err
}

// LEDsOff turns off all LEDs.
func (c *Client) LEDsOff(ctx context.Context) error {
	_, err := c.post(ctx, "/leds/off", nil, nil)
	return err
}

// StartWalking starts an asynchronous walk and returns its operation id.
// Velocities are normalized to [-1, 1]; duration bounds the walk.
func (c *Client) StartWalking(ctx context.Context, x, y, theta, speed float64, duration time.Duration) (string, error) {
	return c.post(ctx, "/walk/start", map[string]float64{
		"x":        x,
		"y":        y,
		"theta":    theta,
		"speed":    speed,
		"duration": duration.Seconds(),
	}, nil)
}

// StopWalking halts any walk in progress.
func (c *Client) StopWalking(ctx context.Context) error {
	_, err := c.post(ctx, "/walk/stop", nil, nil)
	return err
}

// WalkPreset starts a preset walk ("forward", "backward", "turn_left",
// "turn_right") and returns its operation id.
func (c *Client) WalkPreset(ctx context.Context, action string, speed float64, duration time.Duration) (string, error) {
	return c.post(ctx, "/walk/preset", map[string]any{
		"action":   action,
		"speed":    speed,
		"duration": duration.Seconds(),
	}, nil)
}

// SonarReading holds the two chest sonar distances in meters.
type SonarReading struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Sonar reads the chest sonar sensors.
func (c *Client) Sonar(ctx context.Context) (SonarReading, error) {
	var out SonarReading
	err := c.get(ctx, "/sensors/sonar", &out)
	return out, err
}

// JointAngles reads current joint angles, in degrees, for a chain such as
// "Head", "LArm" or "Body".
func (c *Client) JointAngles(ctx context.Context, chain string) (map[string]float64, error) {
	var out struct {
		Joints map[string]float64 `json:"joints"`
	}
	err := c.get(ctx, "/robot/joints/"+chain+"/angles", &out)
	return out.Joints, err
}

// JointNames lists joint names for a chain.
func (c *Client) JointNames(ctx context.Context, chain string) ([]string, error) {
	var out struct {
		Names []string `json:"joint_names"`
	}
	err := c.get(ctx, "/robot/joints/"+chain+"/names", &out)
	return out.Names, err
}

// SetMoveDuration sets the global movement duration used by timed moves.
func (c *Client) SetMoveDuration(ctx context.Context, d time.Duration) error {
	_, err := c.post(ctx, "/config/duration", map[string]float64{"duration": d.Seconds()}, nil)
	return err
}

// RunAnimation starts a named animation and returns its operation id.
func (c *Client) RunAnimation(ctx context.Context, name string, params map[string]any) (string, error) {
	return c.post(ctx, "/animations/execute", map[string]any{
		"animation":  name,
		"parameters": params,
	}, nil)
}

// Animations lists the available animations.
func (c *Client) Animations(ctx context.Context) ([]command.AnimationInfo, error) {
	var out struct {
		Animations []command.AnimationInfo `json:"animations"`
	}
	err := c.get(ctx, "/animations/list", &out)
	return out.Animations, err
}

// RunSequence starts a step sequence and returns its operation id.
func (c *Client) RunSequence(ctx context.Context, steps []command.Step) (string, error) {
	return c.post(ctx, "/animations/sequence", map[string]any{"sequence": steps}, nil)
}

// RunBehaviour runs an installed behaviour. Non-blocking calls return an
// operation id; blocking calls return an empty id after the behaviour ends.
func (c *Client) RunBehaviour(ctx context.Context, name string, blocking bool) (string, error) {
	return c.post(ctx, "/behaviour/execute", map[string]any{
		"behaviour": name,
		"blocking":  blocking,
	}, nil)
}

// Behaviours lists behaviours of the given kind ("installed", "running" or
// "default").
func (c *Client) Behaviours(ctx context.Context, kind string) ([]string, error) {
	var out struct {
		Behaviours []string `json:"behaviours"`
	}
	err := c.get(ctx, "/behaviour/"+kind, &out)
	return out.Behaviours, err
}

// Operation fetches one operation record by id.
func (c *Client) Operation(ctx context.Context, id string) (operation.Operation, error) {
	var out operation.Operation
	err := c.get(ctx, "/operations/"+id, &out)
	return out, err
}

// Operations lists tracked operations, oldest first.
func (c *Client) Operations(ctx context.Context) ([]operation.Operation, error) {
	var out struct {
		Operations []operation.Operation `json:"operations"`
	}
	err := c.get(ctx, "/operations", &out)
	return out.Operations, err
}

// WaitForOperation polls until the operation reaches a terminal status or the
// context ends. A zero poll interval defaults to 500ms.
func (c *Client) WaitForOperation(ctx context.Context, id string, poll time.Duration) (operation.Operation, error) {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		op, err := c.Operation(ctx, id)
		if err != nil {
			return operation.Operation{}, err
		}
		if op.Status.Terminal() {
			return op, nil
		}
		select {
		case <-ctx.Done():
			return op, ctx.Err()
		case <-ticker.C:
		}
	}
}
