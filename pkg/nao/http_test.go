package nao

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// daemonStub records requests the way the on-robot daemon would receive them.
type daemonStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func (d *daemonStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.Body = body
			}
		}
		d.mu.Lock()
		d.requests = append(d.requests, rec)
		status := d.status
		d.mu.Unlock()

		if status != 0 {
			http.Error(w, "motion engine busy", status)
			return
		}
		switch {
		case r.URL.Path == "/state":
			json.NewEncoder(w).Encode(State{BatteryLevel: 64, Awake: true, LifeState: "disabled"})
		case r.URL.Path == "/sensors/sonar":
			json.NewEncoder(w).Encode(SonarReading{Left: 0.5, Right: 0.9})
		case strings.HasSuffix(r.URL.Path, "/angles"):
			json.NewEncoder(w).Encode(map[string]any{"joints": map[string]float64{"HeadYaw": 12.5}})
		case strings.HasSuffix(r.URL.Path, "/names"):
			json.NewEncoder(w).Encode(map[string]any{"names": []string{"HeadYaw", "HeadPitch"}})
		default:
			w.Write([]byte("{}"))
		}
	})
}

func (d *daemonStub) last(t *testing.T) recordedRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return d.requests[len(d.requests)-1]
}

func dialStub(t *testing.T) (*HTTPConn, *daemonStub) {
	t.Helper()
	stub := &daemonStub{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	addr := strings.TrimPrefix(srv.URL, "http://")
	conn, err := Dial(context.Background(), addr, 5*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, stub
}

func TestDialChecksReachability(t *testing.T) {
	conn, stub := dialStub(t)

	first := stub.requests[0]
	if first.Path != "/state" {
		t.Errorf("handshake hit %s, want /state", first.Path)
	}

	state, err := conn.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.BatteryLevel != 64 || !state.Awake {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestDialFailsWhenUnreachable(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1:1", time.Second)
	if err == nil {
		t.Fatal("expected Dial to fail")
	}
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Errorf("err = %v, want *ConnError", err)
	}
}

func TestPostureRequests(t *testing.T) {
	conn, stub := dialStub(t)
	ctx := context.Background()

	cases := []struct {
		name        string
		call        func() error
		wantPosture string
	}{
		{"stand", func() error { return conn.Stand(ctx, StandInit, 0.5) }, "StandInit"},
		{"sit", func() error { return conn.Sit(ctx, SitRelax, 0.5) }, "SitRelax"},
		{"crouch", func() error { return conn.Crouch(ctx, 0.5) }, "Crouch"},
		{"lie back", func() error { return conn.Lie(ctx, LieBack, 0.5) }, "LyingBack"},
		{"lie belly", func() error { return conn.Lie(ctx, LieBelly, 0.5) }, "LyingBelly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != nil {
				t.Fatal(err)
			}
			req := stub.last(t)
			if req.Path != "/motion/posture" {
				t.Errorf("path = %s, want /motion/posture", req.Path)
			}
			if got := req.Body["posture"]; got != tc.wantPosture {
				t.Errorf("posture = %v, want %s", got, tc.wantPosture)
			}
			if got := req.Body["speed"]; got != 0.5 {
				t.Errorf("speed = %v, want 0.5", got)
			}
		})
	}
}

func TestSetLEDsSendsHexColors(t *testing.T) {
	conn, stub := dialStub(t)

	err := conn.SetLEDs(context.Background(), map[LEDGroup]Color{
		LEDEyes: 0xff0000,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := stub.last(t)
	colors, ok := req.Body["colors"].(map[string]any)
	if !ok {
		t.Fatalf("colors missing from payload: %v", req.Body)
	}
	if colors["eyes"] != "#ff0000" {
		t.Errorf("eyes = %v, want #ff0000", colors["eyes"])
	}
}

func TestWalkClampsVector(t *testing.T) {
	conn, stub := dialStub(t)

	err := conn.Walk(context.Background(), WalkVector{X: 5, Speed: 0})
	if err != nil {
		t.Fatal(err)
	}

	req := stub.last(t)
	if req.Body["x"] != 1.0 {
		t.Errorf("x = %v, want 1 after clamping", req.Body["x"])
	}
	if req.Body["speed"] != 0.1 {
		t.Errorf("speed = %v, want 0.1 after clamping", req.Body["speed"])
	}
}

func TestMoveHandsOmitsUnchangedHand(t *testing.T) {
	conn, stub := dialStub(t)

	if err := conn.MoveHands(context.Background(), HandOpen, HandKeep); err != nil {
		t.Fatal(err)
	}
	req := stub.last(t)
	if req.Body["left"] != "open" {
		t.Errorf("left = %v, want open", req.Body["left"])
	}
	if _, present := req.Body["right"]; present {
		t.Error("right hand sent despite keep action")
	}
}

func TestJointQueries(t *testing.T) {
	conn, stub := dialStub(t)
	ctx := context.Background()

	angles, err := conn.JointAngles(ctx, ChainHead)
	if err != nil {
		t.Fatal(err)
	}
	if angles["HeadYaw"] != 12.5 {
		t.Errorf("HeadYaw = %v, want 12.5", angles["HeadYaw"])
	}
	if req := stub.last(t); req.Path != "/joints/Head/angles" {
		t.Errorf("path = %s", req.Path)
	}

	names, err := conn.JointNames(ctx, ChainHead)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "HeadYaw" {
		t.Errorf("names = %v", names)
	}
}

func TestCommandErrorOnDaemonFailure(t *testing.T) {
	conn, stub := dialStub(t)
	stub.mu.Lock()
	stub.status = http.StatusServiceUnavailable
	stub.mu.Unlock()

	err := conn.Wake(context.Background())
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want *CommandError", err)
	}
	if cmdErr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", cmdErr.Status)
	}
	var connErr *ConnError
	if errors.As(err, &connErr) {
		t.Error("daemon-level failure must not look like a lost connection")
	}
}

func TestContextCancellationIsNotConnError(t *testing.T) {
	conn, _ := dialStub(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := conn.Say(ctx, "hello", true, false)
	if err == nil {
		t.Fatal("expected an error")
	}
	var connErr *ConnError
	if errors.As(err, &connErr) {
		t.Errorf("cancellation reported as ConnError: %v", err)
	}
}
