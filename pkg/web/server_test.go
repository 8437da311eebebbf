package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davesnowdon/go-nao-bridge/pkg/command"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao/naotest"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

func newTestServer(t *testing.T, connect bool) (*Server, *naotest.FakeConn) {
	t.Helper()
	conn := &naotest.FakeConn{
		StateValue: nao.State{BatteryLevel: 80, Awake: true, LifeState: "disabled"},
	}
	sess := session.NewManager("nao.local:9559", func(ctx context.Context) (nao.Conn, error) {
		return conn, nil
	})
	if connect {
		require.NoError(t, sess.Connect(context.Background()))
		conn.Reset() // drop the connect handshake
	}
	tracker := operation.NewTracker(time.Minute)
	t.Cleanup(tracker.Close)
	dispatcher := command.NewDispatcher(sess, tracker, 1500*time.Millisecond)
	return NewServer(":0", dispatcher, sess, tracker), conn
}

func request(t *testing.T, s *Server, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "response was not JSON: %s", raw)
	return resp, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error body: %v", body)
	code, _ := errBody["code"].(string)
	return code
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := request(t, s, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["robot_connected"])
	assert.Equal(t, float64(80), data["battery_level"])
	assert.Equal(t, APIVersion, data["api_version"])
}

func TestStatusWhileDisconnected(t *testing.T) {
	s, _ := newTestServer(t, false)

	resp, body := request(t, s, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "status must work without a robot")
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["robot_connected"])
}

func TestValidationErrorsReturn400(t *testing.T) {
	s, conn := newTestServer(t, true)

	cases := []struct {
		name    string
		path    string
		payload any
	}{
		{"stand speed", "/api/v1/posture/stand", map[string]any{"speed": 5}},
		{"say empty", "/api/v1/speech/say", map[string]any{}},
		{"head yaw", "/api/v1/head/position", map[string]any{"yaw": 999}},
		{"led color", "/api/v1/leds/set", map[string]any{"leds": map[string]string{"eyes": "red"}}},
		{"walk velocity", "/api/v1/walk/start", map[string]any{"x": 2.0}},
		{"unknown animation", "/api/v1/animations/execute", map[string]any{"animation": "backflip"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := request(t, s, http.MethodPost, tc.path, tc.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, CodeInvalidParameter, errorCode(t, body))
		})
	}
	assert.Empty(t, conn.Calls(), "robot touched by an invalid request")
}

func TestSay(t *testing.T) {
	s, conn := newTestServer(t, true)

	resp, body := request(t, s, http.MethodPost, "/api/v1/speech/say",
		map[string]any{"text": "hello world", "blocking": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, conn.CallCount("Say"))
}

func TestPostureDefaults(t *testing.T) {
	s, conn := newTestServer(t, true)

	// Empty body picks speed 0.5 and the default variant.
	resp, _ := request(t, s, http.MethodPost, "/api/v1/posture/stand", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, conn.CallCount("Stand"))
}

func TestDisconnectedCommandsReturn502(t *testing.T) {
	s, _ := newTestServer(t, false)

	resp, body := request(t, s, http.MethodPost, "/api/v1/robot/wake", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, CodeRobotUnavailable, errorCode(t, body))

	resp, body = request(t, s, http.MethodPost, "/api/v1/walk/preset",
		map[string]any{"action": "forward"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, CodeRobotUnavailable, errorCode(t, body))
}

func TestWalkPresetLifecycle(t *testing.T) {
	s, conn := newTestServer(t, true)

	resp, body := request(t, s, http.MethodPost, "/api/v1/walk/preset",
		map[string]any{"action": "forward", "duration": 0.02, "speed": 0.5})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	id, _ := body["operation_id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		_, opBody := request(t, s, http.MethodGet, "/api/v1/operations/"+id, nil)
		data, ok := opBody["data"].(map[string]any)
		return ok && data["status"] == string(operation.StatusSucceeded)
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, conn.CallCount("Walk"))
	assert.Equal(t, 1, conn.CallCount("StopWalking"))
}

func TestOperationNotFound(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := request(t, s, http.MethodGet, "/api/v1/operations/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, errorCode(t, body))
}

func TestOperationsList(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := request(t, s, http.MethodPost, "/api/v1/animations/execute",
		map[string]any{"animation": "hello"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := body["operation_id"].(string)

	_, listBody := request(t, s, http.MethodGet, "/api/v1/operations", nil)
	data := listBody["data"].(map[string]any)
	ops, ok := data["operations"].([]any)
	require.True(t, ok)
	require.Len(t, ops, 1)
	assert.Equal(t, id, ops[0].(map[string]any)["id"])
}

func TestAnimationList(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := request(t, s, http.MethodGet, "/api/v1/animations/list", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	animations, ok := data["animations"].([]any)
	require.True(t, ok)
	assert.Len(t, animations, 5)
}

func TestSonar(t *testing.T) {
	s, conn := newTestServer(t, true)
	conn.SonarValue = nao.SonarReading{Left: 0.7, Right: 1.2}

	resp, body := request(t, s, http.MethodGet, "/api/v1/sensors/sonar", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, 0.7, data["left"])
	assert.Equal(t, 1.2, data["right"])
	assert.Equal(t, "meters", data["units"])
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := request(t, s, http.MethodGet, "/api/v1/teleport", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, errorCode(t, body))
}

func TestMalformedBody(t *testing.T) {
	s, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/speech/say",
		bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
