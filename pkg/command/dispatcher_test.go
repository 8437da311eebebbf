package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davesnowdon/go-nao-bridge/pkg/nao"
	"github.com/davesnowdon/go-nao-bridge/pkg/nao/naotest"
	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
	"github.com/davesnowdon/go-nao-bridge/pkg/session"
)

type fixture struct {
	dispatcher *Dispatcher
	conn       *naotest.FakeConn
	sess       *session.Manager
	tracker    *operation.Tracker
}

func newFixture(t *testing.T, connect bool) *fixture {
	t.Helper()
	conn := &naotest.FakeConn{}
	sess := session.NewManager("nao.local:9559", func(ctx context.Context) (nao.Conn, error) {
		return conn, nil
	})
	if connect {
		require.NoError(t, sess.Connect(context.Background()))
		conn.Reset() // drop the connect handshake
	}
	tracker := operation.NewTracker(time.Minute)
	t.Cleanup(tracker.Close)
	return &fixture{
		dispatcher: NewDispatcher(sess, tracker, 1500*time.Millisecond),
		conn:       conn,
		sess:       sess,
		tracker:    tracker,
	}
}

func (f *fixture) waitOp(t *testing.T, id string) operation.Operation {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		op, err := f.tracker.Get(id)
		require.NoError(t, err)
		if op.Status.Terminal() {
			return op
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("operation %s never finished", id)
	return operation.Operation{}
}

func TestValidationRejectsBeforeRobotTouch(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"stand speed", func() error { return f.dispatcher.Stand(ctx, Stand{Speed: 2, Variant: "Stand"}) }},
		{"stand variant", func() error { return f.dispatcher.Stand(ctx, Stand{Speed: 0.5, Variant: "Handstand"}) }},
		{"lie position", func() error { return f.dispatcher.Lie(ctx, Lie{Speed: 0.5, Position: "side"}) }},
		{"say empty", func() error { return f.dispatcher.Say(ctx, Say{}) }},
		{"head yaw", func() error { return f.dispatcher.MoveHead(ctx, MoveHead{Yaw: 200}) }},
		{"led group", func() error {
			return f.dispatcher.SetLEDs(ctx, SetLEDs{Colors: map[string]string{"tail": "#ff0000"}})
		}},
		{"led color", func() error {
			return f.dispatcher.SetLEDs(ctx, SetLEDs{Colors: map[string]string{"eyes": "red"}})
		}},
		{"life state", func() error { return f.dispatcher.SetLifeState(ctx, LifeState{State: "party"}) }},
		{"walk velocity", func() error {
			_, err := f.dispatcher.StartWalk(ctx, Walk{X: 1.5, Speed: 0.5})
			return err
		}},
		{"walk preset action", func() error {
			_, err := f.dispatcher.RunWalkPreset(ctx, WalkPreset{Action: "moonwalk", Speed: 0.5, Duration: time.Second})
			return err
		}},
		{"animation unknown", func() error {
			_, err := f.dispatcher.RunAnimation(ctx, Animation{Name: "backflip"})
			return err
		}},
		{"duration zero", func() error { return f.dispatcher.SetMoveDuration(ctx, SetDuration{}) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
	assert.Empty(t, f.conn.Calls(), "robot touched by an invalid command")
}

func TestStandReachesRobot(t *testing.T) {
	f := newFixture(t, true)

	err := f.dispatcher.Stand(context.Background(), Stand{Speed: 0.5, Variant: nao.StandDefault})
	require.NoError(t, err)
	assert.Equal(t, 1, f.conn.CallCount("Stand"))
	assert.Equal(t, nao.PostureStanding, f.sess.Status().Posture)
}

func TestWakeAndRestTrackStiffness(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Wake(ctx))
	assert.True(t, f.sess.Status().Stiff, "waking engages stiffness")

	require.NoError(t, f.dispatcher.Rest(ctx))
	assert.False(t, f.sess.Status().Stiff, "resting releases stiffness")
}

func TestAsyncCommandsRejectWhenDisconnected(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.dispatcher.StartWalk(ctx, Walk{X: 1, Speed: 0.5})
	assert.ErrorIs(t, err, session.ErrRobotUnavailable)

	_, err = f.dispatcher.RunAnimation(ctx, Animation{Name: "wave"})
	assert.ErrorIs(t, err, session.ErrRobotUnavailable)

	_, err = f.dispatcher.RunSequence(ctx, Sequence{Steps: []Step{{Type: StepSpeech, Action: "say", Text: "hi"}}})
	assert.ErrorIs(t, err, session.ErrRobotUnavailable)

	assert.Empty(t, f.tracker.List(), "no operation should be registered for a rejected command")
}

func TestWalkRunsAndStops(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.dispatcher.StartWalk(context.Background(), Walk{
		X: 1, Speed: 0.5, Duration: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusSucceeded, op.Status)
	assert.Equal(t, operation.KindWalk, op.Kind)
	assert.Equal(t, 1, f.conn.CallCount("Walk"))
	assert.Equal(t, 1, f.conn.CallCount("StopWalking"))

	result, ok := op.Result.(map[string]any)
	require.True(t, ok, "unexpected result type %T", op.Result)
	assert.Equal(t, "20ms", result["walked_for"])
}

func TestWalkStopsEvenWhenCancelled(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.dispatcher.StartWalk(context.Background(), Walk{
		X: 1, Speed: 0.5, Duration: 10 * time.Second,
	})
	require.NoError(t, err)

	// Wait for the walk to actually start before shutting down.
	require.Eventually(t, func() bool {
		return f.conn.CallCount("Walk") == 1
	}, 2*time.Second, time.Millisecond)

	f.tracker.Close()

	op, err := f.tracker.Get(id)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusFailed, op.Status)
	assert.Equal(t, 1, f.conn.CallCount("StopWalking"), "cancelled walk must still stop the robot")
}

func TestWalkPresetVectors(t *testing.T) {
	cases := []struct {
		action string
		want   nao.WalkVector
	}{
		{WalkForward, nao.WalkVector{X: 1, Speed: 0.5}},
		{WalkBackward, nao.WalkVector{X: -1, Speed: 0.5}},
		{WalkTurnLeft, nao.WalkVector{Theta: 1, Speed: 0.5}},
		{WalkTurnRight, nao.WalkVector{Theta: -1, Speed: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			cmd := WalkPreset{Action: tc.action, Speed: 0.5, Duration: time.Second}
			assert.Equal(t, tc.want, cmd.vector())
		})
	}
}

func TestRunBehaviourBlocking(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.dispatcher.RunBehaviour(context.Background(), Behaviour{Name: "dance", Blocking: true})
	require.NoError(t, err)
	assert.Empty(t, id, "blocking behaviours run synchronously")
	assert.Equal(t, 1, f.conn.CallCount("RunBehaviour"))
	assert.Empty(t, f.tracker.List())
}

func TestRunBehaviourAsync(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.dispatcher.RunBehaviour(context.Background(), Behaviour{Name: "dance"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusSucceeded, op.Status)
	assert.Equal(t, operation.KindBehaviour, op.Kind)
	assert.Equal(t, 1, f.conn.CallCount("RunBehaviour"))
}

func TestSequenceStopsOnError(t *testing.T) {
	f := newFixture(t, true)
	f.conn.FailWith("Say", errors.New("tts offline"))

	id, err := f.dispatcher.RunSequence(context.Background(), Sequence{
		Blocking: true,
		Steps: []Step{
			{Type: StepSpeech, Action: "say", Text: "hello"},
			{Type: StepHead, Action: "position", Yaw: 30},
		},
	})
	require.NoError(t, err)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusFailed, op.Status)
	assert.Contains(t, op.Error, "step 1")
	assert.Zero(t, f.conn.CallCount("MoveHead"), "sequence continued past a failed step")
}

func TestSequenceContinuesPastError(t *testing.T) {
	f := newFixture(t, true)
	f.conn.FailWith("Say", errors.New("tts offline"))

	id, err := f.dispatcher.RunSequence(context.Background(), Sequence{
		Steps: []Step{
			{Type: StepSpeech, Action: "say", Text: "hello"},
			{Type: StepHead, Action: "position", Yaw: 30},
		},
	})
	require.NoError(t, err)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusSucceeded, op.Status)
	assert.Equal(t, 1, f.conn.CallCount("MoveHead"))

	result, ok := op.Result.(map[string]any)
	require.True(t, ok)
	steps, ok := result["executed_steps"].([]StepResult)
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, "failed", steps[0].Status)
	assert.Equal(t, "completed", steps[1].Status)
	assert.Equal(t, "step 2/2", op.Progress)
}

func TestSequenceWaitStep(t *testing.T) {
	f := newFixture(t, true)

	start := time.Now()
	id, err := f.dispatcher.RunSequence(context.Background(), Sequence{
		Blocking: true,
		Steps: []Step{
			{Type: StepWait, Duration: 0.05},
			{Type: StepLEDs, Action: "off"},
		},
	})
	require.NoError(t, err)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusSucceeded, op.Status)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 1, f.conn.CallCount("LEDsOff"))
}

func TestSetMoveDurationUpdatesCache(t *testing.T) {
	f := newFixture(t, true)

	err := f.dispatcher.SetMoveDuration(context.Background(), SetDuration{Duration: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, f.dispatcher.MoveDuration())
	assert.Equal(t, 1, f.conn.CallCount("SetMoveDuration"))
}

func TestAnimationScalesAndRestoresDuration(t *testing.T) {
	f := newFixture(t, true)

	id, err := f.dispatcher.RunAnimation(context.Background(), Animation{
		Name:               "hello",
		DurationMultiplier: 0.01,
	})
	require.NoError(t, err)

	op := f.waitOp(t, id)
	assert.Equal(t, operation.StatusSucceeded, op.Status)
	// One call to scale, one to restore.
	assert.Equal(t, 2, f.conn.CallCount("SetMoveDuration"))
	assert.Equal(t, 1500*time.Millisecond, f.dispatcher.MoveDuration(), "cached duration must survive scaling")
}

func TestJointQueriesRejectBadChain(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var vErr *ValidationError
	_, err := f.dispatcher.JointAngles(ctx, "Tail")
	require.ErrorAs(t, err, &vErr)
	_, err = f.dispatcher.JointNames(ctx, "Tail")
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, f.conn.Calls())
}

func TestAnimationsListSorted(t *testing.T) {
	infos := Animations()
	require.NotEmpty(t, infos)
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
		assert.NotEmpty(t, info.Description, "animation %s has no description", info.Name)
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "wave")
	assert.Contains(t, names, "tada")
}
