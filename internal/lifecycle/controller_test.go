// internal/lifecycle/controller_test.go
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dishscout/internal/common/errors"
	"dishscout/internal/common/logger"
	"dishscout/internal/common/session"
	"dishscout/internal/taskclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// TEST HELPERS
// ==========================

type stubRequest struct {
	flow        string
	validateErr error
	submitFn    func(ctx context.Context) (taskclient.TaskHandle, error)
}

func (r *stubRequest) Flow() string    { return r.flow }
func (r *stubRequest) Validate() error { return r.validateErr }

func (r *stubRequest) Submit(ctx context.Context) (taskclient.TaskHandle, error) {
	return r.submitFn(ctx)
}

// statusScript serves one canned status body per call and keeps serving the
// last one once the script is exhausted.
type statusScript struct {
	calls  atomic.Int64
	bodies []string
}

func (s *statusScript) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1)) - 1
		if n >= len(s.bodies) {
			n = len(s.bodies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, s.bodies[n])
	}
}

func newTestController(t *testing.T, script *statusScript, opts ...Option) *Controller {
	t.Helper()

	server := httptest.NewServer(script.handler())
	t.Cleanup(server.Close)

	log := logger.NewTestLogger(t)
	client := taskclient.NewClient(server.URL, 5*time.Second, log)
	poller := taskclient.NewPoller(client, "dish-search", 5*time.Millisecond, 0, log)

	decode := func(raw json.RawMessage) (interface{}, error) {
		var out map[string]interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, errors.NewResultMalformedError(err.Error())
		}
		return out, nil
	}

	return NewController("dish-search", poller, decode, log, opts...)
}

func submitOK(handle string) func(ctx context.Context) (taskclient.TaskHandle, error) {
	return func(ctx context.Context) (taskclient.TaskHandle, error) {
		return taskclient.TaskHandle(handle), nil
	}
}

func waitForState(t *testing.T, c *Controller, want State) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond, "controller never reached %s", want)
	return c.Snapshot()
}

// ==========================
// VALIDATION AND GUARD TESTS
// ==========================

func TestSubmitRejectsInvalidInput(t *testing.T) {
	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":{}}`}}
	c := newTestController(t, script)

	err := c.Submit(context.Background(), &stubRequest{
		flow:        "dish-search",
		validateErr: errors.NewEmptyFieldError("dish", "Please enter a dish name."),
	})

	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeEmptyField, stdErr.Code)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State, "rejected input must not leave Idle")
	assert.Equal(t, "Please enter a dish name.", snap.Error)
	assert.False(t, snap.Busy)
	assert.Equal(t, int64(0), script.calls.Load(), "no status call before a submission exists")
}

func TestSubmitRefusesWhileBusy(t *testing.T) {
	script := &statusScript{bodies: []string{
		`{"state":"ANALYZING"}`,
		`{"state":"COMPLETED","result":{}}`,
	}}
	c := newTestController(t, script)

	blocked := make(chan struct{})
	first := &stubRequest{flow: "dish-search", submitFn: func(ctx context.Context) (taskclient.TaskHandle, error) {
		<-blocked
		return "task-1", nil
	}}
	require.NoError(t, c.Submit(context.Background(), first))

	second := &stubRequest{flow: "dish-search", submitFn: submitOK("task-2")}
	err := c.Submit(context.Background(), second)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeSubmissionInFlight, stdErr.Code)

	close(blocked)
	waitForState(t, c, StateCompleted)
}

// ==========================
// LIFECYCLE TRANSITION TESTS
// ==========================

func TestSubmissionFailureSkipsPolling(t *testing.T) {
	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":{}}`}}
	c := newTestController(t, script)

	req := &stubRequest{flow: "dish-search", submitFn: func(ctx context.Context) (taskclient.TaskHandle, error) {
		return "", errors.NewSubmissionRejectedError(500, "boom")
	}}
	require.NoError(t, c.Submit(context.Background(), req))

	snap := waitForState(t, c, StateFailed)
	assert.Equal(t, errors.GenericSubmissionMessage, snap.Error)
	assert.False(t, snap.Busy)
	assert.Equal(t, int64(0), script.calls.Load(), "a failed submission must never poll")
}

func TestLifecycleReachesCompleted(t *testing.T) {
	script := &statusScript{bodies: []string{
		`{"state":"INITIALIZED"}`,
		`{"state":"ANALYZING"}`,
		`{"state":"FINALIZING"}`,
		`{"state":"COMPLETED","result":{"dish":"ramen"}}`,
	}}
	c := newTestController(t, script)

	require.NoError(t, c.Submit(context.Background(), &stubRequest{flow: "dish-search", submitFn: submitOK("task-1")}))

	snap := waitForState(t, c, StateCompleted)
	assert.False(t, snap.Busy)
	assert.Empty(t, snap.Error)
	result, ok := snap.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ramen", result["dish"])

	// Terminal means frozen: the poll loop must be done.
	settled := script.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, script.calls.Load(), "polling must stop at a terminal state")
}

func TestLifecycleSurfacesFinalizing(t *testing.T) {
	script := &statusScript{bodies: []string{
		`{"state":"FINALIZING"}`,
		`{"state":"FINALIZING"}`,
		`{"state":"COMPLETED","result":{}}`,
	}}
	c := newTestController(t, script)

	sawFinalizing := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range c.Updates() {
			if snap.State == StateFinalizing {
				sawFinalizing = true
			}
			if snap.State.Terminal() {
				return
			}
		}
	}()

	require.NoError(t, c.Submit(context.Background(), &stubRequest{flow: "dish-search", submitFn: submitOK("task-1")}))
	waitForState(t, c, StateCompleted)
	<-done
	assert.True(t, sawFinalizing, "FINALIZING phase must be surfaced before completion")
}

func TestTaskFailureUsesServerMessage(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "server supplies a message",
			body:      `{"state":"FAILED","result":{"error":"No restaurants found in this area."}}`,
			wantError: "No restaurants found in this area.",
		},
		{
			name:      "server message missing falls back to generic",
			body:      `{"state":"FAILED"}`,
			wantError: errors.GenericTaskFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := &statusScript{bodies: []string{tt.body}}
			c := newTestController(t, script)

			require.NoError(t, c.Submit(context.Background(), &stubRequest{flow: "dish-search", submitFn: submitOK("task-1")}))

			snap := waitForState(t, c, StateFailed)
			assert.Equal(t, tt.wantError, snap.Error)
			assert.Nil(t, snap.Result)
			assert.False(t, snap.Busy)
		})
	}
}

func TestMalformedResultFails(t *testing.T) {
	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":"not an object"}`}}
	c := newTestController(t, script)

	require.NoError(t, c.Submit(context.Background(), &stubRequest{flow: "dish-search", submitFn: submitOK("task-1")}))

	snap := waitForState(t, c, StateFailed)
	assert.Equal(t, errors.GenericPollFailureMessage, snap.Error)
	assert.Nil(t, snap.Result)
}

// ==========================
// OUTCOME REPLACEMENT TESTS
// ==========================

func TestResubmitReplacesPriorOutcome(t *testing.T) {
	script := &statusScript{bodies: []string{
		`{"state":"FAILED","result":{"error":"first run failed"}}`,
		`{"state":"COMPLETED","result":{"dish":"pho"}}`,
	}}
	c := newTestController(t, script)

	req := &stubRequest{flow: "dish-search", submitFn: submitOK("task-1")}
	require.NoError(t, c.Submit(context.Background(), req))
	snap := waitForState(t, c, StateFailed)
	assert.Equal(t, "first run failed", snap.Error)

	c.Acknowledge()
	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.Empty(t, c.Snapshot().TaskID)
	assert.Equal(t, "first run failed", c.Snapshot().Error, "outcome stays visible until replaced")

	require.NoError(t, c.Submit(context.Background(), req))
	snap = waitForState(t, c, StateCompleted)
	assert.Empty(t, snap.Error, "success clears the prior error")
	require.NotNil(t, snap.Result)
}

func TestAcknowledgeIgnoredOutsideTerminalStates(t *testing.T) {
	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":{}}`}}
	c := newTestController(t, script)

	c.Acknowledge()
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestClearErrorResetsDisplayedError(t *testing.T) {
	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":{}}`}}
	c := newTestController(t, script)

	err := c.Submit(context.Background(), &stubRequest{
		flow:        "dish-search",
		validateErr: errors.NewEmptyFieldError("dish", "Please enter a dish name."),
	})
	require.Error(t, err)
	require.NotEmpty(t, c.Snapshot().Error)

	c.ClearError()
	assert.Empty(t, c.Snapshot().Error)
}

// ==========================
// SESSION RESUME TESTS
// ==========================

func TestResumeReattachesStoredTask(t *testing.T) {
	mr := miniredis.RunT(t)
	store := session.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	script := &statusScript{bodies: []string{
		`{"state":"ANALYZING"}`,
		`{"state":"COMPLETED","result":{"dish":"ramen"}}`,
	}}
	c := newTestController(t, script, WithSessionStore(store))

	require.NoError(t, store.SaveActiveTask(context.Background(), "dish-search", "task-99"))

	resumed, err := c.Resume(context.Background())
	require.NoError(t, err)
	require.True(t, resumed)

	snap := waitForState(t, c, StateCompleted)
	assert.Equal(t, "task-99", snap.TaskID)

	stored, err := store.ActiveTask(context.Background(), "dish-search")
	require.NoError(t, err)
	assert.Empty(t, stored, "completed task must be cleared from the store")
}

func TestResumeNoopWithoutStoredTask(t *testing.T) {
	mr := miniredis.RunT(t)
	store := session.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	script := &statusScript{bodies: []string{`{"state":"COMPLETED","result":{}}`}}
	c := newTestController(t, script, WithSessionStore(store))

	resumed, err := c.Resume(context.Background())
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}
