// internal/taskclient/poller_test.go
package taskclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dishscout/internal/common/errors"
	"dishscout/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPoller serves one canned status body per poll, repeating the last
// one once the script runs out.
func scriptedPoller(t *testing.T, maxAttempts int, bodies ...string) (*Poller, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(bodies) {
			n = len(bodies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, bodies[n])
	}))
	t.Cleanup(server.Close)

	log := logger.NewTestLogger(t)
	client := NewClient(server.URL, 5*time.Second, log)
	return NewPoller(client, "dish-search", 2*time.Millisecond, maxAttempts, log), &calls
}

// ==========================
// TERMINAL STATE TESTS
// ==========================

func TestWaitReturnsResultOnCompleted(t *testing.T) {
	poller, calls := scriptedPoller(t, 0,
		`{"state":"INITIALIZED"}`,
		`{"state":"FETCHING"}`,
		`{"state":"ANALYZING"}`,
		`{"state":"FINALIZING"}`,
		`{"state":"COMPLETED","result":{"dish":"ramen"}}`,
	)

	var phases []TaskState
	raw, err := poller.Wait(context.Background(), "task-1", func(state TaskState) {
		phases = append(phases, state)
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"dish":"ramen"}`, string(raw))
	assert.Equal(t, int64(5), calls.Load())
	assert.Equal(t, []TaskState{StateInitialized, StateFetching, StateAnalyzing, StateFinalizing}, phases,
		"every non-terminal state is surfaced in receipt order")
}

func TestWaitStopsAtFirstTerminalState(t *testing.T) {
	poller, calls := scriptedPoller(t, 0,
		`{"state":"ANALYZING"}`,
		`{"state":"COMPLETED","result":{}}`,
	)

	_, err := poller.Wait(context.Background(), "task-1", nil)
	require.NoError(t, err)

	settled := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "no poll may follow a terminal state")
}

func TestWaitReportsTaskFailure(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "with server message",
			body:    `{"state":"FAILED","result":{"error":"No restaurants found in this area."}}`,
			wantMsg: "No restaurants found in this area.",
		},
		{
			name:    "without server message",
			body:    `{"state":"FAILED"}`,
			wantMsg: errors.GenericTaskFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poller, _ := scriptedPoller(t, 0, `{"state":"ANALYZING"}`, tt.body)

			raw, err := poller.Wait(context.Background(), "task-1", nil)

			assert.Nil(t, raw)
			require.Error(t, err)
			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, errors.ErrCodeTaskFailed, stdErr.Code)
			assert.Equal(t, tt.wantMsg, stdErr.UserMessage())
		})
	}
}

// ==========================
// ABORT CONDITION TESTS
// ==========================

func TestWaitAbortsOnTransportFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	log := logger.NewTestLogger(t)
	client := NewClient(server.URL, 5*time.Second, log)
	poller := NewPoller(client, "dish-search", 2*time.Millisecond, 0, log)

	raw, err := poller.Wait(context.Background(), "task-1", nil)

	assert.Nil(t, raw)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodePollTransportFailed, stdErr.Code)
	assert.Equal(t, int64(1), calls.Load(), "a single transport failure aborts without retry")
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	poller, _ := scriptedPoller(t, 0, `{"state":"ANALYZING"}`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	raw, err := poller.Wait(ctx, "task-1", nil)

	assert.Nil(t, raw)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodePollTransportFailed, stdErr.Code)
}

func TestWaitExhaustsMaxAttempts(t *testing.T) {
	poller, calls := scriptedPoller(t, 3, `{"state":"ANALYZING"}`)

	raw, err := poller.Wait(context.Background(), "task-1", nil)

	assert.Nil(t, raw)
	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodePollTransportFailed, stdErr.Code)
	assert.Equal(t, int64(3), calls.Load())
}
