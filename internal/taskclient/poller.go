// internal/taskclient/poller.go
package taskclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dishscout/internal/common/errors"
	"dishscout/internal/common/logger"
	"dishscout/internal/common/metrics"
)

// Poller repeatedly queries task status on a fixed interval until a terminal
// state is observed. Polls are strictly sequential: the next query is
// scheduled one interval after the previous response, so status updates are
// applied in receipt order and terminal states cannot race interim ones.
type Poller struct {
	client      *Client
	flow        string
	interval    time.Duration
	maxAttempts int // 0 = poll until terminal
	logger      logger.Logger
}

// PhaseFunc receives each non-terminal state as it is observed.
type PhaseFunc func(state TaskState)

func NewPoller(client *Client, flow string, interval time.Duration, maxAttempts int, log logger.Logger) *Poller {
	return &Poller{
		client:      client,
		flow:        flow,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger: log.WithFields(map[string]interface{}{
			"component": "poller",
			"flow":      flow,
		}),
	}
}

// Interval returns the configured poll cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Wait polls until the task reaches COMPLETED, returning its raw result
// payload. Every other outcome is an error:
//   - FAILED: a TASK_FAILED error carrying the server message or the
//     generic fallback,
//   - a failed status query: a POLL_TRANSPORT_FAILED error; a single
//     transport failure aborts the whole wait with no retry,
//   - ctx cancelled or maxAttempts exhausted: a POLL_TRANSPORT_FAILED error.
func (p *Poller) Wait(ctx context.Context, handle TaskHandle, onPhase PhaseFunc) (json.RawMessage, error) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, errors.NewPollTransportError(ctx.Err())
		case <-timer.C:
		}

		attempts++
		metrics.StatusPollsTotal.WithLabelValues(p.flow).Inc()

		status, err := p.client.Status(ctx, handle)
		if err != nil {
			p.logger.WithError(err).Error("status poll failed, aborting wait", map[string]interface{}{
				"taskId":   string(handle),
				"attempts": attempts,
			})
			return nil, err
		}

		p.logger.Debug("status poll", map[string]interface{}{
			"taskId": string(handle),
			"state":  string(status.State),
		})

		switch status.State {
		case StateCompleted:
			return status.Result, nil

		case StateFailed:
			return nil, errors.NewTaskFailedError(status.FailureMessage())

		default:
			// INITIALIZED, FETCHING, ANALYZING, FINALIZING: keep waiting.
			if onPhase != nil {
				onPhase(status.State)
			}
		}

		if p.maxAttempts > 0 && attempts >= p.maxAttempts {
			return nil, errors.NewPollTransportError(
				fmt.Errorf("task %s not terminal after %d polls", handle, attempts))
		}

		timer.Reset(p.interval)
	}
}
