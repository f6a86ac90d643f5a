// internal/lifecycle/controller.go

// Package lifecycle drives one submission flow through its task states and
// exposes the observable fields the presentation layer renders.
package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dishscout/internal/common/errors"
	"dishscout/internal/common/logger"
	"dishscout/internal/common/metrics"
	"dishscout/internal/common/observability"
	"dishscout/internal/common/session"
	"dishscout/internal/taskclient"

	"github.com/google/uuid"
)

// State is the client-side lifecycle phase of the current submission.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAnalyzing
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSubmitting:
		return "Submitting"
	case StateAnalyzing:
		return "Analyzing"
	case StateFinalizing:
		return "Finalizing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state ends the current task wait.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Labels maps each state to its fixed user-facing phrase. The controller
// never free-texts progress.
type Labels map[State]string

// DefaultLabels are overridden per flow via WithLabels.
var DefaultLabels = Labels{
	StateIdle:       "",
	StateSubmitting: "Submitting your request…",
	StateAnalyzing:  "Analyzing dish quality…",
	StateFinalizing: "Preparing your recommendations…",
	StateCompleted:  "Done",
	StateFailed:     "",
}

// Request is one validated-and-submittable unit of user input, bound to a
// flow by the flow packages.
type Request interface {
	Flow() string
	Validate() error
	Submit(ctx context.Context) (taskclient.TaskHandle, error)
}

// DecodeFunc turns a raw COMPLETED payload into the flow's result type,
// rejecting malformed payloads.
type DecodeFunc func(json.RawMessage) (interface{}, error)

// Snapshot is the observable surface consumed by the presentation layer.
type Snapshot struct {
	State        State
	Label        string
	Error        string
	Result       interface{}
	Busy         bool
	TaskID       string
	SubmissionID string
}

// Controller owns the task lifecycle for one flow: at most one in-flight
// submission, one poll loop per submission, one error string at a time.
type Controller struct {
	flow   string
	poller *taskclient.Poller
	decode DecodeFunc
	labels Labels
	store  *session.Store
	obs    *observability.Observability
	logger logger.Logger

	mu           sync.Mutex
	state        State
	errText      string
	result       interface{}
	handle       taskclient.TaskHandle
	busy         bool
	submissionID string

	updates chan Snapshot
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithLabels overrides the per-state phrases for this flow.
func WithLabels(labels Labels) Option {
	return func(c *Controller) {
		merged := make(Labels, len(DefaultLabels))
		for s, l := range DefaultLabels {
			merged[s] = l
		}
		for s, l := range labels {
			merged[s] = l
		}
		c.labels = merged
	}
}

// WithSessionStore records the active task handle so an interrupted session
// can resume its wait.
func WithSessionStore(store *session.Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithObservability reports task outcomes to the otel meter.
func WithObservability(obs *observability.Observability) Option {
	return func(c *Controller) {
		c.obs = obs
	}
}

func NewController(flow string, poller *taskclient.Poller, decode DecodeFunc, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		flow:    flow,
		poller:  poller,
		decode:  decode,
		labels:  DefaultLabels,
		logger:  log.WithFields(map[string]interface{}{"flow": flow}),
		updates: make(chan Snapshot, 32),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates streams a snapshot for every state transition. Sends never block;
// a slow consumer misses intermediate snapshots, not the terminal one, since
// the channel buffer far exceeds the transition count of one submission.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Snapshot returns the current observable fields.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		Label:        c.labels[c.state],
		Error:        c.errText,
		Result:       c.result,
		Busy:         c.busy,
		TaskID:       string(c.handle),
		SubmissionID: c.submissionID,
	}
}

func (c *Controller) publishLocked() {
	select {
	case c.updates <- c.snapshotLocked():
	default:
	}
}

// Submit is the single trigger. It validates, flips to Submitting before any
// network call returns, then drives submission and polling asynchronously.
// The error return is immediate-only: a busy flow or rejected input. Every
// later outcome arrives through the observable fields.
func (c *Controller) Submit(ctx context.Context, req Request) error {
	c.mu.Lock()

	if c.busy {
		c.mu.Unlock()
		return errors.NewSubmissionInFlightError(c.flow)
	}

	if err := req.Validate(); err != nil {
		stdErr := errors.Normalize(err)
		c.errText = stdErr.UserMessage()
		c.publishLocked()
		c.mu.Unlock()
		return stdErr
	}

	// A new submission replaces the previous outcome entirely.
	c.busy = true
	c.state = StateSubmitting
	c.errText = ""
	c.result = nil
	c.handle = ""
	c.submissionID = uuid.New().String()
	c.publishLocked()
	c.mu.Unlock()

	metrics.SubmissionsTotal.WithLabelValues(c.flow).Inc()
	c.logger.Info("submission started", map[string]interface{}{
		"submissionId": c.submissionID,
	})

	go c.run(ctx, req, time.Now())
	return nil
}

func (c *Controller) run(ctx context.Context, req Request, started time.Time) {
	handle, err := req.Submit(ctx)
	if err != nil {
		// Submission failure short-circuits to Failed; polling never begins.
		metrics.SubmissionFailures.WithLabelValues(c.flow).Inc()
		c.fail(ctx, err, started)
		return
	}

	c.beginPolling(handle)
	c.saveActiveTask(ctx, handle)

	raw, err := c.poller.Wait(ctx, handle, c.onPhase)
	c.clearActiveTask(ctx)
	if err != nil {
		c.fail(ctx, err, started)
		return
	}

	decoded, err := c.decode(raw)
	if err != nil {
		c.fail(ctx, err, started)
		return
	}

	c.complete(ctx, decoded, started)
}

// beginPolling enters Analyzing optimistically, before the first status
// response confirms it.
func (c *Controller) beginPolling(handle taskclient.TaskHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = handle
	c.state = StateAnalyzing
	c.publishLocked()
}

// onPhase maps server phases onto display states. INITIALIZED and FETCHING
// arrive before ANALYZING on the wire and are shown under the same label.
func (c *Controller) onPhase(state taskclient.TaskState) {
	next := StateAnalyzing
	if state == taskclient.StateFinalizing {
		next = StateFinalizing
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == next {
		return
	}
	c.state = next
	c.publishLocked()
}

func (c *Controller) complete(ctx context.Context, result interface{}, started time.Time) {
	c.mu.Lock()
	c.state = StateCompleted
	c.result = result
	c.errText = ""
	c.busy = false
	submissionID := c.submissionID
	c.publishLocked()
	c.mu.Unlock()

	elapsed := time.Since(started)
	metrics.TasksCompleted.WithLabelValues(c.flow).Inc()
	metrics.TaskDuration.WithLabelValues(c.flow).Observe(elapsed.Seconds())
	if c.obs != nil {
		c.obs.RecordTaskProcessed(ctx, c.flow, "completed")
		c.obs.RecordTaskDuration(ctx, elapsed, c.flow, "completed")
	}

	c.logger.Info("task completed", map[string]interface{}{
		"submissionId": submissionID,
		"durationMs":   elapsed.Milliseconds(),
	})
}

func (c *Controller) fail(ctx context.Context, err error, started time.Time) {
	stdErr := errors.Normalize(err)
	category := errors.GetErrorCategory(stdErr.Code)

	c.mu.Lock()
	c.state = StateFailed
	c.errText = stdErr.UserMessage()
	c.busy = false
	submissionID := c.submissionID
	c.publishLocked()
	c.mu.Unlock()

	elapsed := time.Since(started)
	metrics.TasksFailed.WithLabelValues(c.flow, category).Inc()
	metrics.TaskDuration.WithLabelValues(c.flow).Observe(elapsed.Seconds())
	if c.obs != nil {
		c.obs.RecordTaskProcessed(ctx, c.flow, "failed")
		c.obs.RecordTaskDuration(ctx, elapsed, c.flow, "failed")
	}

	c.logger.WithError(stdErr).Error("task failed", map[string]interface{}{
		"submissionId": submissionID,
		"errorCode":    string(stdErr.Code),
		"category":     category,
	})
}

// Acknowledge returns the controller to Idle after the UI has displayed a
// terminal state. The displayed result or error stays until the next
// submission replaces it; the handle is released now.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		return
	}
	c.state = StateIdle
	c.handle = ""
	c.publishLocked()
}

// ClearError resets the displayed error as soon as the user edits the form
// again; validity is re-evaluated on the next Submit.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errText == "" {
		return
	}
	c.errText = ""
	c.publishLocked()
}

// Resume re-attaches the poll loop to a task handle left in the session
// store by an interrupted session. It reports whether a wait was resumed.
func (c *Controller) Resume(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}

	stored, err := c.store.ActiveTask(ctx, c.flow)
	if err != nil {
		return false, errors.NewSessionStoreError("get", err)
	}
	if stored == "" {
		return false, nil
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, errors.NewSubmissionInFlightError(c.flow)
	}
	c.busy = true
	c.errText = ""
	c.result = nil
	c.submissionID = uuid.New().String()
	c.mu.Unlock()

	handle := taskclient.TaskHandle(stored)
	c.logger.Info("resuming task wait", map[string]interface{}{
		"taskId": stored,
	})

	go func() {
		started := time.Now()
		c.beginPolling(handle)

		raw, err := c.poller.Wait(ctx, handle, c.onPhase)
		c.clearActiveTask(ctx)
		if err != nil {
			c.fail(ctx, err, started)
			return
		}

		decoded, err := c.decode(raw)
		if err != nil {
			c.fail(ctx, err, started)
			return
		}

		c.complete(ctx, decoded, started)
	}()

	return true, nil
}

func (c *Controller) saveActiveTask(ctx context.Context, handle taskclient.TaskHandle) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveActiveTask(ctx, c.flow, string(handle)); err != nil {
		c.logger.WithError(err).Warn("failed to record active task", nil)
	}
}

func (c *Controller) clearActiveTask(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.ClearActiveTask(ctx, c.flow); err != nil {
		c.logger.WithError(err).Warn("failed to clear active task", nil)
	}
}
