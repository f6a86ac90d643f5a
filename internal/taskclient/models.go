// internal/taskclient/models.go
package taskclient

import "encoding/json"

// TaskHandle is the opaque identifier returned by the submission endpoints.
type TaskHandle string

// TaskState is the server-reported processing phase.
type TaskState string

const (
	StateInitialized TaskState = "INITIALIZED"
	StateFetching    TaskState = "FETCHING"
	StateAnalyzing   TaskState = "ANALYZING"
	StateFinalizing  TaskState = "FINALIZING"
	StateCompleted   TaskState = "COMPLETED"
	StateFailed      TaskState = "FAILED"
)

// Terminal reports whether no further polling should occur for this state.
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// DishSearchRequest is the wire payload for the dish-search flow. Numeric
// fields are always populated; 0,0 with UseGeolocation false means "no
// coordinates supplied".
type DishSearchRequest struct {
	Dish           string  `json:"dish"`
	Location       string  `json:"location"`
	Radius         int     `json:"radius"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	UseGeolocation bool    `json:"useGeolocation"`
}

// VenueLinkRequest is the wire payload for the venue-link flow.
type VenueLinkRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

// StatusResponse is the wire payload of GET /api/status/{task_id}. For
// COMPLETED the result holds the flow's payload; for FAILED it holds
// {"error": "..."} when the server supplied a message.
type StatusResponse struct {
	State  TaskState       `json:"state"`
	Result json.RawMessage `json:"result,omitempty"`
}

// FailureMessage extracts the server-supplied error message from a FAILED
// response, or "" when none was given.
func (r *StatusResponse) FailureMessage() string {
	if len(r.Result) == 0 {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.Result, &body); err != nil {
		return ""
	}
	return body.Error
}
