// internal/taskclient/client.go
package taskclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"dishscout/internal/common/errors"
	"dishscout/internal/common/http"
	"dishscout/internal/common/logger"
)

// Client issues task creation and status calls against the remote analysis
// service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.NewClient(timeout),
		logger:     log.WithFields(map[string]interface{}{"component": "taskclient"}),
	}
}

// SubmitDishSearch issues exactly one creation call for the dish-search flow
// and returns the handle of the started task.
func (c *Client) SubmitDishSearch(ctx context.Context, req DishSearchRequest) (TaskHandle, error) {
	return c.submit(ctx, "/api/find-restaurants", req)
}

// SubmitVenueLink issues exactly one creation call for the venue-link flow
// and returns the handle of the started task.
func (c *Client) SubmitVenueLink(ctx context.Context, req VenueLinkRequest) (TaskHandle, error) {
	return c.submit(ctx, "/api/scrape-reviews", req)
}

func (c *Client) submit(ctx context.Context, path string, payload interface{}) (TaskHandle, error) {
	url := c.baseURL + path

	req, err := http.NewJSONRequest(ctx, nethttp.MethodPost, url, payload)
	if err != nil {
		return "", errors.NewSubmissionFailedError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("submission request failed", map[string]interface{}{
			"url": url,
		})
		return "", errors.NewSubmissionFailedError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewSubmissionFailedError(err)
	}

	if resp.StatusCode != nethttp.StatusOK && resp.StatusCode != nethttp.StatusCreated {
		c.logger.Error("submission rejected", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return "", errors.NewSubmissionRejectedError(resp.StatusCode, string(body))
	}

	var created submitResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", errors.NewSubmissionFailedError(fmt.Errorf("failed to decode submission response: %w", err))
	}
	if created.TaskID == "" {
		return "", errors.NewSubmissionFailedError(fmt.Errorf("submission response missing task_id"))
	}

	c.logger.Info("task submitted", map[string]interface{}{
		"taskId": created.TaskID,
	})
	return TaskHandle(created.TaskID), nil
}

// Status issues one status query for the given handle. Any transport,
// HTTP-level, or decode failure is reported as a poll transport error; the
// caller aborts the wait on the first such failure.
func (c *Client) Status(ctx context.Context, handle TaskHandle) (*StatusResponse, error) {
	url := fmt.Sprintf("%s/api/status/%s", c.baseURL, handle)

	req, err := http.NewJSONRequest(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewPollTransportError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewPollTransportError(err)
	}
	defer resp.Body.Close()

	// The server answers 404 for unknown task ids.
	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewPollTransportError(
			fmt.Errorf("status query returned %d: %s", resp.StatusCode, string(body)))
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.NewPollTransportError(fmt.Errorf("failed to decode status response: %w", err))
	}
	if status.State == "" {
		return nil, errors.NewPollTransportError(fmt.Errorf("status response missing state"))
	}

	return &status, nil
}
