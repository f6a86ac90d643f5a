// internal/flows/venue-link/submission.go
package venuelink

import (
	"context"
	"strings"

	"dishscout/internal/taskclient"
)

// Submission binds one venue-link form input to the task service.
type Submission struct {
	Input  *Input
	Client *taskclient.Client
}

func (s *Submission) Flow() string {
	return FlowName
}

func (s *Submission) Validate() error {
	return Validate(s.Input)
}

func (s *Submission) Submit(ctx context.Context) (taskclient.TaskHandle, error) {
	return s.Client.SubmitVenueLink(ctx, taskclient.VenueLinkRequest{
		URL: strings.TrimSpace(s.Input.Link),
	})
}
