// internal/flows/dish-search/submission.go
package dishsearch

import (
	"context"
	"strings"

	"dishscout/internal/geolocation"
	"dishscout/internal/taskclient"
)

// Submission binds one dish-search form input to the task service. The
// geolocation provider is read, not awaited, when Submit runs.
type Submission struct {
	Input  *Input
	Client *taskclient.Client
	Geo    *geolocation.Provider
}

func (s *Submission) Flow() string {
	return FlowName
}

func (s *Submission) Validate() error {
	return Validate(s.Input)
}

func (s *Submission) Submit(ctx context.Context) (taskclient.TaskHandle, error) {
	return s.Client.SubmitDishSearch(ctx, s.buildRequest())
}

// buildRequest coerces form fields into the wire payload. Coordinates stay
// 0,0 unless the user opted in and a fix exists; the opt-in flag is sent
// either way so the server can handle absent precision.
func (s *Submission) buildRequest() taskclient.DishSearchRequest {
	req := taskclient.DishSearchRequest{
		Dish:           strings.TrimSpace(s.Input.Dish),
		Location:       strings.TrimSpace(s.Input.Location),
		Radius:         ParseRadius(s.Input.Radius),
		UseGeolocation: s.Input.UseCurrentLocation,
	}

	if s.Input.UseCurrentLocation && s.Geo != nil {
		if coords, ok := s.Geo.Current(); ok {
			req.Latitude = coords.Latitude
			req.Longitude = coords.Longitude
		}
	}

	return req
}
