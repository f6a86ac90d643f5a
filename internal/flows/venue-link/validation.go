// internal/flows/venue-link/validation.go
package venuelink

import (
	"strings"

	"dishscout/internal/common/errors"
)

// The service only scrapes venues it can resolve on Google Maps, so links
// are matched against a domain allow-list rather than parsed as URLs.
var (
	acceptedSubstrings = []string{
		"google.com/maps",
		"maps.app.goo.gl",
		"goo.gl/maps",
	}
	acceptedPrefixes = []string{
		"https://maps.app.goo.gl/",
		"https://goo.gl/maps/",
		"https://g.co/kgs/",
	}
)

// Validate classifies the raw link without side effects. It returns nil when
// the input may be submitted, or a validation error with the string shown
// inline next to the field.
func Validate(input *Input) error {
	link := strings.TrimSpace(input.Link)
	if link == "" {
		return errors.NewEmptyFieldError("link", "Please enter a restaurant link.")
	}

	if !matchesAllowList(link) {
		return errors.NewInvalidFormatError("link", "Please enter a valid Google Maps link.")
	}

	return nil
}

func matchesAllowList(link string) bool {
	folded := strings.ToLower(link)

	for _, substr := range acceptedSubstrings {
		if strings.Contains(folded, substr) {
			return true
		}
	}
	for _, prefix := range acceptedPrefixes {
		if strings.HasPrefix(folded, prefix) {
			return true
		}
	}
	return false
}
