// internal/flows/dish-search/validation.go
package dishsearch

import (
	"strconv"
	"strings"

	"dishscout/internal/common/errors"
)

const (
	defaultRadius = 10
	minRadius     = 1
	maxRadius     = 50
)

// Validate classifies the raw form fields without side effects. It returns
// nil when the input may be submitted, or a validation error with the string
// shown inline next to the offending field.
func Validate(input *Input) error {
	if strings.TrimSpace(input.Dish) == "" {
		return errors.NewEmptyFieldError("dish", "Please enter a dish name.")
	}

	// Location text is only required when the user has not opted into
	// searching around the current position.
	if strings.TrimSpace(input.Location) == "" && !input.UseCurrentLocation {
		return errors.NewEmptyFieldError("location", "Please enter a location or use your current location.")
	}

	return nil
}

// ParseRadius coerces the free-text radius field. Blank, malformed, or
// out-of-range values fall back to the default so a non-numeric value can
// never reach the wire.
func ParseRadius(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultRadius
	}

	radius, err := strconv.Atoi(trimmed)
	if err != nil || radius < minRadius || radius > maxRadius {
		return defaultRadius
	}
	return radius
}
