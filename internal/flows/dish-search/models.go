// internal/flows/dish-search/models.go
package dishsearch

// Input carries the raw form fields for one dish-search submission. Radius
// arrives as free text and is coerced at submission time.
type Input struct {
	Dish               string `json:"dish"`
	Location           string `json:"location"`
	Radius             string `json:"radius"`
	UseCurrentLocation bool   `json:"useCurrentLocation"`
}

// Result is the terminal payload of a dish-search task: restaurants serving
// the dish, ranked by the service.
type Result struct {
	Dish        string       `json:"dish"`
	Location    string       `json:"location"`
	Restaurants []Restaurant `json:"restaurants"`
}

type Restaurant struct {
	Name     string             `json:"name"`
	Rating   float64            `json:"rating"`
	Address  string             `json:"address"`
	MapLink  string             `json:"map_link"`
	Analysis RestaurantAnalysis `json:"analysis"`
}

type RestaurantAnalysis struct {
	Quality        string   `json:"quality"`
	Description    string   `json:"description,omitempty"`
	KeyPoints      []string `json:"key_points,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}
