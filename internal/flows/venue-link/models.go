// internal/flows/venue-link/models.go
package venuelink

// Input carries the raw form field for one venue-link submission.
type Input struct {
	Link string `json:"link"`
}

// Result is the terminal payload of a venue-link task: the scraped venue's
// best dishes, distilled from its reviews.
type Result struct {
	Success        bool     `json:"success"`
	RestaurantName string   `json:"restaurant_name"`
	Reviews        []Review `json:"reviews"`
	Analysis       Analysis `json:"analysis"`
}

type Review struct {
	Text  string  `json:"text"`
	Stars float64 `json:"stars"`
}

type Analysis struct {
	TopDishes []Dish `json:"top_dishes"`
	BestDish  Dish   `json:"best_dish"`
	Summary   string `json:"summary"`
}

type Dish struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	RecommendedWith string   `json:"recommended_with,omitempty"`
	KeyPoints       []string `json:"key_points"`
}
