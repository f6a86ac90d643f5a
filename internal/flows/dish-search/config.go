// internal/flows/dish-search/config.go
package dishsearch

// FlowName identifies this flow in configuration, logs, and metrics labels.
const FlowName = "dish-search"
