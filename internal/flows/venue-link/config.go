// internal/flows/venue-link/config.go
package venuelink

// FlowName identifies this flow in configuration, logs, and metrics labels.
const FlowName = "venue-link"
