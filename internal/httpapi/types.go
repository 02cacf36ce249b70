package httpapi

// SuggestResponse is the typeahead payload: matching strings, best first.
type SuggestResponse struct {
	Items []string `json:"items"`
}

// WatchlistResponse lists the watched symbols alphabetically.
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
}

// HealthResponse is the health-check payload.
type HealthResponse struct {
	Status string `json:"status"`
}
