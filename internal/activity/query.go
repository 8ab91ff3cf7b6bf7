// Package activity keeps the change history of models: one entry per domain
// event, queryable per model and searchable by summary.
package activity

import "time"

// QueryOptions controls filtering and pagination for model activity queries.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	EventTypes []string // filter to specific event types
	Limit      int      // max results (default: 100, max: 500)
	Cursor     string   // cursor for pagination
}

// SearchOptions controls filtering for summary search.
type SearchOptions struct {
	EventType string
	Since     *time.Time
	Limit     int // max results (default: 20)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: 20}
}
