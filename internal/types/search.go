package types

import "time"

// SearchRequest is one progressive-search request: a free-text query plus
// optional structured hints.
type SearchRequest struct {
	Query          string `json:"query"`
	SearchType     string `json:"searchType,omitempty"` // "keyword" or "sentence"
	Destination    string `json:"destination,omitempty"`
	Theme          string `json:"theme,omitempty"`
	Days           int    `json:"days,omitempty"`
	Budget         string `json:"budget,omitempty"`
	Transportation string `json:"transportation,omitempty"`
	TravelStyle    string `json:"travelStyle,omitempty"`
}

// SearchEvent is one event of the progressive-search stream: either a
// per-stage progress update or the terminal result/error payload.
type SearchEvent struct {
	Status    string    `json:"status"` // "processing", "completed", "error"
	Message   string    `json:"message"`
	Step      string    `json:"step"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Progress  []string  `json:"progress,omitempty"`
}
