package model

// Suggestion is the initial status suggested for a task title.
type Suggestion struct {
	Status TaskStatus `json:"status"`
	Reason string     `json:"reason"`
}
